package models

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"solitaire-cipher/backend/internal/solitaire"
)

const maxDeckNameChars = 64

// SavedDeck is a named initial deck ordering owned by one user.
type SavedDeck struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Name      string    `json:"name"`
	Cards     []int     `json:"cards"`
	CreatedAt time.Time `json:"created_at"`
}

// Deck rebuilds the stored ordering.
func (s *SavedDeck) Deck() (*solitaire.Deck, error) {
	return solitaire.NewDeck(s.Cards)
}

func CreateDeck(db *sql.DB, ownerID int64, name string, d *solitaire.Deck) (*SavedDeck, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > maxDeckNameChars {
		return nil, ErrInvalidDeckName
	}
	res, err := db.Exec(
		`INSERT INTO decks(owner_id, name, cards) VALUES (?, ?, ?)`,
		ownerID, name, d.String(),
	)
	if err != nil {
		if IsUniqueConstraint(err) {
			return nil, ErrDeckNameTaken
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return GetDeck(db, id)
}

func GetDeck(db *sql.DB, id int64) (*SavedDeck, error) {
	row := db.QueryRow(`SELECT id, owner_id, name, cards, created_at FROM decks WHERE id = ?`, id)
	s, err := scanDeck(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeckNotFound
	}
	return s, err
}

// GetDeckForOwner hides decks owned by someone else behind ErrDeckNotFound.
func GetDeckForOwner(db *sql.DB, id, ownerID int64) (*SavedDeck, error) {
	s, err := GetDeck(db, id)
	if err != nil {
		return nil, err
	}
	if s.OwnerID != ownerID {
		return nil, ErrDeckNotFound
	}
	return s, nil
}

func ListDecksByOwner(db *sql.DB, ownerID int64) ([]SavedDeck, error) {
	rows, err := db.Query(
		`SELECT id, owner_id, name, cards, created_at FROM decks WHERE owner_id = ? ORDER BY name`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SavedDeck{}
	for rows.Next() {
		s, err := scanDeck(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func DeleteDeck(db *sql.DB, id, ownerID int64) error {
	res, err := db.Exec(`DELETE FROM decks WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDeckNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeck(row rowScanner) (*SavedDeck, error) {
	var s SavedDeck
	var cards string
	if err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &cards, &s.CreatedAt); err != nil {
		return nil, err
	}
	d, err := solitaire.ParseDeck(cards)
	if err != nil {
		return nil, fmt.Errorf("deck %d: stored cards: %w", s.ID, err)
	}
	s.Cards = d.Render()
	return &s, nil
}
