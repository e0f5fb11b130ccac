package models

import "database/sql"

const (
	DirectionEncrypt = "encrypt"
	DirectionDecrypt = "decrypt"
)

type Usage struct {
	UserID           int64 `json:"user_id"`
	Operations       int64 `json:"operations"`
	LettersEncrypted int64 `json:"letters_encrypted"`
	LettersDecrypted int64 `json:"letters_decrypted"`
}

// RecordOperation appends one cipher call to the user's usage log. deckID is
// nil for calls made with an inline deck.
func RecordOperation(db *sql.DB, userID int64, deckID *int64, direction string, letters int) error {
	if direction != DirectionEncrypt && direction != DirectionDecrypt {
		return ErrInvalidDirection
	}
	_, err := db.Exec(
		`INSERT INTO cipher_operations(user_id, deck_id, direction, letters) VALUES (?, ?, ?, ?)`,
		userID, deckID, direction, letters,
	)
	return err
}

func UsageForUser(db *sql.DB, userID int64) (Usage, error) {
	u := Usage{UserID: userID}
	err := db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN direction = 'encrypt' THEN letters ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN direction = 'decrypt' THEN letters ELSE 0 END), 0)
		FROM cipher_operations
		WHERE user_id = ?`,
		userID,
	).Scan(&u.Operations, &u.LettersEncrypted, &u.LettersDecrypted)
	return u, err
}
