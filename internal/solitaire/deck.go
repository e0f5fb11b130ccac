// Package solitaire implements a 28-card Solitaire keystream generator and the
// letters-only stream cipher built on it. Nothing here is cryptographically secure.
package solitaire

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mathrand "math/rand"
	"strings"
	"time"
)

// Deck is the circular 28-card sequence. cards holds the cycle in reading
// order: cards[0] is the card right after the rear and cards[DeckSize-1] is
// the rear itself. A slot index stands in for a node link, so every
// rearrangement is a permutation of the array.
type Deck struct {
	cards [DeckSize]Card
}

// NewDeck builds a deck from an explicit ordering. The last value becomes the
// rear. The input must be a permutation of 1..28; nothing is built otherwise.
func NewDeck(values []int) (*Deck, error) {
	if len(values) != DeckSize {
		return nil, fmt.Errorf("%w: got %d cards, want %d", ErrMalformedDeck, len(values), DeckSize)
	}
	d := &Deck{}
	var seen [DeckSize + 1]bool
	for i, v := range values {
		c := Card(v)
		if !c.Valid() {
			return nil, fmt.Errorf("%w: card %d out of range [1,%d]", ErrMalformedDeck, v, DeckSize)
		}
		if seen[c] {
			return nil, fmt.Errorf("%w: duplicate card %d", ErrMalformedDeck, v)
		}
		seen[c] = true
		d.cards[i] = c
	}
	return d, nil
}

// OrderedDeck returns the deck 1, 2, ..., 28 (rear = 28).
func OrderedDeck() *Deck {
	d := &Deck{}
	for i := range d.cards {
		d.cards[i] = Card(i + 1)
	}
	return d
}

// NewRandomDeck returns a uniformly shuffled deck.
func NewRandomDeck() *Deck {
	d := OrderedDeck()
	shuffle(d.cards[:])
	return d
}

// NewRandomDeckFrom shuffles with the given source; used for reproducible decks.
func NewRandomDeckFrom(r *mathrand.Rand) *Deck {
	d := OrderedDeck()
	for i := len(d.cards) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
	return d
}

func shuffle(cards []Card) {
	// Fisher-Yates over crypto/rand; falls back to a time-seeded LCG if the
	// system source fails.
	for i := len(cards) - 1; i > 0; i-- {
		nBig, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			fallbackShuffle(cards)
			return
		}
		j := int(nBig.Int64())
		cards[i], cards[j] = cards[j], cards[i]
	}
}

func fallbackShuffle(cards []Card) {
	seed := time.Now().UnixNano()
	for i := len(cards) - 1; i > 0; i-- {
		seed = (seed*6364136223846793005 + 1) & 0x7fffffffffffffff
		j := int(seed % int64(i+1))
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// Render returns the 28 values in cycle order starting just after the rear.
func (d *Deck) Render() []int {
	out := make([]int, DeckSize)
	for i, c := range d.cards {
		out[i] = int(c)
	}
	return out
}

func (d *Deck) Rear() Card  { return d.cards[DeckSize-1] }
func (d *Deck) First() Card { return d.cards[0] }

func (d *Deck) Clone() *Deck {
	cp := *d
	return &cp
}

func (d *Deck) Equal(o *Deck) bool {
	return o != nil && d.cards == o.cards
}

// String renders the deck in the whitespace separated input format.
func (d *Deck) String() string {
	var b strings.Builder
	for i, c := range d.cards {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(c.String())
	}
	return b.String()
}

// Validate reports whether the deck still holds every card exactly once.
func (d *Deck) Validate() error {
	var seen [DeckSize + 1]bool
	for i, c := range d.cards {
		if !c.Valid() {
			return fmt.Errorf("%w: slot %d holds %d", ErrMalformedDeck, i, c)
		}
		if seen[c] {
			return fmt.Errorf("%w: duplicate card %d at slot %d", ErrMalformedDeck, c, i)
		}
		seen[c] = true
	}
	return nil
}

func (d *Deck) indexOf(c Card) int {
	for i, v := range d.cards {
		if v == c {
			return i
		}
	}
	return -1
}
