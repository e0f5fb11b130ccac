package solitaire

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ReadDeck reads whitespace separated card values until r is exhausted and
// builds a deck from them. A token that is not an integer fails the read.
func ReadDeck(r io.Reader) (*Deck, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)

	values := make([]int, 0, DeckSize)
	for sc.Scan() {
		c, err := ParseCard(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("token %d: %w", len(values)+1, err)
		}
		values = append(values, int(c))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read deck: %w", err)
	}
	return NewDeck(values)
}

// ParseDeck is ReadDeck over a string.
func ParseDeck(s string) (*Deck, error) {
	return ReadDeck(strings.NewReader(s))
}
