package solitaire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Card is a card value in [1, 28]. 1..26 are letter cards, 27 and 28 the jokers.
type Card int

const (
	JokerA Card = 27
	JokerB Card = 28
)

const (
	DeckSize = 28
	Letters  = 26
)

func (c Card) IsJoker() bool { return c == JokerA || c == JokerB }

func (c Card) Valid() bool { return c >= 1 && c <= DeckSize }

func (c Card) String() string { return strconv.Itoa(int(c)) }

// ParseCard parses one whitespace-free deck token.
func ParseCard(s string) (Card, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.Atoi(s)
	if errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("%w: card %s out of range [1,%d]", ErrMalformedDeck, s, DeckSize)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidToken, s)
	}
	c := Card(v)
	if !c.Valid() {
		return 0, fmt.Errorf("%w: card %d out of range [1,%d]", ErrMalformedDeck, v, DeckSize)
	}
	return c, nil
}
