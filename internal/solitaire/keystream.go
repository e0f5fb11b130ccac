package solitaire

import "fmt"

// DefaultMaxRetries bounds how many joker read-offs NextKey tolerates in a
// row before giving up. A healthy deck rejects roughly one draw in fourteen.
const DefaultMaxRetries = 1024

// Keystream owns one deck and advances it one key at a time. It is not safe
// for concurrent use.
type Keystream struct {
	deck       *Deck
	maxRetries int
	drawn      int
}

type Option func(*Keystream)

// WithMaxRetries sets how many joker read-offs NextKey may discard before
// failing. A negative n removes the bound.
func WithMaxRetries(n int) Option {
	return func(k *Keystream) { k.maxRetries = n }
}

// NewKeystream takes ownership of d; callers that want to keep the initial
// ordering should pass a clone.
func NewKeystream(d *Deck, opts ...Option) *Keystream {
	k := &Keystream{deck: d, maxRetries: DefaultMaxRetries}
	for _, o := range opts {
		o(k)
	}
	return k
}

// Step runs joker A, joker B, the triple cut and the count cut, in that order.
func (k *Keystream) Step() {
	k.deck.MoveJokerA()
	k.deck.MoveJokerB()
	k.deck.TripleCut()
	k.deck.CountCut()
}

// readOff returns the card n+1 positions past the rear, n being the value of
// the first card with joker B counted as 27.
func (k *Keystream) readOff() Card {
	n := k.deck.First()
	if n == JokerB {
		n = JokerA
	}
	// n+1 steps from the rear lands on slot n.
	return k.deck.cards[n]
}

// NextKey advances the deck until a letter card is read off and returns its
// value in [1, 26].
func (k *Keystream) NextKey() (int, error) {
	for rejected := 0; ; rejected++ {
		if k.maxRetries >= 0 && rejected > k.maxRetries {
			return 0, fmt.Errorf("%w: %d joker draws in a row", ErrKeystreamExhausted, rejected)
		}
		k.Step()
		if c := k.readOff(); !c.IsJoker() {
			k.drawn++
			return int(c), nil
		}
	}
}

// Keys draws n keys.
func (k *Keystream) Keys(n int) ([]int, error) {
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		v, err := k.NextKey()
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Deck returns a copy of the current deck state.
func (k *Keystream) Deck() *Deck { return k.deck.Clone() }

// Drawn is the number of keys handed out so far.
func (k *Keystream) Drawn() int { return k.drawn }
