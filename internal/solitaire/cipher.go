package solitaire

import (
	"fmt"
	"strings"
)

// DecryptPolicy decides what Decrypt does with characters outside A-Z.
type DecryptPolicy int

const (
	// DecryptStrict rejects the whole message.
	DecryptStrict DecryptPolicy = iota
	// DecryptStrip drops the character without drawing a key.
	DecryptStrip
	// DecryptPassThrough copies the character unchanged without drawing a key.
	DecryptPassThrough
)

func (p DecryptPolicy) String() string {
	switch p {
	case DecryptStrict:
		return "strict"
	case DecryptStrip:
		return "strip"
	case DecryptPassThrough:
		return "pass"
	default:
		return fmt.Sprintf("DecryptPolicy(%d)", int(p))
	}
}

func ParseDecryptPolicy(s string) (DecryptPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return DecryptStrict, nil
	case "strip":
		return DecryptStrip, nil
	case "pass", "passthrough", "pass-through":
		return DecryptPassThrough, nil
	default:
		return DecryptStrict, fmt.Errorf("unknown decrypt policy %q", s)
	}
}

// Cipher combines letters with one keystream. Consecutive calls keep drawing
// from the same evolving deck.
type Cipher struct {
	ks     *Keystream
	policy DecryptPolicy
}

type CipherOption func(*Cipher)

func WithDecryptPolicy(p DecryptPolicy) CipherOption {
	return func(c *Cipher) { c.policy = p }
}

func NewCipher(ks *Keystream, opts ...CipherOption) *Cipher {
	c := &Cipher{ks: ks}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Cipher) Keystream() *Keystream { return c.ks }

// Encrypt folds a-z to upper case and drops every other character, then
// adds one key per letter modulo 26. The result holds only A-Z.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	var b strings.Builder
	b.Grow(len(plaintext))
	for _, r := range plaintext {
		p, ok := letterValue(foldASCII(r))
		if !ok {
			continue
		}
		k, err := c.ks.NextKey()
		if err != nil {
			return "", err
		}
		s := p + k
		if s > Letters {
			s -= Letters
		}
		b.WriteRune(letterRune(s))
	}
	return b.String(), nil
}

// Decrypt expects upper case A-Z and reverses Encrypt. It does not fold case:
// other characters are handled by the cipher's DecryptPolicy.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	if c.policy == DecryptStrict {
		for i, r := range ciphertext {
			if _, ok := letterValue(r); !ok {
				return "", fmt.Errorf("%w: %q at byte %d", ErrInvalidCiphertext, r, i)
			}
		}
	}

	var b strings.Builder
	b.Grow(len(ciphertext))
	for _, r := range ciphertext {
		v, ok := letterValue(r)
		if !ok {
			if c.policy == DecryptPassThrough {
				b.WriteRune(r)
			}
			continue
		}
		k, err := c.ks.NextKey()
		if err != nil {
			return "", err
		}
		if v <= k {
			v += Letters
		}
		b.WriteRune(letterRune(v - k))
	}
	return b.String(), nil
}

// Encrypt runs a fresh session over a copy of d.
func Encrypt(d *Deck, plaintext string, opts ...Option) (string, error) {
	return NewCipher(NewKeystream(d.Clone(), opts...)).Encrypt(plaintext)
}

// Decrypt runs a fresh session over a copy of d with the strict policy.
func Decrypt(d *Deck, ciphertext string, opts ...Option) (string, error) {
	return NewCipher(NewKeystream(d.Clone(), opts...)).Decrypt(ciphertext)
}

// CountLetters reports how many keys Encrypt would draw for s.
func CountLetters(s string) int {
	n := 0
	for _, r := range s {
		if _, ok := letterValue(foldASCII(r)); ok {
			n++
		}
	}
	return n
}

func letterValue(r rune) (int, bool) {
	if r < 'A' || r > 'Z' {
		return 0, false
	}
	return int(r-'A') + 1, true
}

func foldASCII(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 'a' + 'A'
	}
	return r
}

func letterRune(v int) rune { return rune('A' + v - 1) }
