package solitaire

import "errors"

var (
	ErrMalformedDeck      = errors.New("malformed deck")
	ErrInvalidToken       = errors.New("invalid deck token")
	ErrKeystreamExhausted = errors.New("keystream exhausted")
	ErrInvalidCiphertext  = errors.New("invalid ciphertext")
)
