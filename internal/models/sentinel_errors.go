package models

import "errors"

var (
	ErrInvalidJSON      = errors.New("invalid json")
	ErrInvalidDeck      = errors.New("invalid deck")
	ErrInvalidDeckName  = errors.New("invalid deck name")
	ErrDeckNameTaken    = errors.New("deck name taken")
	ErrDeckNotFound     = errors.New("deck not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrForbidden        = errors.New("forbidden")
	ErrMessageTooLong   = errors.New("message too long")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidPolicy    = errors.New("invalid decrypt policy")
)
