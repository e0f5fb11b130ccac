package auth

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	// bcrypt truncates passwords at 72 bytes.
	bcryptMaxPasswordBytes = 72
	MinPasswordChars       = 8
)

var errPasswordValidation = errors.New("password validation")

// IsPasswordValidationError reports whether err came from HashPassword input
// checks rather than from bcrypt itself; such messages are safe to show users.
func IsPasswordValidationError(err error) bool {
	return errors.Is(err, errPasswordValidation)
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }
func (e *validationError) Unwrap() error { return errPasswordValidation }

// HashPassword hashes a plaintext password using bcrypt.
func HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", &validationError{"password required"}
	}
	if utf8.RuneCountInString(plain) < MinPasswordChars {
		return "", &validationError{fmt.Sprintf("password must be at least %d characters", MinPasswordChars)}
	}
	if len(plain) > bcryptMaxPasswordBytes {
		return "", &validationError{fmt.Sprintf("password too long: at most %d bytes", bcryptMaxPasswordBytes)}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func ComparePasswordHash(hash string, plain string) error {
	if plain == "" {
		return fmt.Errorf("password required")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
