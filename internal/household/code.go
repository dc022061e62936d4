// Package household generates and validates household join codes.
package household

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// CodeLength is the number of characters in a join code.
const CodeLength = 6

// Alphabet omits characters that are easy to confuse: 0/O and 1/I/L.
const Alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// MaxMembers is the intended size of a household.
const MaxMembers = 2

var (
	// ErrInvalidCode is returned for codes that cannot have been generated.
	ErrInvalidCode = errors.New("invalid household code")
	// ErrHouseholdFull is returned when joining a household that already has two members.
	ErrHouseholdFull = errors.New("household is full")
	// ErrTooManyMembers reports a household with more members than allowed.
	ErrTooManyMembers = errors.New("household has too many members")
)

// NewCode returns a random join code.
func NewCode() (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(Alphabet)))
	for range CodeLength {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeCode uppercases and trims user input and validates the result.
func NormalizeCode(s string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if !ValidCode(code) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCode, s)
	}
	return code, nil
}

// ValidCode reports whether code is CodeLength characters from Alphabet.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}
	return true
}
