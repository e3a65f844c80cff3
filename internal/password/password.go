// Package password hashes, verifies, and generates user passwords.
package password

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// DefaultLength is the length of generated passwords when none is given.
const DefaultLength = 12

// MaxBytes is the longest password bcrypt accepts.
const MaxBytes = 72

const (
	letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits  = "0123456789"
	symbols = "!@#$%&*+-="
)

var (
	// ErrEmpty indicates an empty password was supplied.
	ErrEmpty = errors.New("password is empty")

	// ErrTooLong indicates a password longer than MaxBytes.
	ErrTooLong = errors.New("password is too long")
)

// Hash returns a salted bcrypt hash of plain.
func Hash(plain string) ([]byte, error) {
	if plain == "" {
		return nil, ErrEmpty
	}
	if len(plain) > MaxBytes {
		return nil, fmt.Errorf("%w: at most %d bytes", ErrTooLong, MaxBytes)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// Verify reports whether plain matches hash. A nil hash never matches.
func Verify(hash []byte, plain string) bool {
	if len(hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(plain)) == nil
}

// Generate returns a random password of the given length drawn from
// letters and digits, plus symbols when withSymbols is set.
func Generate(length int, withSymbols bool) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}
	alphabet := letters + digits
	if withSymbols {
		alphabet += symbols
	}

	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
