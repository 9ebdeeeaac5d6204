// Package password wraps bcrypt hashing with the cost policy used across
// coursekit: cost 10 for first-login adoption, cost 12 for explicit set,
// change, and reset paths.
package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// CostLogin is used when a passwordless account adopts the password
	// supplied on its first login.
	CostLogin = 10
	// CostReset is used for every explicit set/change/reset path.
	CostReset = 12

	// MinLength is the minimum accepted password length.
	MinLength = 8
)

var ErrTooShort = errors.New("password_too_short")

// Hash returns the bcrypt hash of plain at the given cost.
func Hash(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plain matches the stored bcrypt hash.
func Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Validate enforces the minimum password policy for new passwords.
func Validate(plain string) error {
	if len(plain) < MinLength {
		return ErrTooShort
	}
	return nil
}

// IsBcryptHash reports whether s looks like a bcrypt hash.
func IsBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
