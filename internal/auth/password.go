// Package auth hashes passwords and issues and verifies the access and
// refresh tokens of the API.
package auth

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

// BcryptCost is the work factor for stored password hashes.
const BcryptCost = 10

// MinPasswordLength is the shortest accepted password, in characters.
const MinPasswordLength = 6

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether email looks like an address.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidPassword reports whether password has at least MinPasswordLength
// characters and at most MaxPasswordBytes bytes.
func ValidPassword(password string) bool {
	return utf8.RuneCountInString(password) >= MinPasswordLength &&
		len(password) <= MaxPasswordBytes
}

// CheckCredentials validates the shape of a new account's credentials.
func CheckCredentials(email, password string) error {
	if !ValidEmail(types.NormalizeEmail(email)) {
		return types.ErrInvalidEmail
	}
	if !ValidPassword(password) {
		return types.ErrWeakPassword
	}
	return nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", types.ErrWeakPassword
	}
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// ComparePassword returns ErrInvalidCredentials unless password matches hash.
func ComparePassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) || errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return types.ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("comparing password: %w", err)
	}
	return nil
}
