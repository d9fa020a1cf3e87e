package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt work factor for stored credentials
const bcryptCost = 10

var ErrEmptyPassword = errors.New("password must not be empty")

// HashPassword generates a salted bcrypt hash of the password. Called
// whenever a plaintext password is set or changed, before persistence.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword reports whether the plaintext password matches the stored
// hash. An empty password never matches and never errors.
func CheckPassword(password, hash string) bool {
	if password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
