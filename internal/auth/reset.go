package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

const (
	resetTokenBytes = 20
	// ResetTokenTTL is how long a password reset secret stays valid.
	ResetTokenTTL = 10 * time.Minute
)

// ErrInvalidResetToken covers both a wrong and an expired reset token. The
// two cases are indistinguishable to the caller so responses cannot be used
// as an oracle for which tokens exist.
var ErrInvalidResetToken = errors.New("password reset token is invalid or has expired")

// GenerateResetToken creates a single-use reset secret. The plaintext is
// returned for out-of-band delivery and never persisted; only the hash is
// stored on the user record.
func GenerateResetToken() (plain, hash string, err error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	plain = hex.EncodeToString(b)
	return plain, HashResetToken(plain), nil
}

// HashResetToken returns the SHA-256 hex digest under which a reset secret
// is stored and looked up.
func HashResetToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
