// Package auth provides the credential primitives for the service-auth backend:
// bcrypt hashing of passwords and access-key secrets, JWT creation/verification,
// and generation of access-key id/secret pairs.
// Request-time wiring lives in internal/middleware; this package has no HTTP or
// storage dependencies.
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for bcrypt hashing. Access-key secrets are
// hashed with the same cost as passwords; a leaked secret is a password
// equivalent and gets the same brute-force resistance.
const BcryptCost = 12

// HashPassword computes a salted bcrypt hash of the plaintext. The output
// differs between calls (fresh salt) but always verifies against the input.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks plaintext against a stored bcrypt hash. A mismatch is
// (false, nil), not an error, so callers can map it to a uniform
// invalid-credentials failure. An error is returned only for a malformed hash.
func VerifyPassword(plaintext, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err == nil {
		return true, nil
	}
	if err == bcrypt.ErrMismatchedHashAndPassword {
		return false, nil
	}
	return false, fmt.Errorf("failed to verify password: %w", err)
}
