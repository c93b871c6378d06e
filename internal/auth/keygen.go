// keygen.go generates the unguessable identifiers used for service access keys
// and email verification links. All randomness comes from crypto/rand.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const (
	// AccessKeyIDBytes is the random length of the public key id. The id is
	// logged and displayed, so it is shorter than the secret.
	AccessKeyIDBytes = 24

	// AccessKeySecretBytes is the random length of the secret. The secret is
	// shown once and must resist brute force on its own.
	AccessKeySecretBytes = 36

	// VerificationTokenBytes is the random length of email verification tokens.
	VerificationTokenBytes = 32
)

// RandomKey returns byteLength cryptographically secure random bytes encoded
// as unpadded URL-safe base64.
func RandomKey(byteLength int) (string, error) {
	b := make([]byte, byteLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// AccessKeyID returns a new public key id of the form ak_{env}_{random}.
// The environment prefix exists for operator and debugging visibility only;
// authorization never derives anything from it.
func AccessKeyID(environment string) (string, error) {
	random, err := RandomKey(AccessKeyIDBytes)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ak_%s_%s", environment, random), nil
}

// AccessKeySecret returns a new plaintext secret of the form sk_{env}_{random}.
// Callers must hash it immediately; it is never persisted.
func AccessKeySecret(environment string) (string, error) {
	random, err := RandomKey(AccessKeySecretBytes)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("sk_%s_%s", environment, random), nil
}

// VerificationToken returns a random hex token for email verification links.
func VerificationToken() (string, error) {
	b := make([]byte, VerificationTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate verification token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
