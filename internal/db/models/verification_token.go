// verification_token.go defines the EmailVerificationToken model used by the
// opaque email-verification links sent to clients and end-users.
package models

import "time"

// Subject types for email verification tokens.
const (
	SubjectTypeClient = "client"
	SubjectTypeUser   = "user"
)

// EmailVerificationToken represents a single-use verification token. An unused,
// unexpired token for a subject is reused rather than duplicated, and a token
// only verifies if its target email still matches the subject's current email.
type EmailVerificationToken struct {
	ID          string     `json:"id"`
	Token       string     `json:"token"` // random hex string, the link payload
	UserID      string     `json:"user_id"`
	ClientID    string     `json:"client_id"`
	Email       string     `json:"email"` // target email at issue time, lowercase
	SubjectType string     `json:"user_type"`
	ExpiresAt   time.Time  `json:"expires_at"`
	Used        bool       `json:"is_used"`
	VerifiedAt  *time.Time `json:"verified_at"`
	CreatedAt   time.Time  `json:"created_at"`
}
