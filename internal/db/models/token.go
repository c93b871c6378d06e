// token.go defines the Token model that backs refresh-token revocation.
// Raw tokens are never persisted; only their SHA-256 digest is stored.
package models

import "time"

// Token types as stored in the tokens table.
const (
	TokenTypeAccess  = "Access"
	TokenTypeRefresh = "Refresh"
)

// Token represents an issued token digest. At most one active (non-revoked,
// non-expired) Refresh row should exist per (user_id, client_id); rotation
// revokes all prior active rows before inserting a new one.
type Token struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`   // client id for tenant sessions, user id for end-user sessions
	ClientID  string    `json:"client_id"` // owning tenant
	TokenType string    `json:"token_type"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}
