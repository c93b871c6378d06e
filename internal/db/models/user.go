// user.go defines the ServiceUser model for end-users registered under a client's
// namespace. Email uniqueness is scoped to the owning client, not global.
package models

import "time"

// ServiceUser represents an end-user belonging to exactly one client.
// ClientID is immutable after creation; the (client_id, email) pair is unique
// so two clients may register users with the same email independently.
type ServiceUser struct {
	ID            string         `json:"id"`
	ClientID      string         `json:"client_id"`
	Email         string         `json:"email"` // stored lowercase
	PasswordHash  string         `json:"-"`
	Name          *string        `json:"name"`
	CustomFields  map[string]any `json:"custom_fields"` // JSONB, schema-free per-client data
	EmailVerified bool           `json:"is_email_verified"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
