// Package models defines the database model types for the service-auth backend.
// Each type corresponds to a database table and uses struct tags for JSON serialization.
// Models are pure data types: business logic belongs in the service layer, query logic
// in the repositories layer.
package models

import "time"

// Client represents a registered tenant account. Each client owns an isolated
// end-user namespace and its own set of service access keys.
type Client struct {
	ID            string    `json:"id"`
	FullName      string    `json:"full_name"`
	PositionTitle string    `json:"position_title"`
	EmailAddress  string    `json:"email_address"` // stored lowercase, globally unique
	PhoneNo       string    `json:"phone_no"`
	Industry      string    `json:"industry"`
	PasswordHash  string    `json:"-"`
	EmailVerified bool      `json:"is_email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
