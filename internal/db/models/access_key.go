// access_key.go defines the ServiceAccessKey model for long-lived API credentials
// that identify a client's downstream application to the service-auth API.
package models

import "time"

// Access key environments. The environment is encoded into the key id prefix
// (ak_live_..., ak_test_...) for operator visibility.
const (
	EnvironmentLive = "live"
	EnvironmentTest = "test"
)

// ServiceAccessKey represents an API access key. The plaintext secret is
// generated once, returned once, and never stored; only its bcrypt hash is.
type ServiceAccessKey struct {
	ID          string     `json:"id"`
	AccessKeyID string     `json:"access_key_id"` // public id, format ak_{env}_{random}
	SecretHash  string     `json:"-"`             // bcrypt hash of the sk_... secret
	ClientID    string     `json:"client_id"`
	Environment string     `json:"environment"` // live or test
	RateLimit   int        `json:"rate_limit"`  // requests per hour, >= 1
	Active      bool       `json:"is_active"`
	RevokedAt   *time.Time `json:"revoked_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"-"`
}
