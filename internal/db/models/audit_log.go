// audit_log.go defines the AuditLog model recording authentication events.
// Rows are append-only: the core never mutates or deletes them.
package models

import "time"

// Audit actions recorded by the credential services.
const (
	AuditActionRegister    = "REGISTER"
	AuditActionLogin       = "LOGIN"
	AuditActionLogout      = "LOGOUT"
	AuditActionFailedLogin = "FAILED_LOGIN"
)

// AuditLog represents a single authentication event. UserID is nil for failed
// attempts where no subject could be resolved (unknown email, duplicate
// registration) so failures stay auditable without leaking which field failed.
type AuditLog struct {
	ID        string    `json:"id"`
	UserID    *string   `json:"user_id"`
	ClientID  string    `json:"client_id"`
	Action    string    `json:"action"`
	IPAddress string    `json:"ip_address"`
	UserAgent *string   `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}
