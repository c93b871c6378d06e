// Package services implements the business logic that coordinates across
// repositories and external systems. Services own the credential lifecycle
// rules (password verification, token rotation, audit emission, opaque error
// collapsing) while the repositories stay limited to query logic. Each
// service declares the narrow store interfaces it consumes, satisfied by the
// concrete repository types, so the logic is testable without a database.
package services

import (
	"context"

	"github.com/service-auth/service-auth/internal/db/models"
)

// ClientStore is the subset of ClientRepository used by the services layer.
type ClientStore interface {
	Create(ctx context.Context, client *models.Client) error
	GetByEmail(ctx context.Context, email string) (*models.Client, error)
	GetByID(ctx context.Context, clientID string) (*models.Client, error)
	MarkEmailVerified(ctx context.Context, clientID string) error
}

// UserStore is the subset of UserRepository used by the services layer.
// Every method is scoped to an owning client.
type UserStore interface {
	Create(ctx context.Context, user *models.ServiceUser) error
	GetByEmail(ctx context.Context, clientID, email string) (*models.ServiceUser, error)
	GetByID(ctx context.Context, clientID, userID string) (*models.ServiceUser, error)
	MarkEmailVerified(ctx context.Context, clientID, userID string) error
}

// TokenStore is the subset of TokenRepository used by the services layer.
type TokenStore interface {
	Create(ctx context.Context, token *models.Token) error
	Rotate(ctx context.Context, token *models.Token) error
	RevokeByHash(ctx context.Context, userID, clientID, tokenHash, tokenType string) (bool, error)
}

// AccessKeyStore is the subset of AccessKeyRepository used by the services layer.
type AccessKeyStore interface {
	Create(ctx context.Context, key *models.ServiceAccessKey) error
	GetActiveByAccessKeyID(ctx context.Context, accessKeyID string) (*models.ServiceAccessKey, error)
	GetByAccessKeyIDAndClient(ctx context.Context, accessKeyID, clientID string) (*models.ServiceAccessKey, error)
	Delete(ctx context.Context, id string) error
	ListActiveByClient(ctx context.Context, clientID string) ([]*models.ServiceAccessKey, error)
}

// VerificationStore is the subset of VerificationRepository used by the
// services layer.
type VerificationStore interface {
	Create(ctx context.Context, token *models.EmailVerificationToken) error
	FindActiveBySubject(ctx context.Context, userID, clientID, subjectType string) (*models.EmailVerificationToken, error)
	FindUnusedByToken(ctx context.Context, token, subjectType string) (*models.EmailVerificationToken, error)
	MarkUsed(ctx context.Context, id string) error
}

// Auditor records authentication events. Recording is best-effort: a failed
// audit write must never fail the operation being audited, so Record returns
// nothing.
type Auditor interface {
	Record(ctx context.Context, entry *models.AuditLog)
}
