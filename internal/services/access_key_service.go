// access_key_service.go implements the API access key lifecycle: issuing a
// key pair for a tenant, validating presented credentials, and revocation.
// The secret is bcrypt-hashed like a password and the plaintext exists only in
// the issue response.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/service-auth/service-auth/internal/auth"
	"github.com/service-auth/service-auth/internal/db/models"
)

// Default access key parameters applied when the issue request omits them.
const (
	DefaultEnvironment = models.EnvironmentLive
	DefaultRateLimit   = 1000
)

// AccessKeyService handles API access key management and validation.
type AccessKeyService struct {
	keys AccessKeyStore
}

// NewAccessKeyService creates a new AccessKeyService.
func NewAccessKeyService(keys AccessKeyStore) *AccessKeyService {
	return &AccessKeyService{keys: keys}
}

// IssuedKey is returned once at issue time. Secret is the only copy of the
// plaintext secret that will ever exist outside the caller's hands.
type IssuedKey struct {
	AccessKeyID string    `json:"access_key_id"`
	Secret      string    `json:"access_key_secret"`
	ClientID    string    `json:"client_id"`
	Environment string    `json:"environment"`
	RateLimit   int       `json:"rate_limit"`
	CreatedAt   time.Time `json:"created_at"`
}

// Issue mints a new access key pair for the tenant. A zero environment falls
// back to live, a zero rate limit to the default; anything else invalid is
// rejected before touching the store.
func (s *AccessKeyService) Issue(ctx context.Context, clientID, environment string, rateLimit int) (*IssuedKey, error) {
	if environment == "" {
		environment = DefaultEnvironment
	}
	if environment != models.EnvironmentLive && environment != models.EnvironmentTest {
		return nil, ErrInvalidEnvironment
	}
	if rateLimit == 0 {
		rateLimit = DefaultRateLimit
	}
	if rateLimit < 1 {
		return nil, ErrInvalidRateLimit
	}

	accessKeyID, err := auth.AccessKeyID(environment)
	if err != nil {
		return nil, err
	}
	secret, err := auth.AccessKeySecret(environment)
	if err != nil {
		return nil, err
	}
	secretHash, err := auth.HashPassword(secret)
	if err != nil {
		return nil, err
	}

	key := &models.ServiceAccessKey{
		AccessKeyID: accessKeyID,
		SecretHash:  secretHash,
		ClientID:    clientID,
		Environment: environment,
		RateLimit:   rateLimit,
		Active:      true,
	}
	if err := s.keys.Create(ctx, key); err != nil {
		return nil, err
	}

	return &IssuedKey{
		AccessKeyID: key.AccessKeyID,
		Secret:      secret,
		ClientID:    key.ClientID,
		Environment: key.Environment,
		RateLimit:   key.RateLimit,
		CreatedAt:   key.CreatedAt,
	}, nil
}

// ValidateCredentials checks an access key id and plaintext secret pair,
// returning the key record when both match an active key.
func (s *AccessKeyService) ValidateCredentials(ctx context.Context, accessKeyID, secret string) (*models.ServiceAccessKey, error) {
	key, err := s.keys.GetActiveByAccessKeyID(ctx, strings.TrimSpace(accessKeyID))
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, ErrInvalidAccessKey
	}

	ok, err := auth.VerifyPassword(secret, key.SecretHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidAccessKeySecret
	}
	return key, nil
}

// ValidateByID checks an access key id without a secret. Request middleware
// uses this to resolve the calling tenant; the key id alone grants access only
// to the tenant-scoped user endpoints, never the dashboard.
func (s *AccessKeyService) ValidateByID(ctx context.Context, accessKeyID string) (*models.ServiceAccessKey, error) {
	key, err := s.keys.GetActiveByAccessKeyID(ctx, strings.TrimSpace(accessKeyID))
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, ErrInvalidAccessKey
	}
	return key, nil
}

// RevokedKey is returned by Revoke.
type RevokedKey struct {
	AccessKeyID string    `json:"access_key_id"`
	DeletedAt   time.Time `json:"deleted_at"`
}

// Revoke permanently deletes an access key. The key must belong to the
// calling tenant; a key owned by someone else reports not-found rather than
// forbidden so the endpoint does not confirm foreign key ids.
func (s *AccessKeyService) Revoke(ctx context.Context, accessKeyID, clientID string) (*RevokedKey, error) {
	key, err := s.keys.GetByAccessKeyIDAndClient(ctx, strings.TrimSpace(accessKeyID), strings.TrimSpace(clientID))
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, ErrAccessKeyNotFound
	}

	if err := s.keys.Delete(ctx, key.ID); err != nil {
		return nil, err
	}

	return &RevokedKey{
		AccessKeyID: key.AccessKeyID,
		DeletedAt:   time.Now(),
	}, nil
}

// List returns the tenant's active access keys, newest first, without secret
// material.
func (s *AccessKeyService) List(ctx context.Context, clientID string) ([]*models.ServiceAccessKey, error) {
	return s.keys.ListActiveByClient(ctx, strings.TrimSpace(clientID))
}
