// access_key_repository.go implements AccessKeyRepository, providing database
// queries for service access key creation, validation lookups, owner-checked
// hard deletion, and per-client listing.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/service-auth/service-auth/internal/db/models"
)

// AccessKeyRepository handles service access key database operations.
type AccessKeyRepository struct {
	db *sql.DB
}

// NewAccessKeyRepository creates a new AccessKeyRepository.
func NewAccessKeyRepository(db *sql.DB) *AccessKeyRepository {
	return &AccessKeyRepository{db: db}
}

// Create inserts a new access key record, assigning id and timestamps.
func (r *AccessKeyRepository) Create(ctx context.Context, key *models.ServiceAccessKey) error {
	key.ID = uuid.New().String()
	key.CreatedAt = time.Now()
	key.UpdatedAt = key.CreatedAt

	query := `
		INSERT INTO service_access_keys (id, access_key_id, secret_hash, client_id, environment, rate_limit, is_active, revoked_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		key.ID,
		key.AccessKeyID,
		key.SecretHash,
		key.ClientID,
		key.Environment,
		key.RateLimit,
		key.Active,
		key.RevokedAt,
		key.CreatedAt,
		key.UpdatedAt,
	)

	return translateInsertErr(err)
}

const accessKeyColumns = `id, access_key_id, secret_hash, client_id, environment, rate_limit, is_active, revoked_at, created_at, updated_at`

func scanAccessKey(row *sql.Row) (*models.ServiceAccessKey, error) {
	key := &models.ServiceAccessKey{}
	err := row.Scan(
		&key.ID,
		&key.AccessKeyID,
		&key.SecretHash,
		&key.ClientID,
		&key.Environment,
		&key.RateLimit,
		&key.Active,
		&key.RevokedAt,
		&key.CreatedAt,
		&key.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return key, nil
}

// GetActiveByAccessKeyID retrieves an active, non-revoked key by its public id.
// Used by both validation paths; inactive or revoked keys are indistinguishable
// from unknown ones.
func (r *AccessKeyRepository) GetActiveByAccessKeyID(ctx context.Context, accessKeyID string) (*models.ServiceAccessKey, error) {
	query := `
		SELECT ` + accessKeyColumns + `
		FROM service_access_keys
		WHERE access_key_id = $1 AND is_active = TRUE AND revoked_at IS NULL
	`
	return scanAccessKey(r.db.QueryRowContext(ctx, query, accessKeyID))
}

// GetByAccessKeyIDAndClient retrieves a key by public id scoped to its owning
// client, regardless of active state. Used for owner-checked revocation.
func (r *AccessKeyRepository) GetByAccessKeyIDAndClient(ctx context.Context, accessKeyID, clientID string) (*models.ServiceAccessKey, error) {
	query := `
		SELECT ` + accessKeyColumns + `
		FROM service_access_keys
		WHERE access_key_id = $1 AND client_id = $2
	`
	return scanAccessKey(r.db.QueryRowContext(ctx, query, accessKeyID, clientID))
}

// Delete permanently removes an access key record. Revocation is a hard delete
// in this design; there is no soft-revoke retention.
func (r *AccessKeyRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM service_access_keys WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// ListActiveByClient retrieves all active, non-revoked keys for a client,
// newest first.
func (r *AccessKeyRepository) ListActiveByClient(ctx context.Context, clientID string) ([]*models.ServiceAccessKey, error) {
	query := `
		SELECT ` + accessKeyColumns + `
		FROM service_access_keys
		WHERE client_id = $1 AND is_active = TRUE AND revoked_at IS NULL
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]*models.ServiceAccessKey, 0)
	for rows.Next() {
		key := &models.ServiceAccessKey{}
		err := rows.Scan(
			&key.ID,
			&key.AccessKeyID,
			&key.SecretHash,
			&key.ClientID,
			&key.Environment,
			&key.RateLimit,
			&key.Active,
			&key.RevokedAt,
			&key.CreatedAt,
			&key.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}
