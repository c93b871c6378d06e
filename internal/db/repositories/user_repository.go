// user_repository.go implements UserRepository, the per-tenant end-user store.
// Every query is parameterized by client_id so a lookup can never cross tenant
// boundaries; the (client_id, email) unique constraint makes the same email
// valid under two different clients.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/service-auth/service-auth/internal/db/models"
)

// UserRepository handles service-user database operations.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new end-user under its client partition, assigning id and
// timestamps. Returns ErrDuplicate when the (client_id, email) pair exists.
func (r *UserRepository) Create(ctx context.Context, user *models.ServiceUser) error {
	user.ID = uuid.New().String()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	if user.CustomFields == nil {
		user.CustomFields = map[string]any{}
	}
	customJSON, err := json.Marshal(user.CustomFields)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO service_users (id, client_id, email, password_hash, name, custom_fields, email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		user.ID,
		user.ClientID,
		user.Email,
		user.PasswordHash,
		user.Name,
		customJSON,
		user.EmailVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)

	return translateInsertErr(err)
}

const userColumns = `id, client_id, email, password_hash, name, custom_fields, email_verified, created_at, updated_at`

func scanUser(row *sql.Row) (*models.ServiceUser, error) {
	user := &models.ServiceUser{}
	var customJSON []byte

	err := row.Scan(
		&user.ID,
		&user.ClientID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&customJSON,
		&user.EmailVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if len(customJSON) > 0 {
		if err := json.Unmarshal(customJSON, &user.CustomFields); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// GetByEmail retrieves an end-user by email within a client partition only.
func (r *UserRepository) GetByEmail(ctx context.Context, clientID, email string) (*models.ServiceUser, error) {
	query := `SELECT ` + userColumns + ` FROM service_users WHERE client_id = $1 AND email = $2`
	return scanUser(r.db.QueryRowContext(ctx, query, clientID, email))
}

// GetByID retrieves an end-user by id within a client partition only.
func (r *UserRepository) GetByID(ctx context.Context, clientID, userID string) (*models.ServiceUser, error) {
	query := `SELECT ` + userColumns + ` FROM service_users WHERE client_id = $1 AND id = $2`
	return scanUser(r.db.QueryRowContext(ctx, query, clientID, userID))
}

// MarkEmailVerified flips the email_verified flag for an end-user.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, clientID, userID string) error {
	query := `UPDATE service_users SET email_verified = TRUE, updated_at = $3 WHERE client_id = $1 AND id = $2`
	_, err := r.db.ExecContext(ctx, query, clientID, userID, time.Now())
	return err
}
