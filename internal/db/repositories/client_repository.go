// Package repositories implements the data access layer (repository pattern)
// for the service-auth backend. Each repository type encapsulates all database
// queries for a domain entity. Services never issue SQL directly: all database
// access goes through this layer, which keeps query logic testable in isolation
// and keeps tenant-scoping rules in one place.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/service-auth/service-auth/internal/db/models"
)

// ErrDuplicate is returned when an insert violates a uniqueness constraint
// (client email, per-tenant user email, access key id). The constraints are the
// safety net against concurrent read-then-write races, so services must treat
// this error as equivalent to their own pre-insert existence check firing.
var ErrDuplicate = errors.New("duplicate record")

// uniqueViolation is the PostgreSQL error code for unique_violation.
const uniqueViolation = "23505"

func translateInsertErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

// ClientRepository handles client (tenant) database operations.
type ClientRepository struct {
	db *sql.DB
}

// NewClientRepository creates a new ClientRepository.
func NewClientRepository(db *sql.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// Create inserts a new client, assigning id and timestamps.
func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	client.ID = uuid.New().String()
	client.CreatedAt = time.Now()
	client.UpdatedAt = client.CreatedAt

	query := `
		INSERT INTO clients (id, full_name, position_title, email_address, phone_no, industry, password_hash, email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		client.ID,
		client.FullName,
		client.PositionTitle,
		client.EmailAddress,
		client.PhoneNo,
		client.Industry,
		client.PasswordHash,
		client.EmailVerified,
		client.CreatedAt,
		client.UpdatedAt,
	)

	return translateInsertErr(err)
}

const clientColumns = `id, full_name, position_title, email_address, phone_no, industry, password_hash, email_verified, created_at, updated_at`

func scanClient(row *sql.Row) (*models.Client, error) {
	client := &models.Client{}
	err := row.Scan(
		&client.ID,
		&client.FullName,
		&client.PositionTitle,
		&client.EmailAddress,
		&client.PhoneNo,
		&client.Industry,
		&client.PasswordHash,
		&client.EmailVerified,
		&client.CreatedAt,
		&client.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

// GetByEmail retrieves a client by its lowercase email address.
func (r *ClientRepository) GetByEmail(ctx context.Context, email string) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE email_address = $1`
	return scanClient(r.db.QueryRowContext(ctx, query, email))
}

// GetByID retrieves a client by id.
func (r *ClientRepository) GetByID(ctx context.Context, clientID string) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	return scanClient(r.db.QueryRowContext(ctx, query, clientID))
}

// MarkEmailVerified flips the email_verified flag for a client.
func (r *ClientRepository) MarkEmailVerified(ctx context.Context, clientID string) error {
	query := `UPDATE clients SET email_verified = TRUE, updated_at = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, clientID, time.Now())
	return err
}
