// verification_repository.go implements VerificationRepository, the store for
// single-use email verification tokens.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/service-auth/service-auth/internal/db/models"
)

// VerificationRepository handles email verification token database operations.
type VerificationRepository struct {
	db *sql.DB
}

// NewVerificationRepository creates a new VerificationRepository.
func NewVerificationRepository(db *sql.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// Create inserts a new verification token record.
func (r *VerificationRepository) Create(ctx context.Context, token *models.EmailVerificationToken) error {
	token.ID = uuid.New().String()
	token.CreatedAt = time.Now()

	query := `
		INSERT INTO email_verification_tokens (id, token, user_id, client_id, email, subject_type, expires_at, used, verified_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		token.ID,
		token.Token,
		token.UserID,
		token.ClientID,
		token.Email,
		token.SubjectType,
		token.ExpiresAt,
		token.Used,
		token.VerifiedAt,
		token.CreatedAt,
	)

	return translateInsertErr(err)
}

const verificationColumns = `id, token, user_id, client_id, email, subject_type, expires_at, used, verified_at, created_at`

func scanVerification(row *sql.Row) (*models.EmailVerificationToken, error) {
	t := &models.EmailVerificationToken{}
	err := row.Scan(
		&t.ID,
		&t.Token,
		&t.UserID,
		&t.ClientID,
		&t.Email,
		&t.SubjectType,
		&t.ExpiresAt,
		&t.Used,
		&t.VerifiedAt,
		&t.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// FindActiveBySubject retrieves an unused, unexpired, unverified token for the
// subject, if one exists. Services reuse it instead of minting a duplicate.
func (r *VerificationRepository) FindActiveBySubject(ctx context.Context, userID, clientID, subjectType string) (*models.EmailVerificationToken, error) {
	query := `
		SELECT ` + verificationColumns + `
		FROM email_verification_tokens
		WHERE user_id = $1 AND client_id = $2 AND subject_type = $3
		  AND used = FALSE AND verified_at IS NULL AND expires_at > $4
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanVerification(r.db.QueryRowContext(ctx, query, userID, clientID, subjectType, time.Now()))
}

// FindUnusedByToken retrieves an unused token record by its opaque token string
// and subject type. Expiry is checked by the service so it can distinguish the
// expired case for its own (still opaque to the end caller) handling.
func (r *VerificationRepository) FindUnusedByToken(ctx context.Context, token, subjectType string) (*models.EmailVerificationToken, error) {
	query := `
		SELECT ` + verificationColumns + `
		FROM email_verification_tokens
		WHERE token = $1 AND subject_type = $2 AND used = FALSE
	`
	return scanVerification(r.db.QueryRowContext(ctx, query, token, subjectType))
}

// MarkUsed marks a token as consumed and records the verification time.
func (r *VerificationRepository) MarkUsed(ctx context.Context, id string) error {
	query := `UPDATE email_verification_tokens SET used = TRUE, verified_at = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, time.Now())
	return err
}

// DeleteExpired removes expired verification tokens, returning the number
// deleted. Called by the background sweeper.
func (r *VerificationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM email_verification_tokens WHERE expires_at < $1`

	result, err := r.db.ExecContext(ctx, query, time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
