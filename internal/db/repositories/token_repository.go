// token_repository.go implements TokenRepository, the store behind refresh
// token rotation and revocation. The Rotate operation wraps revoke-all plus
// insert-one in a single transaction so concurrent logins for the same subject
// cannot leave two active refresh tokens behind.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/service-auth/service-auth/internal/db/models"
)

// TokenRepository handles token digest database operations.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

const insertTokenQuery = `
	INSERT INTO tokens (id, user_id, client_id, token_type, token_hash, expires_at, revoked, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

const revokeActiveQuery = `
	UPDATE tokens
	SET revoked = TRUE
	WHERE user_id = $1 AND client_id = $2 AND token_type = $3 AND revoked = FALSE
`

// Create inserts a token record, assigning id and creation timestamp.
func (r *TokenRepository) Create(ctx context.Context, token *models.Token) error {
	token.ID = uuid.New().String()
	token.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, insertTokenQuery,
		token.ID,
		token.UserID,
		token.ClientID,
		token.TokenType,
		token.TokenHash,
		token.ExpiresAt,
		token.Revoked,
		token.CreatedAt,
	)
	return err
}

// RevokeAllActive marks every non-revoked token of the given type for the
// subject as revoked.
func (r *TokenRepository) RevokeAllActive(ctx context.Context, userID, clientID, tokenType string) error {
	_, err := r.db.ExecContext(ctx, revokeActiveQuery, userID, clientID, tokenType)
	return err
}

// Rotate revokes all active tokens of token.TokenType for the subject and
// inserts token as the single replacement, atomically. This enforces the
// at-most-one-active-refresh-token invariant even under concurrent logins.
func (r *TokenRepository) Rotate(ctx context.Context, token *models.Token) error {
	token.ID = uuid.New().String()
	token.CreatedAt = time.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rotation: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, revokeActiveQuery, token.UserID, token.ClientID, token.TokenType); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, insertTokenQuery,
		token.ID,
		token.UserID,
		token.ClientID,
		token.TokenType,
		token.TokenHash,
		token.ExpiresAt,
		token.Revoked,
		token.CreatedAt,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// FindActiveByHash retrieves the non-revoked, non-expired token matching the
// subject and digest. Returns nil when no such token exists; revoked, expired,
// and unknown digests are indistinguishable to the caller.
func (r *TokenRepository) FindActiveByHash(ctx context.Context, userID, clientID, tokenHash, tokenType string) (*models.Token, error) {
	query := `
		SELECT id, user_id, client_id, token_type, token_hash, expires_at, revoked, created_at
		FROM tokens
		WHERE user_id = $1 AND client_id = $2 AND token_hash = $3 AND token_type = $4
		  AND revoked = FALSE AND expires_at > $5
	`

	token := &models.Token{}
	err := r.db.QueryRowContext(ctx, query, userID, clientID, tokenHash, tokenType, time.Now()).Scan(
		&token.ID,
		&token.UserID,
		&token.ClientID,
		&token.TokenType,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.Revoked,
		&token.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}

// RevokeByHash marks the single matching non-revoked token as revoked and
// reports whether a row was actually updated. A false result means the token
// was unknown or already revoked.
func (r *TokenRepository) RevokeByHash(ctx context.Context, userID, clientID, tokenHash, tokenType string) (bool, error) {
	query := `
		UPDATE tokens
		SET revoked = TRUE
		WHERE user_id = $1 AND client_id = $2 AND token_hash = $3 AND token_type = $4 AND revoked = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, userID, clientID, tokenHash, tokenType)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CountActive returns the number of non-revoked, non-expired tokens of the
// given type for a subject.
func (r *TokenRepository) CountActive(ctx context.Context, userID, clientID, tokenType string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM tokens
		WHERE user_id = $1 AND client_id = $2 AND token_type = $3
		  AND revoked = FALSE AND expires_at > $4
	`

	var count int
	err := r.db.QueryRowContext(ctx, query, userID, clientID, tokenType, time.Now()).Scan(&count)
	return count, err
}

// DeleteExpired removes token rows whose expiry has passed, returning the
// number deleted. Called by the background sweeper; expired tokens already fail
// every lookup, so this is storage hygiene rather than a security boundary.
func (r *TokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM tokens WHERE expires_at < $1`

	result, err := r.db.ExecContext(ctx, query, time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
