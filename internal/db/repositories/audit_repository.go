// audit_repository.go implements AuditRepository, the append-only store for
// authentication events. There is no update or delete path.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/service-auth/service-auth/internal/db/models"
)

// AuditRepository handles audit log database operations.
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends a new audit log entry, assigning id and timestamp.
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now()

	query := `
		INSERT INTO audit_logs (id, user_id, client_id, action, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.ClientID,
		entry.Action,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	)

	return err
}

// ListByClient retrieves a client's audit entries, newest first.
func (r *AuditRepository) ListByClient(ctx context.Context, clientID string, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, user_id, client_id, action, ip_address, user_agent, created_at
		FROM audit_logs
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, clientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.AuditLog, 0)
	for rows.Next() {
		entry := &models.AuditLog{}
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.ClientID,
			&entry.Action,
			&entry.IPAddress,
			&entry.UserAgent,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
