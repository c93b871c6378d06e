// Package audit persists the authentication audit trail. Audit records are
// intentionally separate from application logs: application logs are ephemeral
// debug output, while the audit trail is an append-only record of who
// authenticated, from where, and whether it succeeded. The database is the
// source of truth; optional shippers mirror each entry to external
// destinations (file, webhook) for SIEM ingestion.
package audit

import (
	"context"
	"log/slog"

	"github.com/service-auth/service-auth/internal/db/models"
)

// Store is the persistence interface the recorder writes through, satisfied
// by repositories.AuditRepository.
type Store interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// Recorder writes audit entries. Recording is best-effort by contract: a
// failed audit write is logged and dropped rather than failing the
// authentication operation that produced it.
type Recorder struct {
	store    Store
	shippers []Shipper
	logger   *slog.Logger
}

// NewRecorder creates a Recorder. shippers may be empty.
func NewRecorder(store Store, shippers []Shipper, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:    store,
		shippers: shippers,
		logger:   logger,
	}
}

// Record persists an entry and mirrors it to the configured shippers.
func (r *Recorder) Record(ctx context.Context, entry *models.AuditLog) {
	if err := r.store.Create(ctx, entry); err != nil {
		r.logger.Error("audit write failed",
			"action", entry.Action,
			"client_id", entry.ClientID,
			"error", err,
		)
		return
	}

	for _, s := range r.shippers {
		if err := s.Ship(ctx, entry); err != nil {
			r.logger.Warn("audit shipper failed", "action", entry.Action, "error", err)
		}
	}
}

// Close releases shipper resources.
func (r *Recorder) Close() error {
	var lastErr error
	for _, s := range r.shippers {
		if err := s.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
