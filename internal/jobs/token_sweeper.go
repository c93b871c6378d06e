// Package jobs contains background workers that run on a schedule.
// The token sweeper deletes expired credential rows that no request path will
// ever read again. Jobs are idempotent: re-running after a crash produces the
// same result as a clean run.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/service-auth/service-auth/internal/safego"
	"github.com/service-auth/service-auth/internal/telemetry"
)

// ExpiredDeleter removes rows whose expiry has passed, returning how many were
// deleted. Satisfied by repositories.TokenRepository and
// repositories.VerificationRepository.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// TokenSweeper periodically deletes expired token and verification-token rows.
// Revoked-but-unexpired rows are kept: they back the replay checks until their
// expiry passes.
type TokenSweeper struct {
	tokens        ExpiredDeleter
	verifications ExpiredDeleter
	interval      time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

// NewTokenSweeper creates a sweeper. A zero interval defaults to 24 hours.
func NewTokenSweeper(tokens, verifications ExpiredDeleter, interval time.Duration) *TokenSweeper {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &TokenSweeper{
		tokens:        tokens,
		verifications: verifications,
		interval:      interval,
		stopCh:        make(chan struct{}),
	}
}

// Start begins the periodic sweep. The first sweep runs immediately so a
// long-stopped deployment catches up on restart rather than waiting a full
// interval.
func (s *TokenSweeper) Start(ctx context.Context) {
	slog.Info("starting token sweeper", "interval", s.interval)

	s.wg.Add(1)
	safego.Go(func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.sweep(ctx)

		for {
			select {
			case <-ticker.C:
				s.sweep(ctx)
			case <-s.stopCh:
				slog.Info("token sweeper stopped")
				return
			case <-ctx.Done():
				slog.Info("token sweeper context cancelled")
				return
			}
		}
	})
}

// Stop stops the sweeper and waits for an in-flight sweep to finish.
func (s *TokenSweeper) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// sweep runs one deletion cycle over both tables. A failure on one table does
// not skip the other.
func (s *TokenSweeper) sweep(ctx context.Context) {
	start := time.Now()

	tokensDeleted, err := s.tokens.DeleteExpired(ctx)
	if err != nil {
		telemetry.SweepErrorsTotal.Inc()
		slog.Error("token sweep failed", "table", "tokens", "error", err)
	} else {
		telemetry.SweptCredentialsTotal.WithLabelValues("token").Add(float64(tokensDeleted))
	}

	verificationsDeleted, err := s.verifications.DeleteExpired(ctx)
	if err != nil {
		telemetry.SweepErrorsTotal.Inc()
		slog.Error("token sweep failed", "table", "email_verification_tokens", "error", err)
	} else {
		telemetry.SweptCredentialsTotal.WithLabelValues("verification").Add(float64(verificationsDeleted))
	}

	slog.Info("token sweep finished",
		"tokens_deleted", tokensDeleted,
		"verifications_deleted", verificationsDeleted,
		"duration", time.Since(start),
	)
}
