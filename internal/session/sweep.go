// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tempo Contributors

package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/tempoverse/tempo/pkg/errutil"
)

// Sweeper defaults. The retention window and cadence are deliberate
// configuration, not constants baked into the lifecycle: the Controller
// itself never expires a session.
const (
	DefaultSweepRetention = 30 * time.Minute
	DefaultSweepInterval  = 5 * time.Minute
)

// Sweeper periodically removes sessions that never completed
// verification. It snapshot-iterates the store so a sweep never blocks
// unrelated session traffic, and it prunes expired durable rows through
// the repositories when they are configured.
type Sweeper struct {
	store         *Store
	issuer        *Issuer
	records       LoginRecordRepository
	verifications VerificationRecordRepository
	logger        *slog.Logger
	metrics       *Metrics
	retention     time.Duration
	interval      time.Duration
	now           func() time.Time
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweepRetention sets how long a pending or failing session may live.
func WithSweepRetention(d time.Duration) SweeperOption {
	return func(s *Sweeper) { s.retention = d }
}

// WithSweepInterval sets the sweep cadence.
func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) { s.interval = d }
}

// WithSweepLogger sets the sweeper logger.
func WithSweepLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) { s.logger = logger }
}

// WithSweepMetrics sets the sweeper metrics.
func WithSweepMetrics(m *Metrics) SweeperOption {
	return func(s *Sweeper) { s.metrics = m }
}

// WithSweepRepositories enables durable-row pruning during sweeps.
func WithSweepRepositories(records LoginRecordRepository, verifications VerificationRecordRepository) SweeperOption {
	return func(s *Sweeper) {
		s.records = records
		s.verifications = verifications
	}
}

// WithSweepClock overrides the time source.
func WithSweepClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) { s.now = now }
}

// NewSweeper creates a Sweeper over a store and issuer.
func NewSweeper(store *Store, issuer *Issuer, opts ...SweeperOption) (*Sweeper, error) {
	if store == nil {
		return nil, oops.Code("SWEEPER_INVALID_DEPS").Errorf("session store is required")
	}
	if issuer == nil {
		return nil, oops.Code("SWEEPER_INVALID_DEPS").Errorf("verification issuer is required")
	}

	s := &Sweeper{
		store:     store,
		issuer:    issuer,
		logger:    slog.Default(),
		retention: DefaultSweepRetention,
		interval:  DefaultSweepInterval,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	return s, nil
}

// Run sweeps on the configured cadence until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce removes pending-verification and failing sessions older than
// the retention window. Returns the number of sessions removed.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	cutoff := s.now().Add(-s.retention)
	removed := 0

	for _, sess := range s.store.Snapshot() {
		stale := sess.State == StatePendingVerification || sess.State == StateFailing
		if !stale || sess.CreatedAt.After(cutoff) {
			continue
		}
		s.store.Remove(sess.Token)
		s.issuer.Drop(sess.Token)
		removed++
	}

	if removed > 0 {
		s.metrics.SweptSessions.Add(float64(removed))
		s.metrics.ActiveSessions.Set(float64(s.store.Len()))
		s.logger.InfoContext(ctx, "swept stale sessions", "removed", removed)
	}

	if s.records != nil {
		if n, err := s.records.DeleteExpired(ctx); err != nil {
			errutil.LogError(s.logger, "pruning expired login records failed", err)
		} else if n > 0 {
			s.logger.DebugContext(ctx, "pruned expired login records", "count", n)
		}
	}
	if s.verifications != nil {
		if n, err := s.verifications.DeleteExpired(ctx); err != nil {
			errutil.LogError(s.logger, "pruning expired verification records failed", err)
		} else if n > 0 {
			s.logger.DebugContext(ctx, "pruned expired verification records", "count", n)
		}
	}

	return removed
}
