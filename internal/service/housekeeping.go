// Package service holds background workers that support the session
// authority without being part of its request path.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/quollsec/sessiond/internal/store"
	"github.com/quollsec/sessiond/pkg/clockx"
)

// Retired signing keys are kept around for this long so outstanding tokens
// signed by them stay verifiable across a restart.
const retiredKeyRetention = 30 * 24 * time.Hour

// HousekeepingService periodically deletes expired session records and old
// retired signing keys to prevent unbounded database growth. Revoked but
// unexpired sessions are deliberately kept: their records are what makes
// replay detection work.
type HousekeepingService struct {
	Store    store.Store
	Clock    clockx.Clock
	Logger   *slog.Logger
	Interval time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(st store.Store, clock clockx.Clock, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Clock:    clock,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// This is non-blocking and should be called after the database is ready.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

// run is the main background worker loop.
func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup performs the actual deletion of expired records.
// Each deletion is independent; a failure in one won't stop the others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	now := s.Clock.Now()
	s.Logger.Debug("starting housekeeping cleanup")

	if err := s.Store.Sessions().DeleteExpired(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired sessions", "error", err)
	}

	if err := s.Store.SigningKeys().DeleteRetiredBefore(ctx, now.Add(-retiredKeyRetention)); err != nil {
		s.Logger.Error("failed to delete retired signing keys", "error", err)
	}

	s.Logger.Debug("housekeeping cleanup completed")
}
