package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/authsession/internal/devidp/store"
)

// HousekeepingService periodically removes expired login sessions so the
// in-memory store does not grow without bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the cleanup loop in the background until Stop is called.
// Calls after the first are no-ops.
func (s *HousekeepingService) Start() {
	s.startOnce.Do(func() {
		s.started = true
		go s.run()
		s.Logger.Info("housekeeping service started", "interval", s.Interval)
	})
}

// Stop ends the loop and waits for an in-progress cleanup to finish. It is
// safe to call more than once, and before Start.
func (s *HousekeepingService) Stop() {
	s.stopOnce.Do(func() {
		s.startOnce.Do(func() {})
		close(s.stopCh)
		if s.started {
			<-s.doneCh
		}
		s.Logger.Info("housekeeping service stopped")
	})
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup deletes expired sessions once and reports how many were removed.
func (s *HousekeepingService) Cleanup(ctx context.Context) int {
	n, err := s.Store.Sessions().DeleteExpiredSessions(ctx, s.Now())
	if err != nil {
		s.Logger.Error("failed to delete expired sessions", "error", err)
		return 0
	}
	s.Logger.Debug("housekeeping cleanup completed", "deleted_sessions", n)
	return n
}
