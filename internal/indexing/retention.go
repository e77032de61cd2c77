package indexing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Purger deletes records older than a number of days.
type Purger interface {
	DeleteOlderThan(ctx context.Context, index string, days int) error
}

// RetentionPolicy says which index to purge, how old records may get and when
// to purge (standard five-field cron syntax, e.g. "0 3 * * *").
type RetentionPolicy struct {
	Index    string
	Days     int
	Schedule string
}

// RetentionScheduler runs DeleteOlderThan on a cron schedule.
type RetentionScheduler struct {
	purger Purger
	policy RetentionPolicy
	logger *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewRetentionScheduler validates policy and creates a scheduler for it.
func NewRetentionScheduler(purger Purger, policy RetentionPolicy, logger *slog.Logger) (*RetentionScheduler, error) {
	if purger == nil {
		return nil, fmt.Errorf("purger is required")
	}
	if policy.Index == "" {
		return nil, fmt.Errorf("retention index is required")
	}
	if policy.Days <= 0 {
		return nil, fmt.Errorf("retention days must be positive")
	}
	if _, err := cron.ParseStandard(policy.Schedule); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", policy.Schedule, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetentionScheduler{
		purger: purger,
		policy: policy,
		logger: logger.With("component", "indexing.retention"),
		cron:   cron.New(),
	}, nil
}

// Run starts the schedule and blocks until ctx is done, then waits for a
// running purge to finish.
func (s *RetentionScheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if _, err := s.cron.AddFunc(s.policy.Schedule, func() { s.RunOnce(ctx) }); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("schedule retention purge: %w", err)
	}
	s.cron.Start()
	s.running = true
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "retention scheduler started",
		"index", s.policy.Index,
		"retention_days", s.policy.Days,
		"schedule", s.policy.Schedule,
	)

	<-ctx.Done()
	s.stop()
	return nil
}

// RunOnce purges immediately.
func (s *RetentionScheduler) RunOnce(ctx context.Context) {
	if err := s.purger.DeleteOlderThan(ctx, s.policy.Index, s.policy.Days); err != nil {
		s.logger.ErrorContext(ctx, "scheduled retention purge failed", "index", s.policy.Index, "error", err)
		return
	}
	s.logger.InfoContext(ctx, "scheduled retention purge completed", "index", s.policy.Index)
}

// IsRunning reports whether the schedule is active.
func (s *RetentionScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *RetentionScheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("retention scheduler stopped")
}
