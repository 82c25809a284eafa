package aggregator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Updater runs one update cycle.
type Updater interface {
	Update(ctx context.Context) error
}

// Scheduler drives an Updater on a fixed interval, plus one run shortly after
// start.
type Scheduler struct {
	updater      Updater
	interval     time.Duration
	initialDelay time.Duration
	logger       *zap.Logger
}

// NewScheduler creates a Scheduler. Non-positive durations fall back to
// five minutes and ten seconds.
func NewScheduler(u Updater, interval, initialDelay time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if initialDelay <= 0 {
		initialDelay = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		updater:      u,
		interval:     interval,
		initialDelay: initialDelay,
		logger:       logger.Named("scheduler"),
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started",
		zap.Duration("interval", s.interval), zap.Duration("initialDelay", s.initialDelay))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	initial := time.NewTimer(s.initialDelay)
	defer initial.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-initial.C:
			s.run(ctx)
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	err := s.updater.Update(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrCycleInProgress):
	case ctx.Err() != nil:
	default:
		s.logger.Debug("scheduled update failed", zap.Error(err))
	}
}
