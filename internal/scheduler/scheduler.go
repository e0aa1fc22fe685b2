package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"feed_syncer/internal/domain"
	"feed_syncer/internal/logctx"
	"feed_syncer/internal/metrics"
)

// Syncer defines the interface for a pass over every feed.
type Syncer interface {
	SyncAll(ctx context.Context) (*domain.SyncStats, error)
}

type Scheduler struct {
	syncer      Syncer
	interval    time.Duration
	tickTimeout time.Duration
	logger      *slog.Logger
}

func NewScheduler(syncer Syncer, interval, tickTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		syncer:      syncer,
		interval:    interval,
		tickTimeout: tickTimeout,
		logger:      logger.With("component", "scheduler"),
	}
}

// Start runs a tick immediately and then once per interval until ctx is
// cancelled. A tick that overruns the interval delays the next one; ticks
// never overlap.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "tick_timeout", s.tickTimeout)

	s.runTick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runTick(ctx)
		}
	}
}

func (s *Scheduler) runTick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	tickCtx := ctx
	if s.tickTimeout > 0 {
		var cancel context.CancelFunc
		tickCtx, cancel = context.WithTimeout(ctx, s.tickTimeout)
		defer cancel()
	}

	tickID := uuid.NewString()
	tickCtx = logctx.With(tickCtx, "tick_id", tickID)
	logger := s.logger.With("tick_id", tickID)
	startTime := time.Now()

	defer func() {
		metrics.TickDuration.Observe(time.Since(startTime).Seconds())
		if r := recover(); r != nil {
			logger.Error("tick panicked", "panic", r)
		}
	}()

	stats, err := s.syncer.SyncAll(tickCtx)
	if err != nil {
		logger.Error("tick failed", "error", err)
		return
	}

	logger.Info("tick completed",
		"feeds", stats.Feeds,
		"synced", stats.Synced,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"new", stats.New,
		"duration", time.Since(startTime),
	)
}
