package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Maintainer is the part of the dispatcher the sweeper drives.
type Maintainer interface {
	RecoverStale(ctx context.Context, olderThan time.Duration) (int, error)
	Reschedule(ctx context.Context) (int, error)
	QueueDepth() int
}

// Sweeper periodically fails items stuck in generating (their worker died
// mid-pipeline), re-submits queued items the scheduler rejected, and
// reports the scheduler depth.
//
// State lives in the queue store, so recovery survives server restarts.
type Sweeper struct {
	m          Maintainer
	interval   time.Duration
	staleAfter time.Duration
	onDepth    func(int)
	logger     *zap.Logger
}

// NewSweeper constructs a sweeper. onDepth is optional (nil = no-op).
func NewSweeper(m Maintainer, interval, staleAfter time.Duration, onDepth func(int), logger *zap.Logger) *Sweeper {
	if onDepth == nil {
		onDepth = func(int) {}
	}
	return &Sweeper{m: m, interval: interval, staleAfter: staleAfter, onDepth: onDepth, logger: logger}
}

// Run ticks every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started",
		zap.Duration("interval", s.interval), zap.Duration("stale_after", s.staleAfter))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopping")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if n, err := s.m.RecoverStale(ctx, s.staleAfter); err != nil {
		s.logger.Error("stale recovery error", zap.Error(err))
	} else if n > 0 {
		s.logger.Warn("marked interrupted items as failed", zap.Int("count", n))
	}

	if n, err := s.m.Reschedule(ctx); err != nil {
		s.logger.Error("reschedule error", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("re-submitted unscheduled items", zap.Int("count", n))
	}

	s.onDepth(s.m.QueueDepth())
}
