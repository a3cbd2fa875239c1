// Package worker runs periodic background jobs next to the HTTP server.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/room-reservation/internal/service"
)

type sweepRunner interface {
	Sweep(ctx context.Context) (service.SweepResult, error)
}

// Sweeper calls the housekeeper on a fixed interval.
type Sweeper struct {
	runner   sweepRunner
	interval time.Duration
	log      *zap.Logger
}

func NewSweeper(runner sweepRunner, interval time.Duration, log *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{runner: runner, interval: interval, log: log}
}

// Start blocks until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	tctx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()
	if _, err := s.runner.Sweep(tctx); err != nil {
		s.log.Error("housekeeping sweep failed", zap.Error(err))
	}
}
