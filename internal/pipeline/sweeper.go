package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Sweeper reclaims items left in PROCESSING by crashed invocations. Without
// it a crash mid-transfer would strand an item forever.
type Sweeper struct {
	queue     QueueStore
	threshold time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewSweeper creates a Sweeper that reclaims items stuck longer than
// threshold.
func NewSweeper(queue QueueStore, threshold time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		queue:     queue,
		threshold: threshold,
		logger:    logger,
		now:       time.Now,
	}
}

// Run returns stale PROCESSING items to PENDING and reports how many were
// reclaimed.
func (s *Sweeper) Run(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.threshold)

	reclaimed, err := s.queue.ReclaimStuck(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stuck items: %w", err)
	}

	if reclaimed > 0 {
		s.logger.Info("Stuck items reclaimed",
			slog.Int64("count", reclaimed),
			slog.Duration("threshold", s.threshold),
		)
	}

	return reclaimed, nil
}
