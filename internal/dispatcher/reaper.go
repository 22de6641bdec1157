package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/law-leads-crawler/internal/lead"
	"github.com/JakeFAU/law-leads-crawler/internal/metrics"
)

// Reaper periodically returns abandoned in_progress candidates to pending.
type Reaper struct {
	leads      lead.StatusUpdater
	staleAfter time.Duration
	interval   time.Duration
	logger     *zap.Logger
}

// NewReaper constructs a Reaper. A claim older than staleAfter is considered
// abandoned; staleAfter must exceed the per-candidate timeout. Claim age is
// judged by the store's clock, not this process's.
func NewReaper(
	leads lead.StatusUpdater,
	staleAfter time.Duration,
	interval time.Duration,
	logger *zap.Logger,
) *Reaper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Reaper{
		leads:      leads,
		staleAfter: staleAfter,
		interval:   interval,
		logger:     logger.Named("reaper"),
	}
}

// Run reaps once immediately and then every interval until ctx ends.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if _, err := r.ReapOnce(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("reset stale claims failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// ReapOnce resets claims older than staleAfter and reports how many moved.
func (r *Reaper) ReapOnce(ctx context.Context) (int64, error) {
	n, err := r.leads.ResetStale(ctx, r.staleAfter)
	if err != nil {
		return 0, fmt.Errorf("reset stale: %w", err)
	}
	if n > 0 {
		r.logger.Warn("reset stale claims", zap.Int64("count", n), zap.Duration("older_than", r.staleAfter))
	}
	metrics.ObserveStaleReset(n)
	return n, nil
}
