package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/law-leads-crawler/internal/lead"
)

const defaultPollInterval = 30 * time.Second

// Enqueuer accepts candidates for processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, c lead.Candidate) error
}

// FeederConfig tunes the pending scan.
type FeederConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// Once stops after a single pass instead of polling.
	Once bool
}

// Feeder scans pending candidates and pushes them onto the queue.
type Feeder struct {
	reader lead.CandidateReader
	out    Enqueuer
	cfg    FeederConfig
	logger *zap.Logger
}

// NewFeeder constructs a Feeder.
func NewFeeder(reader lead.CandidateReader, out Enqueuer, cfg FeederConfig, logger *zap.Logger) *Feeder {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feeder{reader: reader, out: out, cfg: cfg, logger: logger.Named("feeder")}
}

// Run feeds passes until ctx ends, or after one pass when Once is set. It
// returns nil on cancellation.
func (f *Feeder) Run(ctx context.Context) error {
	var previous map[string]struct{}
	for {
		current, err := f.pass(ctx, previous)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if f.cfg.Once {
			return nil
		}
		f.logger.Debug("pass finished", zap.Int("enqueued", len(current)))
		previous = current

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(f.cfg.PollInterval):
		}
	}
}

// pass enqueues every pending candidate not sent in the previous pass. Those
// may still be buffered; if they were claimed they are no longer pending and
// would not be scanned anyway.
func (f *Feeder) pass(ctx context.Context, previous map[string]struct{}) (map[string]struct{}, error) {
	sent := make(map[string]struct{})
	for c, err := range lead.Scan(ctx, f.reader, lead.StatusPending, f.cfg.BatchSize) {
		if err != nil {
			return sent, fmt.Errorf("scan pending: %w", err)
		}
		if _, ok := previous[c.ApolloID]; ok {
			continue
		}
		if err := f.out.Enqueue(ctx, c); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return sent, err
			}
			return sent, fmt.Errorf("enqueue %s: %w", c.ApolloID, err)
		}
		sent[c.ApolloID] = struct{}{}
	}
	return sent, nil
}
