// Package worker implements the per-candidate pipeline: claim, crawl, resolve
// the firm, record emails, and write the terminal status.
package worker

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/law-leads-crawler/internal/lead"
	"github.com/JakeFAU/law-leads-crawler/internal/metrics"
	"github.com/JakeFAU/law-leads-crawler/internal/queue/memory"
)

const (
	defaultCandidateTimeout = 3 * time.Minute
	maxErrorText            = 1024
)

// Queue is the source of candidates.
type Queue interface {
	Dequeue(ctx context.Context) (lead.Candidate, error)
}

// Extractor crawls a website and yields the addresses found on it.
type Extractor interface {
	Extract(ctx context.Context, websiteURL string) (iter.Seq[lead.Hit], error)
}

// Config controls Worker behavior.
type Config struct {
	// CandidateTimeout bounds one candidate from claim to terminal status.
	CandidateTimeout time.Duration
}

// Result summarizes one processed candidate.
type Result struct {
	Outcome  string
	FirmID   int64
	Emails   []string
	Inserted int
	Err      error
}

// Worker consumes queue items and executes the lead pipeline.
type Worker struct {
	id        string
	queue     Queue
	leads     lead.StatusUpdater
	firms     lead.FirmResolver
	emails    lead.EmailRecorder
	extractor Extractor
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker. id is written to claimed_by and must be unique per
// running worker.
func New(
	id string,
	queue Queue,
	leads lead.StatusUpdater,
	firms lead.FirmResolver,
	emails lead.EmailRecorder,
	extractor Extractor,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if cfg.CandidateTimeout <= 0 {
		cfg.CandidateTimeout = defaultCandidateTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Worker{
		id:        id,
		queue:     queue,
		leads:     leads,
		firms:     firms,
		emails:    emails,
		extractor: extractor,
		cfg:       cfg,
		logger:    logger.With(zap.String("worker", id)),
	}
}

// ID returns the identity written to claimed_by.
func (w *Worker) ID() string {
	return w.id
}

// Run blocks, consuming queue items until the context finishes or the queue
// is closed.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, memory.ErrClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued lead", zap.String("apollo_id", item.ApolloID))
		w.Process(ctx, item)
	}
}

// Process runs the pipeline for one candidate. Once the claim succeeds the
// candidate is driven to a terminal status even if ctx is canceled, so a
// shutdown never strands it in_progress.
func (w *Worker) Process(ctx context.Context, c lead.Candidate) Result {
	logger := w.logger.With(zap.String("apollo_id", c.ApolloID))

	claimed, err := w.leads.Claim(ctx, c.ApolloID, w.id)
	if err != nil {
		logger.Error("claim failed", zap.Error(err))
		metrics.ObserveLead(metrics.OutcomeSkipped)
		return Result{Outcome: metrics.OutcomeSkipped, Err: err}
	}
	if !claimed {
		logger.Debug("lead already claimed")
		metrics.ObserveLead(metrics.OutcomeSkipped)
		return Result{Outcome: metrics.OutcomeSkipped}
	}

	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.CandidateTimeout)
	defer cancel()

	start := time.Now()
	res := w.crawl(runCtx, c, logger)
	if res.Err != nil {
		res.Outcome = metrics.OutcomeFailed
		if err := w.leads.Fail(runCtx, c.ApolloID, w.id, truncate(res.Err.Error())); err != nil {
			logger.Error("fail status update failed", zap.Error(err))
		}
		logger.Warn("lead failed", zap.Error(res.Err), zap.Duration("elapsed", time.Since(start)))
		metrics.ObserveLead(res.Outcome)
		return res
	}

	if err := w.leads.Complete(runCtx, c.ApolloID, w.id, res.Emails); err != nil {
		if errors.Is(err, lead.ErrClaimLost) {
			logger.Warn("claim lost before completion", zap.Error(err))
			res.Outcome = metrics.OutcomeSkipped
		} else {
			logger.Error("complete status update failed", zap.Error(err))
			res.Outcome = metrics.OutcomeFailed
			if ferr := w.leads.Fail(runCtx, c.ApolloID, w.id, truncate(err.Error())); ferr != nil {
				logger.Error("fail status update failed", zap.Error(ferr))
			}
		}
		res.Err = err
		metrics.ObserveLead(res.Outcome)
		return res
	}

	res.Outcome = metrics.OutcomeCompleted
	logger.Info("lead completed",
		zap.Int64("firm_id", res.FirmID),
		zap.Int("emails", len(res.Emails)),
		zap.Int("inserted", res.Inserted),
		zap.Duration("elapsed", time.Since(start)),
	)
	metrics.ObserveLead(res.Outcome)
	metrics.ObserveEmailsInserted(res.Inserted)
	return res
}

// crawl runs fetch, extract, resolve and record. Stages commit independently.
func (w *Worker) crawl(ctx context.Context, c lead.Candidate, logger *zap.Logger) Result {
	if c.Website == "" {
		return Result{Err: errors.New("candidate has no website")}
	}

	hitSeq, err := w.extractor.Extract(ctx, c.Website)
	if err != nil {
		return Result{Err: fmt.Errorf("extract %s: %w", c.Website, err)}
	}
	var hits []lead.Hit
	for hit := range hitSeq {
		hits = append(hits, hit)
	}
	if err := ctx.Err(); err != nil {
		return Result{Err: fmt.Errorf("crawl %s: %w", c.Website, err)}
	}
	logger.Debug("extraction finished", zap.Int("hits", len(hits)))

	firmID, err := w.firms.Resolve(ctx, c.Website)
	if err != nil {
		return Result{Err: fmt.Errorf("resolve firm: %w", err)}
	}
	res := Result{FirmID: firmID}
	if len(hits) == 0 {
		return res
	}

	inserted, err := w.emails.Record(ctx, firmID, hits)
	res.Inserted = inserted
	if err != nil {
		res.Err = fmt.Errorf("record emails: %w", err)
		return res
	}
	res.Emails = make([]string, 0, len(hits))
	for _, hit := range hits {
		res.Emails = append(res.Emails, hit.Email)
	}
	return res
}

func truncate(s string) string {
	if len(s) <= maxErrorText {
		return s
	}
	return strings.ToValidUTF8(s[:maxErrorText], "")
}
