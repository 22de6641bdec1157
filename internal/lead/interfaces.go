package lead

import (
	"context"
	"time"
)

// CandidateReader pages through the staging table in apollo_id order.
type CandidateReader interface {
	NextBatch(ctx context.Context, afterID string, limit int, status Status) ([]Candidate, error)
}

// StatusUpdater performs the compare-and-set transitions of the processing lifecycle.
type StatusUpdater interface {
	Claim(ctx context.Context, apolloID, workerID string) (bool, error)
	Complete(ctx context.Context, apolloID, workerID string, emails []string) error
	Fail(ctx context.Context, apolloID, workerID, errText string) error
	ResetStale(ctx context.Context, olderThan time.Duration) (int64, error)
	ResetFailed(ctx context.Context, apolloIDs []string) (int64, error)
}

// LeadStore is the full staging-table contract used by the CLI and operator API.
type LeadStore interface {
	CandidateReader
	StatusUpdater
	Get(ctx context.Context, apolloID string) (Candidate, error)
	CountByStatus(ctx context.Context) (StatusCounts, error)
	InsertCandidates(ctx context.Context, candidates []Candidate) (int64, error)
	Ping(ctx context.Context) error
}

// FirmResolver maps a website to a stable firm id, creating the firm on first sight.
type FirmResolver interface {
	Resolve(ctx context.Context, websiteURL string) (int64, error)
}

// EmailRecorder persists hits for a firm and reports how many were new.
type EmailRecorder interface {
	Record(ctx context.Context, firmID int64, hits []Hit) (int, error)
}

// Fetcher retrieves a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces worker identities.
type IDGenerator interface {
	NewID() (string, error)
}
