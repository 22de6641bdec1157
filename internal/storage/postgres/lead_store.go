package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JakeFAU/law-leads-crawler/internal/lead"
)

const candidateColumns = `apollo_id, name, website, city, state, country, full_address, phone_number,
	gbp_link, gbp_review_count, gbp_category, county, estimated_num_employees, emails,
	processing_status, found_at, claimed_at, claimed_by, last_error, attempts, updated_at`

// LeadStore persists candidate leads and drives their processing lifecycle. Every
// transition is a single conditional UPDATE, so concurrent workers race in the database
// rather than in process.
type LeadStore struct {
	pool Pool
}

// NewLeadStore wraps an existing pool.
func NewLeadStore(pool Pool) (*LeadStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &LeadStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *LeadStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping verifies the database is reachable.
func (s *LeadStore) Ping(ctx context.Context) error {
	return lead.NewStorageError("ping", s.pool.Ping(ctx))
}

// NextBatch returns up to limit candidates with the given status whose apollo_id sorts
// after afterID.
func (s *LeadStore) NextBatch(ctx context.Context, afterID string, limit int, status lead.Status) ([]lead.Candidate, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+candidateColumns+`
FROM law_leads_final
WHERE processing_status = $1 AND apollo_id > $2
ORDER BY apollo_id
LIMIT $3`, string(status), afterID, limit)
	if err != nil {
		return nil, lead.NewStorageError("next batch", err)
	}
	defer rows.Close()

	out := make([]lead.Candidate, 0, limit)
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, lead.NewStorageError("next batch", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, lead.NewStorageError("next batch", err)
	}
	return out, nil
}

// Get loads one candidate.
func (s *LeadStore) Get(ctx context.Context, apolloID string) (lead.Candidate, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+candidateColumns+` FROM law_leads_final WHERE apollo_id = $1`, apolloID)
	c, err := scanCandidate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return lead.Candidate{}, fmt.Errorf("%w: %s", lead.ErrNotFound, apolloID)
	}
	if err != nil {
		return lead.Candidate{}, lead.NewStorageError("get lead", err)
	}
	return c, nil
}

// Claim moves a pending candidate to in_progress on behalf of workerID. It reports false
// when another worker won the race or the candidate is no longer pending.
func (s *LeadStore) Claim(ctx context.Context, apolloID, workerID string) (bool, error) {
	var claimed string
	err := s.pool.QueryRow(ctx, `
UPDATE law_leads_final
SET processing_status = 'in_progress', claimed_at = now(), claimed_by = $2,
	attempts = attempts + 1, updated_at = now()
WHERE apollo_id = $1 AND processing_status = 'pending'
RETURNING apollo_id`, apolloID, workerID).Scan(&claimed)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, lead.NewStorageError("claim lead", err)
	}
	return true, nil
}

// Complete marks a claimed candidate as completed. Discovered addresses are written to
// the staging emails column when there are any; otherwise the column is left as is.
func (s *LeadStore) Complete(ctx context.Context, apolloID, workerID string, emails []string) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE law_leads_final
SET processing_status = 'completed', emails = COALESCE(NULLIF($3, ''), emails),
	last_error = NULL, updated_at = now()
WHERE apollo_id = $1 AND processing_status = 'in_progress' AND claimed_by = $2`,
		apolloID, workerID, strings.Join(emails, ","))
	if err != nil {
		return lead.NewStorageError("complete lead", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete %s: %w", apolloID, lead.ErrClaimLost)
	}
	return nil
}

// Fail marks a claimed candidate as failed and records the reason.
func (s *LeadStore) Fail(ctx context.Context, apolloID, workerID, errText string) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE law_leads_final
SET processing_status = 'failed', last_error = $3, updated_at = now()
WHERE apollo_id = $1 AND processing_status = 'in_progress' AND claimed_by = $2`,
		apolloID, workerID, errText)
	if err != nil {
		return lead.NewStorageError("fail lead", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("fail %s: %w", apolloID, lead.ErrClaimLost)
	}
	return nil
}

// ResetStale returns in_progress candidates claimed more than olderThan ago to
// pending. The age is measured against the database clock, the same clock that
// stamped claimed_at. A claim with no timestamp is always stale.
func (s *LeadStore) ResetStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
UPDATE law_leads_final
SET processing_status = 'pending', claimed_at = NULL, claimed_by = NULL, updated_at = now()
WHERE processing_status = 'in_progress'
  AND (claimed_at < now() - make_interval(secs => $1) OR claimed_at IS NULL)`, olderThan.Seconds())
	if err != nil {
		return 0, lead.NewStorageError("reset stale", err)
	}
	return tag.RowsAffected(), nil
}

// ResetFailed moves failed candidates back to pending. With no ids every failed candidate
// is retried.
func (s *LeadStore) ResetFailed(ctx context.Context, apolloIDs []string) (int64, error) {
	const base = `
UPDATE law_leads_final
SET processing_status = 'pending', claimed_at = NULL, claimed_by = NULL, updated_at = now()
WHERE processing_status = 'failed'`
	var (
		tag pgconn.CommandTag
		err error
	)
	if len(apolloIDs) == 0 {
		tag, err = s.pool.Exec(ctx, base)
	} else {
		tag, err = s.pool.Exec(ctx, base+` AND apollo_id = ANY($1)`, apolloIDs)
	}
	if err != nil {
		return 0, lead.NewStorageError("reset failed", err)
	}
	return tag.RowsAffected(), nil
}

// CountByStatus reports how many candidates hold each status. Statuses with no rows are
// present with a zero count.
func (s *LeadStore) CountByStatus(ctx context.Context) (lead.StatusCounts, error) {
	rows, err := s.pool.Query(ctx, `SELECT processing_status, count(*) FROM law_leads_final GROUP BY processing_status`)
	if err != nil {
		return nil, lead.NewStorageError("count by status", err)
	}
	defer rows.Close()

	counts := make(lead.StatusCounts, len(lead.Statuses))
	for _, st := range lead.Statuses {
		counts[st] = 0
	}
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, lead.NewStorageError("count by status", err)
		}
		counts[lead.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, lead.NewStorageError("count by status", err)
	}
	return counts, nil
}

// InsertCandidates stages new candidates as pending. Rows whose apollo_id already exists
// are left untouched. It returns the number of rows actually inserted.
func (s *LeadStore) InsertCandidates(ctx context.Context, candidates []lead.Candidate) (inserted int64, err error) {
	if len(candidates) == 0 {
		return 0, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, lead.NewStorageError("insert candidates", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for _, c := range candidates {
		tag, execErr := tx.Exec(ctx, `
INSERT INTO law_leads_final (
	apollo_id, name, website, city, state, country, full_address, phone_number,
	gbp_link, gbp_review_count, gbp_category, county, estimated_num_employees, emails
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (apollo_id) DO NOTHING`,
			c.ApolloID,
			nullString(c.Name),
			nullString(c.Website),
			nullString(c.City),
			nullString(c.State),
			nullString(c.Country),
			nullString(c.FullAddress),
			nullString(c.PhoneNumber),
			nullString(c.GBPLink),
			nullString(c.GBPReviewCount),
			nullString(c.GBPCategory),
			nullString(c.County),
			nullString(c.EstimatedNumEmployees),
			nullString(c.Emails),
		)
		if execErr != nil {
			return 0, lead.NewStorageError("insert candidate "+c.ApolloID, execErr)
		}
		inserted += tag.RowsAffected()
	}
	if err = tx.Commit(ctx); err != nil {
		return 0, lead.NewStorageError("insert candidates", err)
	}
	return inserted, nil
}

func scanCandidate(row scanner) (lead.Candidate, error) {
	var (
		c                                             lead.Candidate
		name, website, city, state, country, address  pgtype.Text
		phone, gbpLink, gbpReviews, gbpCategory       pgtype.Text
		county, employees, emails, claimedBy, lastErr pgtype.Text
		status                                        string
		claimedAt                                     pgtype.Timestamptz
	)
	err := row.Scan(
		&c.ApolloID, &name, &website, &city, &state, &country, &address, &phone,
		&gbpLink, &gbpReviews, &gbpCategory, &county, &employees, &emails,
		&status, &c.FoundAt, &claimedAt, &claimedBy, &lastErr, &c.Attempts, &c.UpdatedAt,
	)
	if err != nil {
		return lead.Candidate{}, err
	}
	c.Name = name.String
	c.Website = website.String
	c.City = city.String
	c.State = state.String
	c.Country = country.String
	c.FullAddress = address.String
	c.PhoneNumber = phone.String
	c.GBPLink = gbpLink.String
	c.GBPReviewCount = gbpReviews.String
	c.GBPCategory = gbpCategory.String
	c.County = county.String
	c.EstimatedNumEmployees = employees.String
	c.Emails = emails.String
	c.Status = lead.Status(status)
	c.ClaimedBy = claimedBy.String
	c.LastError = lastErr.String
	if claimedAt.Valid {
		t := claimedAt.Time
		c.ClaimedAt = &t
	}
	return c, nil
}
