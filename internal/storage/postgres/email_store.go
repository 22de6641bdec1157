package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JakeFAU/law-leads-crawler/internal/lead"
)

// EmailStore writes extracted addresses, relying on UNIQUE (firm_id, email) over a
// CITEXT column for case-insensitive dedup.
type EmailStore struct {
	pool Pool
}

// NewEmailStore wraps an existing pool.
func NewEmailStore(pool Pool) (*EmailStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &EmailStore{pool: pool}, nil
}

// Record inserts each hit independently and returns how many rows were new. A failed
// insert does not stop the remaining hits; all failures are joined into one StorageError.
func (s *EmailStore) Record(ctx context.Context, firmID int64, hits []lead.Hit) (int, error) {
	var (
		inserted int
		errs     []error
	)
	for _, h := range hits {
		email := strings.ToLower(strings.TrimSpace(h.Email))
		if email == "" {
			continue
		}
		tag, err := s.pool.Exec(ctx, `
INSERT INTO extracted_emails (firm_id, email, source_page)
VALUES ($1, $2, $3)
ON CONFLICT (firm_id, email) DO NOTHING`, firmID, email, nullString(h.SourcePage))
		if err != nil {
			errs = append(errs, fmt.Errorf("insert %s: %w", email, err))
			continue
		}
		inserted += int(tag.RowsAffected())
	}
	if len(errs) > 0 {
		return inserted, lead.NewStorageError("record emails", errors.Join(errs...))
	}
	return inserted, nil
}

// List returns the addresses recorded for a firm ordered by discovery time.
func (s *EmailStore) List(ctx context.Context, firmID int64) ([]lead.ExtractedEmail, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, firm_id, email, COALESCE(source_page, ''), found_at
FROM extracted_emails
WHERE firm_id = $1
ORDER BY found_at, id`, firmID)
	if err != nil {
		return nil, lead.NewStorageError("list emails", err)
	}
	defer rows.Close()

	var out []lead.ExtractedEmail
	for rows.Next() {
		var e lead.ExtractedEmail
		if err := rows.Scan(&e.ID, &e.FirmID, &e.Email, &e.SourcePage, &e.FoundAt); err != nil {
			return nil, lead.NewStorageError("list emails", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, lead.NewStorageError("list emails", err)
	}
	return out, nil
}
