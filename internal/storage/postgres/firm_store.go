package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/law-leads-crawler/internal/lead"
)

// resolveAttempts bounds the insert-then-select loop when a firm row is deleted between
// the two statements.
const resolveAttempts = 3

// FirmStore resolves websites to law_firms rows.
type FirmStore struct {
	pool Pool
}

// NewFirmStore wraps an existing pool.
func NewFirmStore(pool Pool) (*FirmStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &FirmStore{pool: pool}, nil
}

// Resolve returns the id of the firm owning websiteURL, inserting it when absent.
// Concurrent callers with equivalent URLs receive the same id.
func (s *FirmStore) Resolve(ctx context.Context, websiteURL string) (int64, error) {
	normalized, err := lead.NormalizeWebsite(websiteURL)
	if err != nil {
		return 0, fmt.Errorf("resolve firm: %w", err)
	}

	for range resolveAttempts {
		var id int64
		err := s.pool.QueryRow(ctx, `
INSERT INTO law_firms (website_url) VALUES ($1)
ON CONFLICT (website_url) DO NOTHING
RETURNING id`, normalized).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return 0, lead.NewStorageError("insert firm", err)
		}

		err = s.pool.QueryRow(ctx, `SELECT id FROM law_firms WHERE website_url = $1`, normalized).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return 0, lead.NewStorageError("select firm", err)
		}
	}
	return 0, lead.NewStorageError("resolve firm", fmt.Errorf("%s not resolved after %d attempts", normalized, resolveAttempts))
}

// Lookup returns the id of an existing firm without creating one.
func (s *FirmStore) Lookup(ctx context.Context, websiteURL string) (int64, error) {
	normalized, err := lead.NormalizeWebsite(websiteURL)
	if err != nil {
		return 0, fmt.Errorf("lookup firm: %w", err)
	}
	var id int64
	err = s.pool.QueryRow(ctx, `SELECT id FROM law_firms WHERE website_url = $1`, normalized).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: firm %s", lead.ErrNotFound, normalized)
	}
	if err != nil {
		return 0, lead.NewStorageError("lookup firm", err)
	}
	return id, nil
}
