// Package memory holds in-process store implementations used for dry runs and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JakeFAU/law-leads-crawler/internal/lead"
)

type emailKey struct {
	firmID int64
	email  string
}

// Store keeps candidates, firms and emails in maps guarded by one mutex. It mirrors the
// compare-and-set and uniqueness rules of the Postgres schema.
type Store struct {
	mu         sync.Mutex
	now        func() time.Time
	candidates map[string]lead.Candidate
	firms      map[string]int64
	nextFirmID int64
	emails     map[emailKey]lead.ExtractedEmail
	nextEmail  int64
}

// NewStore constructs an empty Store. A nil clock uses time.Now.
func NewStore(clock lead.Clock) *Store {
	now := time.Now
	if clock != nil {
		now = clock.Now
	}
	return &Store{
		now:        func() time.Time { return now().UTC() },
		candidates: make(map[string]lead.Candidate),
		firms:      make(map[string]int64),
		emails:     make(map[emailKey]lead.ExtractedEmail),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// InsertCandidates stages candidates as pending, skipping ids that already exist.
func (s *Store) InsertCandidates(_ context.Context, candidates []lead.Candidate) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var inserted int64
	now := s.now()
	for _, c := range candidates {
		if c.ApolloID == "" {
			return inserted, fmt.Errorf("candidate without apollo_id")
		}
		if _, exists := s.candidates[c.ApolloID]; exists {
			continue
		}
		c.Status = lead.StatusPending
		c.FoundAt = now
		c.UpdatedAt = now
		c.ClaimedAt = nil
		c.ClaimedBy = ""
		c.LastError = ""
		c.Attempts = 0
		s.candidates[c.ApolloID] = c
		inserted++
	}
	return inserted, nil
}

// NextBatch returns candidates with the status whose id sorts after afterID.
func (s *Store) NextBatch(_ context.Context, afterID string, limit int, status lead.Status) ([]lead.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.candidates))
	for id, c := range s.candidates {
		if c.Status == status && id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]lead.Candidate, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyCandidate(s.candidates[id]))
	}
	return out, nil
}

// Get returns a copy of one candidate.
func (s *Store) Get(_ context.Context, apolloID string) (lead.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[apolloID]
	if !ok {
		return lead.Candidate{}, fmt.Errorf("%w: %s", lead.ErrNotFound, apolloID)
	}
	return copyCandidate(c), nil
}

// Claim moves a pending candidate to in_progress.
func (s *Store) Claim(_ context.Context, apolloID, workerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[apolloID]
	if !ok || c.Status != lead.StatusPending {
		return false, nil
	}
	now := s.now()
	c.Status = lead.StatusInProgress
	c.ClaimedAt = &now
	c.ClaimedBy = workerID
	c.Attempts++
	c.UpdatedAt = now
	s.candidates[apolloID] = c
	return true, nil
}

// Complete finishes a candidate owned by workerID.
func (s *Store) Complete(_ context.Context, apolloID, workerID string, emails []string) error {
	return s.finish(apolloID, workerID, func(c *lead.Candidate) {
		c.Status = lead.StatusCompleted
		c.LastError = ""
		if len(emails) > 0 {
			c.Emails = strings.Join(emails, ",")
		}
	})
}

// Fail marks a candidate owned by workerID as failed.
func (s *Store) Fail(_ context.Context, apolloID, workerID, errText string) error {
	return s.finish(apolloID, workerID, func(c *lead.Candidate) {
		c.Status = lead.StatusFailed
		c.LastError = errText
	})
}

func (s *Store) finish(apolloID, workerID string, apply func(*lead.Candidate)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[apolloID]
	if !ok || c.Status != lead.StatusInProgress || c.ClaimedBy != workerID {
		return fmt.Errorf("finish %s: %w", apolloID, lead.ErrClaimLost)
	}
	apply(&c)
	c.UpdatedAt = s.now()
	s.candidates[apolloID] = c
	return nil
}

// ResetStale returns in_progress candidates claimed more than olderThan ago to
// pending. A claim with no timestamp is always stale.
func (s *Store) ResetStale(_ context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-olderThan)
	var n int64
	for id, c := range s.candidates {
		if c.Status != lead.StatusInProgress {
			continue
		}
		if c.ClaimedAt != nil && !c.ClaimedAt.Before(cutoff) {
			continue
		}
		s.release(id, c)
		n++
	}
	return n, nil
}

// ResetFailed returns failed candidates to pending; with no ids every failed one.
func (s *Store) ResetFailed(_ context.Context, apolloIDs []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, c := range s.candidates {
		if c.Status != lead.StatusFailed {
			continue
		}
		if len(apolloIDs) > 0 && !slices.Contains(apolloIDs, id) {
			continue
		}
		s.release(id, c)
		n++
	}
	return n, nil
}

func (s *Store) release(id string, c lead.Candidate) {
	c.Status = lead.StatusPending
	c.ClaimedAt = nil
	c.ClaimedBy = ""
	c.UpdatedAt = s.now()
	s.candidates[id] = c
}

// CountByStatus reports candidate counts for every status.
func (s *Store) CountByStatus(context.Context) (lead.StatusCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(lead.StatusCounts, len(lead.Statuses))
	for _, st := range lead.Statuses {
		counts[st] = 0
	}
	for _, c := range s.candidates {
		counts[c.Status]++
	}
	return counts, nil
}

func copyCandidate(c lead.Candidate) lead.Candidate {
	if c.ClaimedAt != nil {
		t := *c.ClaimedAt
		c.ClaimedAt = &t
	}
	return c
}
