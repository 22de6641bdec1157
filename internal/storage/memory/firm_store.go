package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/JakeFAU/law-leads-crawler/internal/lead"
)

// Resolve returns the firm id for a website, creating it on first sight.
func (s *Store) Resolve(_ context.Context, websiteURL string) (int64, error) {
	normalized, err := lead.NormalizeWebsite(websiteURL)
	if err != nil {
		return 0, fmt.Errorf("resolve firm: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.firms[normalized]; ok {
		return id, nil
	}
	s.nextFirmID++
	s.firms[normalized] = s.nextFirmID
	return s.nextFirmID, nil
}

// Lookup returns the id of an existing firm.
func (s *Store) Lookup(_ context.Context, websiteURL string) (int64, error) {
	normalized, err := lead.NormalizeWebsite(websiteURL)
	if err != nil {
		return 0, fmt.Errorf("lookup firm: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.firms[normalized]
	if !ok {
		return 0, fmt.Errorf("%w: firm %s", lead.ErrNotFound, normalized)
	}
	return id, nil
}

// Record stores hits for a firm, ignoring addresses it already holds (case-insensitive).
func (s *Store) Record(_ context.Context, firmID int64, hits []lead.Hit) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, h := range hits {
		email := strings.ToLower(strings.TrimSpace(h.Email))
		if email == "" {
			continue
		}
		key := emailKey{firmID: firmID, email: email}
		if _, exists := s.emails[key]; exists {
			continue
		}
		s.nextEmail++
		s.emails[key] = lead.ExtractedEmail{
			ID:         s.nextEmail,
			FirmID:     firmID,
			Email:      email,
			SourcePage: h.SourcePage,
			FoundAt:    s.now(),
		}
		inserted++
	}
	return inserted, nil
}

// List returns a firm's addresses in insertion order.
func (s *Store) List(_ context.Context, firmID int64) ([]lead.ExtractedEmail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []lead.ExtractedEmail
	for key, e := range s.emails {
		if key.firmID == firmID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
