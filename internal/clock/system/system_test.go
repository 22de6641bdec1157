package system

import (
	"testing"
	"time"

	"github.com/JakeFAU/law-leads-crawler/internal/lead"
)

var _ lead.Clock = (*Clock)(nil)

func TestNowIsUTCWallTime(t *testing.T) {
	t.Parallel()

	before := time.Now().Add(-time.Second)
	got := New().Now()
	after := time.Now().Add(time.Second)

	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", got.Location())
	}
	if got.Before(before) || got.After(after) {
		t.Fatalf("expected %v to be between %v and %v", got, before, after)
	}
}

// A stale-claim cutoff derived from Now must sort before a claim stamped now.
func TestCutoffBeforeFreshClaim(t *testing.T) {
	t.Parallel()

	clk := New()
	cutoff := clk.Now().Add(-15 * time.Minute)
	claimedAt := clk.Now()
	if !cutoff.Before(claimedAt) {
		t.Fatalf("cutoff %v should precede claim %v", cutoff, claimedAt)
	}
}
