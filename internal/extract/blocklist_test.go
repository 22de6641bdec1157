package extract

import "testing"

func TestDomainBlocklist(t *testing.T) {
	t.Run("exact match", func(t *testing.T) {
		bl := newDomainBlocklist([]string{"domain.com"})
		if bl == nil {
			t.Fatalf("expected blocklist to be created")
		}
		if !bl.IsBlocked("Domain.com") {
			t.Fatalf("expected domain.com to be blocked")
		}
		if bl.IsBlocked("mail.domain.com") {
			t.Fatalf("did not expect subdomains to match exact entry")
		}
	})

	t.Run("wildcard suffix", func(t *testing.T) {
		bl := newDomainBlocklist([]string{"*.sentry.io", ".wixpress.com"})
		cases := []struct {
			host    string
			blocked bool
		}{
			{"o123.ingest.sentry.io", true},
			{"sentry.io", true},
			{"sentry.wixpress.com", true},
			{"notsentry.io", false},
			{"smithlaw.com", false},
		}
		for _, tc := range cases {
			if got := bl.IsBlocked(tc.host); got != tc.blocked {
				t.Fatalf("host %q blocked=%v, want %v", tc.host, got, tc.blocked)
			}
		}
	})

	t.Run("first label wildcard", func(t *testing.T) {
		bl := newDomainBlocklist([]string{"example.*"})
		for _, host := range []string{"example.com", "example.org", "example.co.uk"} {
			if !bl.IsBlocked(host) {
				t.Fatalf("expected %s to be blocked", host)
			}
		}
		if bl.IsBlocked("myexample.com") || bl.IsBlocked("mail.example.com") {
			t.Fatalf("prefix pattern must only match the first label")
		}
	})

	t.Run("empty and nil", func(t *testing.T) {
		if bl := newDomainBlocklist([]string{" ", ""}); bl != nil {
			t.Fatalf("expected nil blocklist for blank patterns")
		}
		var bl *domainBlocklist
		if bl.IsBlocked("anything") {
			t.Fatalf("nil blocklist should never block")
		}
	})
}
