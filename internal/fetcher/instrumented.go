// Package fetcher holds helpers shared by the page fetcher implementations.
package fetcher

import (
	"context"
	"time"

	"github.com/JakeFAU/law-leads-crawler/internal/lead"
	"github.com/JakeFAU/law-leads-crawler/internal/metrics"
)

// Instrumented records fetch counts and latency for the wrapped fetcher.
type Instrumented struct {
	name  string
	inner lead.Fetcher
}

// Instrument wraps inner so every Fetch is observed under name.
func Instrument(name string, inner lead.Fetcher) *Instrumented {
	metrics.Init()
	return &Instrumented{name: name, inner: inner}
}

// Fetch delegates to the wrapped fetcher.
func (f *Instrumented) Fetch(ctx context.Context, url string) (lead.Page, error) {
	start := time.Now()
	page, err := f.inner.Fetch(ctx, url)
	metrics.ObserveFetch(f.name, err == nil, time.Since(start))
	return page, err
}
