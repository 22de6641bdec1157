package fetcher

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/law-leads-crawler/internal/lead"
)

// Detector decides whether a plain fetch needs a browser render.
type Detector interface {
	ShouldPromote(page lead.Page) bool
}

// Promoting fetches with a fast fetcher and re-fetches with a rendering one
// when the detector flags the page. A failed render keeps the fast result.
type Promoting struct {
	fast     lead.Fetcher
	render   lead.Fetcher
	detector Detector
	logger   *zap.Logger
}

// NewPromoting constructs a Promoting fetcher.
func NewPromoting(fast, render lead.Fetcher, detector Detector, logger *zap.Logger) *Promoting {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Promoting{fast: fast, render: render, detector: detector, logger: logger.Named("promote")}
}

// Fetch implements lead.Fetcher.
func (p *Promoting) Fetch(ctx context.Context, url string) (lead.Page, error) {
	page, err := p.fast.Fetch(ctx, url)
	if err != nil {
		return page, err
	}
	if !p.detector.ShouldPromote(page) {
		return page, nil
	}
	p.logger.Debug("promoting to headless render", zap.String("url", url))
	rendered, err := p.render.Fetch(ctx, url)
	if err != nil {
		p.logger.Warn("headless render failed; keeping plain response", zap.String("url", url), zap.Error(err))
		return page, nil
	}
	return rendered, nil
}
