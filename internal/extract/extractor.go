// Package extract crawls a firm website and yields the contact addresses it finds.
package extract

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/law-leads-crawler/internal/lead"
)

// DefaultMaxPages bounds a crawl to the root page plus three ranked subpages.
const DefaultMaxPages = 4

// DefaultDisallowedDomains are image, CDN, tracking and placeholder hosts whose addresses
// show up in markup but never belong to the firm.
var DefaultDisallowedDomains = []string{
	"example.*", "test.*", "domain.com", "email.com", "yourdomain.com", "yoursite.com",
	"*.wixpress.com", "*.sentry.io", "*.sentry-next.wixpress.com", "*.cloudfront.net",
	"*.cloudinary.com", "*.imgix.net", "*.gstatic.com", "*.googleusercontent.com",
	"*.squarespace.com", "*.godaddy.com", "*.wordpress.com",
}

// Config tunes the crawl.
type Config struct {
	MaxPages          int
	Keywords          []string
	DisallowedDomains []string
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithMXValidator filters addresses through DNS deliverability checks.
func WithMXValidator(v *MXValidator) Option {
	return func(e *Extractor) { e.mx = v }
}

// Extractor fetches a site's root page and a few ranked internal pages and matches
// addresses in them.
type Extractor struct {
	fetcher  lead.Fetcher
	matcher  *Matcher
	mx       *MXValidator
	maxPages int
	keywords []string
	logger   *zap.Logger
}

// New constructs an Extractor.
func New(fetcher lead.Fetcher, cfg Config, logger *zap.Logger, opts ...Option) (*Extractor, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	keywords := cfg.Keywords
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	disallowed := cfg.DisallowedDomains
	if disallowed == nil {
		disallowed = DefaultDisallowedDomains
	}
	e := &Extractor{
		fetcher:  fetcher,
		matcher:  NewMatcher(disallowed),
		maxPages: maxPages,
		keywords: keywords,
		logger:   logger.Named("extract"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Extract fetches websiteURL and returns a lazy sequence of hits. The root page is
// fetched before Extract returns; a failure there is reported as a *lead.FetchError with
// an empty sequence. Subpages are fetched while the sequence is consumed, and their
// failures are logged and skipped. Each address is yielded once, with the first page it
// was seen on. Ranging again re-fetches the subpages.
func (e *Extractor) Extract(ctx context.Context, websiteURL string) (iter.Seq[lead.Hit], error) {
	root, err := lead.NormalizeWebsite(websiteURL)
	if err != nil {
		return emptyHits, &lead.FetchError{URL: websiteURL, Err: err}
	}
	page, err := e.fetch(ctx, root)
	if err != nil {
		return emptyHits, err
	}

	base, err := url.Parse(firstNonEmpty(page.URL, root))
	if err != nil {
		return emptyHits, &lead.FetchError{URL: root, Err: err}
	}
	rootDoc, err := parsePage(page)
	if err != nil {
		e.logger.Debug("root page has no content", zap.String("url", root), zap.Error(err))
		return emptyHits, nil
	}
	subpages := rankLinks(rootDoc, base, e.keywords)
	if limit := e.maxPages - 1; len(subpages) > limit {
		subpages = subpages[:limit]
	}
	siteHost := base.Hostname()

	return func(yield func(lead.Hit) bool) {
		seen := make(map[string]struct{})
		emit := func(doc *goquery.Document, source string) bool {
			for _, email := range e.matcher.pageEmails(doc, siteHost) {
				if _, dup := seen[email]; dup {
					continue
				}
				seen[email] = struct{}{}
				if e.mx != nil && !e.mx.Deliverable(ctx, domainOf(email)) {
					e.logger.Debug("dropping undeliverable address", zap.String("email", email))
					continue
				}
				if !yield(lead.Hit{Email: email, SourcePage: source}) {
					return false
				}
			}
			return true
		}

		if !emit(rootDoc, firstNonEmpty(page.URL, root)) {
			return
		}
		for _, link := range subpages {
			if ctx.Err() != nil {
				return
			}
			sub, err := e.fetch(ctx, link)
			if err != nil {
				e.logger.Info("skipping subpage", zap.String("url", link), zap.Error(err))
				continue
			}
			doc, err := parsePage(sub)
			if err != nil {
				e.logger.Debug("subpage has no content", zap.String("url", link), zap.Error(err))
				continue
			}
			if !emit(doc, firstNonEmpty(sub.URL, link)) {
				return
			}
		}
	}, nil
}

func (e *Extractor) fetch(ctx context.Context, target string) (lead.Page, error) {
	page, err := e.fetcher.Fetch(ctx, target)
	if err != nil {
		if errors.Is(err, lead.ErrFetch) {
			return lead.Page{}, err
		}
		return lead.Page{}, &lead.FetchError{URL: target, StatusCode: page.StatusCode, Err: err}
	}
	if page.StatusCode >= 400 {
		return lead.Page{}, &lead.FetchError{URL: target, StatusCode: page.StatusCode}
	}
	return page, nil
}

func parsePage(page lead.Page) (*goquery.Document, error) {
	if strings.TrimSpace(page.HTML) == "" {
		return nil, lead.ErrExtract
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", lead.ErrExtract, err)
	}
	return doc, nil
}

func emptyHits(func(lead.Hit) bool) {}

func domainOf(email string) string {
	_, domain, _ := strings.Cut(email, "@")
	return domain
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
