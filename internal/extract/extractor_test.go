package extract

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/law-leads-crawler/internal/lead"
)

type fakeFetcher struct {
	pages map[string]lead.Page
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (lead.Page, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return lead.Page{}, err
	}
	page, ok := f.pages[url]
	if !ok {
		return lead.Page{URL: url, StatusCode: 404}, nil
	}
	if page.URL == "" {
		page.URL = url
	}
	if page.StatusCode == 0 {
		page.StatusCode = 200
	}
	return page, nil
}

func collectHits(t *testing.T, e *Extractor, site string) []lead.Hit {
	t.Helper()
	seq, err := e.Extract(context.Background(), site)
	require.NoError(t, err)
	var hits []lead.Hit
	for h := range seq {
		hits = append(hits, h)
	}
	return hits
}

func TestExtractRootAndRankedSubpages(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]lead.Page{
		"https://smithlaw.com": {HTML: `<html><body>
			<a href="/blog/post-1">Blog</a>
			<a href="/about">About Us</a>
			<a href="/contact">Contact</a>
			<a href="/attorneys/jane-partner">Jane, Partner</a>
			<a href="https://facebook.com/smithlaw">Facebook team</a>
			<a href="mailto:Info@SmithLaw.com?subject=Hi">Email us</a>
		</body></html>`},
		"https://smithlaw.com/attorneys/jane-partner": {HTML: `<p>jane@smithlaw.com</p><p>info@smithlaw.com</p>`},
		"https://smithlaw.com/about":                  {HTML: `<div>INFO@smithlaw.com</div><div>bob [at] smithlaw [dot] com</div>`},
	}}
	e, err := New(fetcher, Config{MaxPages: 3}, zap.NewNop())
	require.NoError(t, err)

	hits := collectHits(t, e, "https://SmithLaw.com/")
	assert.Equal(t, []lead.Hit{
		{Email: "info@smithlaw.com", SourcePage: "https://smithlaw.com"},
		{Email: "jane@smithlaw.com", SourcePage: "https://smithlaw.com/attorneys/jane-partner"},
		{Email: "bob@smithlaw.com", SourcePage: "https://smithlaw.com/about"},
	}, hits)
	assert.Equal(t, []string{
		"https://smithlaw.com",
		"https://smithlaw.com/attorneys/jane-partner",
		"https://smithlaw.com/about",
	}, fetcher.calls)
}

func TestExtractExampleSiteContactPage(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]lead.Page{
		"https://example.com":         {HTML: `<a href="/contact">Contact</a>`},
		"https://example.com/contact": {HTML: `<table><tr><td>info@example.com</td><td>Call</td></tr></table>`},
	}}
	e, err := New(fetcher, Config{}, nil)
	require.NoError(t, err)

	hits := collectHits(t, e, "https://Example.com/")
	assert.Equal(t, []lead.Hit{{Email: "info@example.com", SourcePage: "https://example.com/contact"}}, hits)
}

func TestExtractRootFetchFailure(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{errs: map[string]error{"https://down.law": errors.New("dial tcp: no such host")}}
	e, err := New(fetcher, Config{}, nil)
	require.NoError(t, err)

	seq, err := e.Extract(context.Background(), "down.law")
	require.Error(t, err)
	assert.ErrorIs(t, err, lead.ErrFetch)
	var fe *lead.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "https://down.law", fe.URL)

	count := 0
	for range seq {
		count++
	}
	assert.Zero(t, count)
}

func TestExtractRootHTTPError(t *testing.T) {
	t.Parallel()

	e, err := New(&fakeFetcher{}, Config{}, nil)
	require.NoError(t, err)

	_, err = e.Extract(context.Background(), "https://gone.law")
	var fe *lead.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 404, fe.StatusCode)
}

func TestExtractSkipsFailedSubpages(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		pages: map[string]lead.Page{
			"https://firm.law":         {HTML: `<a href="/team">Team</a><a href="/contact">Contact</a>`},
			"https://firm.law/contact": {HTML: `office@firm.law`},
		},
		errs: map[string]error{"https://firm.law/team": &lead.FetchError{URL: "https://firm.law/team", StatusCode: 500}},
	}
	e, err := New(fetcher, Config{}, nil)
	require.NoError(t, err)

	hits := collectHits(t, e, "https://firm.law")
	assert.Equal(t, []lead.Hit{{Email: "office@firm.law", SourcePage: "https://firm.law/contact"}}, hits)
}

func TestExtractStopsWhenConsumerBreaks(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]lead.Page{
		"https://firm.law":      {HTML: `<p>a@firm.law</p><a href="/team">Team</a>`},
		"https://firm.law/team": {HTML: `<p>b@firm.law</p>`},
	}}
	e, err := New(fetcher, Config{}, nil)
	require.NoError(t, err)

	seq, err := e.Extract(context.Background(), "https://firm.law")
	require.NoError(t, err)
	for range seq {
		break
	}
	assert.Equal(t, []string{"https://firm.law"}, fetcher.calls)
}

func TestExtractEmptyRootIsZeroResults(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]lead.Page{"https://blank.law": {HTML: "   "}}}
	e, err := New(fetcher, Config{}, nil)
	require.NoError(t, err)

	assert.Empty(t, collectHits(t, e, "https://blank.law"))
}

func TestExtractCloudflareProtectedAddress(t *testing.T) {
	t.Parallel()

	html := fmt.Sprintf(`<a href="/cdn-cgi/l/email-protection#%s">[email&#160;protected]</a>
		<span class="__cf_email__" data-cfemail="%s">[email protected]</span>`,
		cloudflareEncode(0x21, "intake@firm.law"), cloudflareEncode(0x7f, "partner@firm.law"))
	fetcher := &fakeFetcher{pages: map[string]lead.Page{"https://firm.law": {HTML: html}}}
	e, err := New(fetcher, Config{}, nil)
	require.NoError(t, err)

	hits := collectHits(t, e, "https://firm.law")
	require.Len(t, hits, 2)
	assert.Equal(t, "intake@firm.law", hits[0].Email)
	assert.Equal(t, "partner@firm.law", hits[1].Email)
}

func TestExtractWithMXValidator(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{
		mx: map[string][]*net.MX{"firm.law": {{Host: "mx.firm.law.", Pref: 10}}},
	}
	fetcher := &fakeFetcher{pages: map[string]lead.Page{
		"https://firm.law": {HTML: `<p>a@firm.law</p><p>b@nowhere-firm.law</p>`},
	}}
	e, err := New(fetcher, Config{}, nil, WithMXValidator(NewMXValidator(resolver, 0)))
	require.NoError(t, err)

	hits := collectHits(t, e, "https://firm.law")
	assert.Equal(t, []lead.Hit{{Email: "a@firm.law", SourcePage: "https://firm.law"}}, hits)
}

func TestNewRequiresFetcher(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{}, nil)
	require.Error(t, err)
}
