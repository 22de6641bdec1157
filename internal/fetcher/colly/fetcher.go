// Package collyfetcher implements lead.Fetcher over plain HTTP using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/law-leads-crawler/internal/lead"
)

const defaultTimeout = 15 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	Headers       map[string]string
}

// Fetcher implements lead.Fetcher using the Colly collector. It does not run
// JavaScript, so sites that render contact details client side yield less.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// fetchState collects what the hooks observe during a single visit.
type fetchState struct {
	page       lead.Page
	statusCode int
	err        error
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(colly.Async(false))
	// Clones share the visited store; every Fetch is an independent request.
	c.AllowURLRevisit = true
	c.WithTransport(newHTTPTransport())

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET using Colly.
func (f *Fetcher) Fetch(ctx context.Context, url string) (lead.Page, error) {
	state := &fetchState{}
	start := time.Now()
	collector := f.buildCollector(start, state)

	if status, err := f.runCollector(ctx, collector, url, state); err != nil {
		return lead.Page{}, &lead.FetchError{URL: url, StatusCode: status, Err: err}
	}
	if state.page.StatusCode >= http.StatusBadRequest {
		return lead.Page{}, &lead.FetchError{
			URL:        url,
			StatusCode: state.page.StatusCode,
			Err:        fmt.Errorf("unexpected status %d", state.page.StatusCode),
		}
	}
	if state.page.URL == "" {
		state.page.URL = url
	}
	return state.page, nil
}

func (f *Fetcher) buildCollector(start time.Time, state *fetchState) *colly.Collector {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	collector.SetRequestTimeout(timeout)

	f.configureCollectorHooks(collector, start, state)
	return collector
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, start time.Time, state *fetchState) {
	hooks.OnRequest(func(r *colly.Request) {
		f.copyHeaders(r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		state.page = lead.Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			HTML:       string(r.Body),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil {
			state.statusCode = r.StatusCode
		}
		state.err = err
	})
}

// runCollector visits url and returns the HTTP status observed on failure.
// The collector goroutine owns state until it signals done.
func (f *Fetcher) runCollector(
	ctx context.Context,
	collector *colly.Collector,
	url string,
	state *fetchState,
) (int, error) {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return state.statusCode, fmt.Errorf("colly visit failed: %w", err)
		}
		if state.err != nil {
			return state.statusCode, fmt.Errorf("colly response failed: %w", state.err)
		}
		return 0, nil
	}
}

func (f *Fetcher) copyHeaders(r *colly.Request) {
	for key, value := range f.cfg.Headers {
		r.Headers.Set(key, value)
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
