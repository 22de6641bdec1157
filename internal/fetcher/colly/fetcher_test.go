package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/law-leads-crawler/internal/lead"
)

func TestFetcherBuildCollector(t *testing.T) {
	t.Parallel()

	f := New(Config{UserAgent: "coverage-agent", RespectRobots: false, Timeout: time.Second})
	collector := f.buildCollector(time.Unix(0, 0), &fetchState{})
	if collector.UserAgent != "coverage-agent" {
		t.Fatalf("expected user agent override, got %q", collector.UserAgent)
	}
	if !collector.IgnoreRobotsTxt {
		t.Fatal("expected robots txt to be ignored")
	}
	if !collector.AllowURLRevisit {
		t.Fatal("expected clones to allow revisits")
	}

	strict := New(Config{RespectRobots: true})
	if strict.buildCollector(time.Unix(0, 0), &fetchState{}).IgnoreRobotsTxt {
		t.Fatal("expected robots txt to be honored")
	}
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{Headers: map[string]string{"X-Trace": "yes"}})
	state := &fetchState{}

	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, time.Unix(0, 0), state)
	if hooks.onRequest == nil || hooks.onResponse == nil || hooks.onError == nil {
		t.Fatal("expected hooks to be registered")
	}

	collyReq := &colly.Request{Headers: &http.Header{}}
	hooks.onRequest(collyReq)
	if collyReq.Headers.Get("X-Trace") != "yes" {
		t.Fatalf("expected header propagation, got %+v", collyReq.Headers)
	}

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusOK,
		Body:       []byte("<p>hi</p>"),
		Request: &colly.Request{
			URL: mustParseURL(t, "https://example.com/contact"),
		},
	})
	if state.page.StatusCode != http.StatusOK || state.page.HTML != "<p>hi</p>" {
		t.Fatalf("unexpected page: %+v", state.page)
	}
	if state.page.URL != "https://example.com/contact" {
		t.Fatalf("unexpected url %q", state.page.URL)
	}

	hooks.onError(&colly.Response{StatusCode: http.StatusForbidden}, errors.New("boom"))
	if state.err == nil || state.err.Error() != "boom" || state.statusCode != http.StatusForbidden {
		t.Fatalf("expected error state, got %+v", state)
	}

	hooks.onError(nil, errors.New("dial"))
	if state.err.Error() != "dial" {
		t.Fatalf("expected nil response to be tolerated, got %v", state.err)
	}
}

func TestCopyHeadersHandlesNil(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	collyReq := &colly.Request{Headers: &http.Header{}}
	f.copyHeaders(collyReq)
	if len(*collyReq.Headers) != 0 {
		t.Fatalf("expected no headers to be copied, got %+v", *collyReq.Headers)
	}
}

func TestFetchReturnsPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Trace") != "yes" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<a href="mailto:info@firm.test">mail</a>`))
	}))
	t.Cleanup(srv.Close)

	f := New(Config{Timeout: 5 * time.Second, Headers: map[string]string{"X-Trace": "yes"}})
	page, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if page.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", page.StatusCode)
	}
	if page.HTML != `<a href="mailto:info@firm.test">mail</a>` {
		t.Fatalf("unexpected body %q", page.HTML)
	}

	// a second visit of the same URL must not be deduplicated by colly
	if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("second Fetch returned error: %v", err)
	}
}

func TestFetchNotFoundIsFetchError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	f := New(Config{Timeout: 5 * time.Second})
	_, err := f.Fetch(context.Background(), srv.URL+"/missing")
	if !errors.Is(err, lead.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	var fetchErr *lead.FetchError
	if !errors.As(err, &fetchErr) || fetchErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 FetchError, got %#v", err)
	}
}

func TestFetchHonorsContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	f := New(Config{Timeout: 10 * time.Second})
	_, err := f.Fetch(ctx, srv.URL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if !errors.Is(err, lead.ErrFetch) {
		t.Fatalf("expected ErrFetch classification, got %v", err)
	}
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse url %q: %v", raw, err)
	}
	return u
}

type stubHooks struct {
	onRequest  colly.RequestCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnRequest(cb colly.RequestCallback) {
	s.onRequest = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
