package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paulino-Cristovao/webscrap/internal/crawler"
	"github.com/Paulino-Cristovao/webscrap/internal/politeness"
)

func newTestFetcher(maxBytes int64, maxRetries int) *Fetcher {
	guard := politeness.NewGuard(politeness.Config{MaxBytes: maxBytes}, nil, nil)
	f := New(Config{
		UserAgent:      "webscrap-test",
		Timeout:        5 * time.Second,
		MaxRetries:     maxRetries,
		BackoffInitial: time.Millisecond,
		BackoffMax:     2 * time.Millisecond,
	}, guard, nil)
	f.sleep = func(context.Context, time.Duration) {}
	return f
}

func TestFetchHTML(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "webscrap-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write([]byte("<html><title>Hi</title><body>hello</body></html>"))
	}))
	defer srv.Close()

	page, err := newTestFetcher(1024, 0).Fetch(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Contains(t, string(page.Body), "hello")
	assert.Equal(t, "text/html; charset=utf-8", page.ContentType)
	assert.Equal(t, 1, page.Attempts)
	assert.Greater(t, page.Latency, time.Duration(0))
}

func TestFetchSkipsNonHTMLFromProbe(t *testing.T) {
	t.Parallel()

	var gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		if r.Method == http.MethodGet {
			gets.Add(1)
			_, _ = w.Write([]byte("%PDF-1.4"))
		}
	}))
	defer srv.Close()

	_, err := newTestFetcher(1024, 0).Fetch(context.Background(), srv.URL+"/doc.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, crawler.ErrSoftSkip))
	reason, _ := crawler.SkipReasonOf(err)
	assert.Equal(t, crawler.SkipContentType, reason)
	assert.Zero(t, gets.Load(), "GET must not be issued after a rejecting HEAD")
}

func TestFetchSkipsNonHTMLWhenProbeUnsupported(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png"))
	}))
	defer srv.Close()

	_, err := newTestFetcher(1024, 0).Fetch(context.Background(), srv.URL+"/img")
	reason, ok := crawler.SkipReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, crawler.SkipContentType, reason)
}

func TestFetchOversizeStreamIsSoftSkip(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if r.Method == http.MethodHead {
			return
		}
		flusher, _ := w.(http.Flusher)
		chunk := []byte(strings.Repeat("a", 512))
		for i := 0; i < 8; i++ {
			_, _ = w.Write(chunk)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
	defer srv.Close()

	_, err := newTestFetcher(1024, 0).Fetch(context.Background(), srv.URL+"/big")
	require.Error(t, err)
	reason, ok := crawler.SkipReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, crawler.SkipTooLarge, reason)
}

func TestFetchDeclaredOversizeIsSoftSkip(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Content-Length", "4096")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write([]byte(strings.Repeat("b", 4096)))
	}))
	defer srv.Close()

	_, err := newTestFetcher(1024, 0).Fetch(context.Background(), srv.URL+"/declared")
	reason, ok := crawler.SkipReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, crawler.SkipTooLarge, reason)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Type", "text/html")
			return
		}
		if gets.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<p>ok</p>"))
	}))
	defer srv.Close()

	page, err := newTestFetcher(1024, 3).Fetch(context.Background(), srv.URL+"/flaky")
	require.NoError(t, err)
	assert.Equal(t, 3, page.Attempts)
	assert.Equal(t, int32(3), gets.Load())
}

func TestFetchGivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	var gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			gets.Add(1)
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestFetcher(1024, 2).Fetch(context.Background(), srv.URL+"/down")
	var fetchErr *crawler.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusBadGateway, fetchErr.StatusCode)
	assert.Equal(t, 3, fetchErr.Attempts)
	assert.Equal(t, int32(3), gets.Load())
	assert.False(t, errors.Is(err, crawler.ErrSoftSkip))
}

func TestFetchDoesNotRetryNotFound(t *testing.T) {
	t.Parallel()

	var gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			gets.Add(1)
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestFetcher(1024, 3).Fetch(context.Background(), srv.URL+"/missing")
	var fetchErr *crawler.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.Equal(t, 1, fetchErr.Attempts)
	assert.Equal(t, int32(1), gets.Load())
}

func TestFetchNoContentIsSoftSkip(t *testing.T) {
	t.Parallel()

	var gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			gets.Add(1)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	_, err := newTestFetcher(1024, 3).Fetch(context.Background(), srv.URL+"/ping")
	require.ErrorIs(t, err, crawler.ErrSoftSkip)
	reason, _ := crawler.SkipReasonOf(err)
	assert.Equal(t, crawler.SkipNoContent, reason)
	var fetchErr *crawler.FetchError
	assert.False(t, errors.As(err, &fetchErr))
	assert.Equal(t, int32(1), gets.Load())
}

func TestFetchNonAuthoritativeKeepsBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNonAuthoritativeInfo)
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte("<html><body>cached copy</body></html>"))
		}
	}))
	defer srv.Close()

	page, err := newTestFetcher(1024, 0).Fetch(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNonAuthoritativeInfo, page.StatusCode)
	assert.Contains(t, string(page.Body), "cached copy")
}

func TestFetchCanceledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestFetcher(1024, 3).Fetch(ctx, srv.URL)
	var fetchErr *crawler.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, 1, fetchErr.Attempts)
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := newTestFetcher(16, 0)
	state := &attemptState{}
	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, "https://example.com", state)
	require.NotNil(t, hooks.onRequest)
	require.NotNil(t, hooks.onHeaders)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	collyReq := &colly.Request{Headers: &http.Header{}}
	hooks.onRequest(collyReq)
	assert.Contains(t, collyReq.Headers.Get("Accept"), "text/html")

	hooks.onHeaders(&colly.Response{
		StatusCode: http.StatusOK,
		Headers:    &http.Header{"Content-Type": {"application/zip"}},
		Request:    &colly.Request{},
	})
	reason, ok := crawler.SkipReasonOf(state.skipErr)
	require.True(t, ok)
	assert.Equal(t, crawler.SkipContentType, reason)

	state.skipErr = nil
	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusOK,
		Body:       []byte("body"),
		Headers:    &http.Header{"Content-Type": {"text/html"}},
		Request:    &colly.Request{URL: mustParseURL(t, "https://example.com/final")},
	})
	assert.Equal(t, "https://example.com/final", state.page.URL)
	assert.Equal(t, "text/html", state.page.ContentType)

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusOK,
		Body:       []byte(strings.Repeat("x", 17)),
		Request:    &colly.Request{URL: mustParseURL(t, "https://example.com")},
	})
	reason, ok = crawler.SkipReasonOf(state.skipErr)
	require.True(t, ok)
	assert.Equal(t, crawler.SkipTooLarge, reason)

	hooks.onError(&colly.Response{StatusCode: http.StatusTooManyRequests}, errors.New("Too Many Requests"))
	assert.Equal(t, http.StatusTooManyRequests, statusCodeOf(state.err))

	empty := &attemptState{}
	f.configureCollectorHooks(hooks, "https://example.com/reset", empty)
	hooks.onError(&colly.Response{StatusCode: http.StatusResetContent}, errors.New("Reset Content"))
	reason, ok = crawler.SkipReasonOf(empty.skipErr)
	require.True(t, ok)
	assert.Equal(t, crawler.SkipNoContent, reason)
	assert.NoError(t, empty.err)
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
	onHeaders  colly.ResponseHeadersCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnRequest(cb colly.RequestCallback) {
	s.onRequest = cb
}

func (s *stubHooks) OnResponseHeaders(cb colly.ResponseHeadersCallback) {
	s.onHeaders = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
