// Package collyfetcher implements crawler.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/Paulino-Cristovao/webscrap/internal/crawler"
	"github.com/Paulino-Cristovao/webscrap/internal/metrics"
)

// Config controls collector behavior.
type Config struct {
	UserAgent      string
	Timeout        time.Duration
	MaxRetries     int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// HeaderGuard validates declared response metadata before bodies are read.
type HeaderGuard interface {
	CheckHeaders(url, contentType string, contentLength int64) error
	MaxBytes() int64
}

// Fetcher implements crawler.Fetcher: a HEAD check for declared type and
// size, then a capped GET through a Colly collector, retried with
// exponential backoff on throttling, server errors and timeouts.
type Fetcher struct {
	cfg           Config
	guard         HeaderGuard
	client        *http.Client
	baseCollector *colly.Collector
	retry         *retryPolicy
	sleep         func(ctx context.Context, d time.Duration)
	logger        *zap.Logger
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponseHeaders(colly.ResponseHeadersCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// attemptState collects the results of one collector visit.
type attemptState struct {
	page    crawler.RawPage
	skipErr error
	err     error
}

// New builds a Fetcher.
func New(cfg Config, guard HeaderGuard, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	transport := newHTTPTransport()

	c := colly.NewCollector(colly.Async(false))
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = true
	c.MaxBodySize = int(guard.MaxBytes() + 1)
	c.WithTransport(transport)
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		guard:         guard,
		client:        &http.Client{Transport: transport, Timeout: cfg.Timeout},
		baseCollector: c,
		retry:         newRetryPolicy(cfg.MaxRetries, cfg.BackoffInitial, cfg.BackoffMax),
		sleep:         sleepContext,
		logger:        logger.Named("fetcher"),
	}
}

// Fetch implements crawler.Fetcher. RawPage.Latency is the duration of the
// final attempt and is set even when an error is returned.
func (f *Fetcher) Fetch(ctx context.Context, url string) (crawler.RawPage, error) {
	attempts := 0
	for {
		attempts++
		page, err := f.attempt(ctx, url)
		page.Attempts = attempts
		if err == nil {
			metrics.ObserveFetch(page.StatusCode, page.Latency)
			return page, nil
		}
		if errors.Is(err, crawler.ErrSoftSkip) {
			return page, err
		}
		if !f.retry.ShouldRetry(ctx, err, attempts) {
			return page, &crawler.FetchError{
				URL:        url,
				StatusCode: statusCodeOf(err),
				Attempts:   attempts,
				Err:        err,
			}
		}
		wait := f.retry.Backoff(attempts - 1)
		metrics.ObserveFetchRetry()
		f.logger.Debug("retrying fetch",
			zap.String("url", url),
			zap.Int("attempt", attempts),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		f.sleep(ctx, wait)
	}
}

func (f *Fetcher) attempt(ctx context.Context, url string) (crawler.RawPage, error) {
	start := time.Now()
	if err := f.headCheck(ctx, url); err != nil {
		return crawler.RawPage{URL: url, Latency: time.Since(start)}, err
	}

	state := &attemptState{page: crawler.RawPage{URL: url}}
	collector := f.buildCollector(ctx, url, state)
	err := f.runCollector(ctx, collector, url, state)
	state.page.Latency = time.Since(start)
	return state.page, err
}

// headCheck issues a HEAD request and applies the header guard to what the
// server declares. Probe failures are not fatal; the GET decides.
func (f *Fetcher) headCheck(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return fmt.Errorf("new head request: %w", err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("head request failed; continuing with GET", zap.String("url", url), zap.Error(err))
		return nil
	}
	if cerr := resp.Body.Close(); cerr != nil {
		f.logger.Debug("Failed to close head response body", zap.Error(cerr))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}
	return f.guard.CheckHeaders(url, resp.Header.Get("Content-Type"), resp.ContentLength)
}

func (f *Fetcher) buildCollector(ctx context.Context, url string, state *attemptState) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.Context = ctx
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	f.configureCollectorHooks(collector, url, state)
	return collector
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, url string, state *attemptState) {
	hooks.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")
	})

	hooks.OnResponseHeaders(func(r *colly.Response) {
		if r.StatusCode < 200 || r.StatusCode >= 300 {
			return
		}
		contentType := r.Headers.Get("Content-Type")
		length := int64(-1)
		if raw := r.Headers.Get("Content-Length"); raw != "" {
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				length = n
			}
		}
		if err := f.guard.CheckHeaders(url, contentType, length); err != nil {
			state.skipErr = err
			r.Request.Abort()
		}
	})

	hooks.OnResponse(func(r *colly.Response) {
		f.capture(url, r, state)
	})

	// Colly reports 2xx statuses from 203 up as errors. A body is still a
	// page; an empty one is skipped.
	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode >= 200 && r.StatusCode < 300 {
			if len(r.Body) == 0 {
				state.skipErr = crawler.NewSkip(url, crawler.SkipNoContent,
					fmt.Sprintf("status %d without a body", r.StatusCode))
				return
			}
			f.capture(url, r, state)
			return
		}
		if r != nil && r.StatusCode >= 300 {
			state.err = &statusError{code: r.StatusCode}
			return
		}
		state.err = err
	})
}

// capture stores a successful response in state, or a size skip when the
// body is over the cap.
func (f *Fetcher) capture(url string, r *colly.Response, state *attemptState) {
	if int64(len(r.Body)) > f.guard.MaxBytes() {
		state.skipErr = crawler.NewSkip(url, crawler.SkipTooLarge,
			fmt.Sprintf("body exceeds %d bytes", f.guard.MaxBytes()))
		return
	}
	finalURL := url
	if r.Request != nil && r.Request.URL != nil {
		finalURL = r.Request.URL.String()
	}
	headers := http.Header{}
	if r.Headers != nil {
		headers = r.Headers.Clone()
	}
	state.page = crawler.RawPage{
		URL:         finalURL,
		StatusCode:  r.StatusCode,
		ContentType: headers.Get("Content-Type"),
		Headers:     headers,
		Body:        append([]byte(nil), r.Body...),
	}
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, state *attemptState) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if state.skipErr != nil {
			return state.skipErr
		}
		if state.err != nil {
			return fmt.Errorf("colly response failed: %w", state.err)
		}
		if state.page.StatusCode != 0 {
			return nil
		}
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return errors.New("colly visit produced no response")
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
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
