package politeness

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

const maxRobotsBytes = 1 << 20

// Robots answers robots.txt queries for one host. A nil group allows
// everything, which is how load failures fail open.
type Robots struct {
	group     *robotstxt.Group
	userAgent string
}

// AllowAll returns a policy that permits every path.
func AllowAll() *Robots {
	return &Robots{}
}

// LoadRobots fetches and parses robots.txt for base once. Network errors,
// server errors and unparsable files are logged and yield an allow-all
// policy; the crawl never blocks on robots availability.
func LoadRobots(ctx context.Context, client *http.Client, base *url.URL, userAgent string, logger *zap.Logger) *Robots {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	data, err := fetchRobots(ctx, client, base, userAgent, logger)
	if err != nil {
		logger.Warn("robots fetch failed; allowing access", zap.String("host", base.Host), zap.Error(err))
		return &Robots{userAgent: userAgent}
	}
	return &Robots{group: data.FindGroup(userAgent), userAgent: userAgent}
}

// Allowed reports whether rawURL may be fetched.
func (r *Robots) Allowed(rawURL string) bool {
	if r == nil || r.group == nil {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}
	return r.group.Test(path)
}

// CrawlDelay returns the delay requested by robots.txt, if any.
func (r *Robots) CrawlDelay() time.Duration {
	if r == nil || r.group == nil {
		return 0
	}
	return r.group.CrawlDelay
}

func fetchRobots(ctx context.Context, client *http.Client, base *url.URL, userAgent string, logger *zap.Logger) (*robotstxt.RobotsData, error) {
	robotsURL := url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/robots.txt"}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new robots request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Debug("Failed to close robots response body", zap.Error(cerr))
		}
	}()
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("fetch robots: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots body: %w", err)
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	return data, nil
}
