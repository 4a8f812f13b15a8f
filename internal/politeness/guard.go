package politeness

import (
	"context"
	"fmt"
	"mime"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Paulino-Cristovao/webscrap/internal/crawler"
	"github.com/Paulino-Cristovao/webscrap/internal/metrics"
)

// DefaultMaxBytes caps page bodies at 10 MiB.
const DefaultMaxBytes int64 = 10 << 20

var acceptedTypes = []string{"text/html", "text/plain", "application/xhtml"}

// Config tunes the guard.
type Config struct {
	MinDelay      time.Duration
	LatencyFactor float64
	MaxBytes      int64
}

// Guard combines robots policy, header checks and adaptive throttling.
type Guard struct {
	cfg    Config
	robots *Robots
	pauser pauseController
	logger *zap.Logger
}

// NewGuard builds a Guard. A nil robots policy allows everything. The
// effective minimum delay is the larger of cfg.MinDelay and the robots
// Crawl-delay.
func NewGuard(cfg Config, robots *Robots, logger *zap.Logger) *Guard {
	if cfg.LatencyFactor <= 0 {
		cfg.LatencyFactor = DefaultLatencyFactor
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if robots == nil {
		robots = AllowAll()
	}
	if delay := robots.CrawlDelay(); delay > cfg.MinDelay {
		cfg.MinDelay = delay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		cfg:    cfg,
		robots: robots,
		pauser: &timerPauseController{},
		logger: logger.Named("politeness"),
	}
}

// Allowed implements crawler.Guard.
func (g *Guard) Allowed(url string) bool {
	return g.robots.Allowed(url)
}

// Throttle implements crawler.Guard. It returns early when ctx is done.
func (g *Guard) Throttle(ctx context.Context, latency time.Duration) {
	delay := g.Delay(latency)
	metrics.ObserveThrottle(delay)
	g.logger.Debug("throttling", zap.Duration("delay", delay), zap.Duration("latency", latency))
	g.pauser.Pause(ctx, delay)
}

// Delay returns the pause that follows a response with the given latency.
func (g *Guard) Delay(latency time.Duration) time.Duration {
	return NextDelay(g.cfg.MinDelay, latency, g.cfg.LatencyFactor)
}

// MaxBytes is the largest accepted body size.
func (g *Guard) MaxBytes() int64 {
	return g.cfg.MaxBytes
}

// Exceeds reports whether n bytes is over the size limit.
func (g *Guard) Exceeds(n int64) bool {
	return n > g.cfg.MaxBytes
}

// CheckHeaders validates declared response metadata. contentLength < 0
// means unknown. A missing content type is accepted.
func (g *Guard) CheckHeaders(url, contentType string, contentLength int64) error {
	if contentType != "" && !AcceptedContentType(contentType) {
		return crawler.NewSkip(url, crawler.SkipContentType, contentType)
	}
	if contentLength >= 0 && g.Exceeds(contentLength) {
		return crawler.NewSkip(url, crawler.SkipTooLarge,
			fmt.Sprintf("declared %d bytes, limit %d", contentLength, g.cfg.MaxBytes))
	}
	return nil
}

// AcceptedContentType reports whether contentType is HTML, XHTML or plain
// text.
func AcceptedContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	for _, accepted := range acceptedTypes {
		if strings.HasPrefix(mediaType, accepted) {
			return true
		}
	}
	return false
}
