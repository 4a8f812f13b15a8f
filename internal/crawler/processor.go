package crawler

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Paulino-Cristovao/webscrap/internal/metrics"
)

const (
	defaultExcerptRunes = 3000
	untitled            = "No Title"
)

// ProcessorConfig tunes the page processor.
type ProcessorConfig struct {
	// ExcerptRunes bounds the text handed to the classifier.
	ExcerptRunes int
	// OracleTimeout bounds each classification call. Zero means no limit.
	OracleTimeout time.Duration
}

// Processor turns a URL into a PageRecord: robots check, fetch, extract,
// clean, classify.
type Processor struct {
	cfg        ProcessorConfig
	base       *url.URL
	guard      Guard
	fetcher    Fetcher
	extractor  Extractor
	classifier Classifier
	clock      Clock
	logger     *zap.Logger
}

// NewProcessor wires a Processor. classifier may be nil, in which case every
// record receives the default analysis.
func NewProcessor(
	cfg ProcessorConfig,
	base *url.URL,
	guard Guard,
	fetcher Fetcher,
	extractor Extractor,
	classifier Classifier,
	clock Clock,
	logger *zap.Logger,
) *Processor {
	if cfg.ExcerptRunes <= 0 {
		cfg.ExcerptRunes = defaultExcerptRunes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		cfg:        cfg,
		base:       base,
		guard:      guard,
		fetcher:    fetcher,
		extractor:  extractor,
		classifier: classifier,
		clock:      clock,
		logger:     logger.Named("processor"),
	}
}

// Process handles one URL. It returns a *SkipError for robots, content-type
// and size rejections, and a *FetchError when the page could not be fetched
// or parsed. Outcome.Latency is populated whenever a fetch was attempted.
func (p *Processor) Process(ctx context.Context, target string) (Outcome, error) {
	if p.guard != nil && !p.guard.Allowed(target) {
		return Outcome{}, NewSkip(target, SkipRobots, "disallowed by robots.txt")
	}

	raw, err := p.fetcher.Fetch(ctx, target)
	if err != nil {
		return Outcome{Latency: raw.Latency}, err
	}
	outcome := Outcome{Latency: raw.Latency}

	extraction, err := p.extractor.Extract(raw)
	if err != nil {
		return outcome, &FetchError{
			URL:        target,
			StatusCode: raw.StatusCode,
			Attempts:   raw.Attempts,
			Err:        fmt.Errorf("extract: %w", err),
		}
	}

	title := CleanText(extraction.Title)
	if title == "" {
		title = untitled
	}
	text := CleanText(extraction.Text)
	analysis := p.analyze(ctx, target, title, text)

	pageURL := p.base
	if raw.URL != "" {
		if parsed, perr := url.Parse(raw.URL); perr == nil {
			pageURL = parsed
		}
	} else if parsed, perr := url.Parse(target); perr == nil {
		pageURL = parsed
	}
	outcome.Links = SameSiteLinks(extraction.Links, pageURL, p.base)

	record := NewPageRecord(target, title, text, analysis, p.now())
	outcome.Record = &record
	return outcome, nil
}

func (p *Processor) analyze(ctx context.Context, target, title, text string) AnalysisResult {
	if p.classifier == nil {
		return DefaultAnalysis(text)
	}
	cctx := ctx
	if p.cfg.OracleTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, p.cfg.OracleTimeout)
		defer cancel()
	}
	excerpt := TruncateRunes(text, p.cfg.ExcerptRunes, "")
	result, err := p.classifier.Classify(cctx, target, title, excerpt)
	if err != nil {
		metrics.ObserveOracleFallback("classify")
		p.logger.Warn("classification failed; using defaults", zap.String("url", target), zap.Error(err))
		return DefaultAnalysis(text)
	}
	result = result.Sanitize()
	if result.Summary == "" {
		result.Summary = TruncateSummary(text)
	}
	return result
}

func (p *Processor) now() time.Time {
	if p.clock == nil {
		return time.Now().UTC()
	}
	return p.clock.Now()
}
