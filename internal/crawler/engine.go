package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Paulino-Cristovao/webscrap/internal/metrics"
)

const (
	defaultMaxPages        = 100
	defaultCheckpointEvery = 10
)

// PageProcessor handles a single URL for the engine.
type PageProcessor interface {
	Process(ctx context.Context, url string) (Outcome, error)
}

// EngineConfig controls the crawl loop.
type EngineConfig struct {
	BaseURL         string
	MaxPages        int
	CheckpointEvery int
	OracleEnabled   bool
}

// Engine drives a single-site crawl: it pops the frontier, processes each
// URL, files records, enqueues discovered links, throttles between
// iterations and checkpoints periodically. It is not safe for concurrent
// use; Run owns all crawl state.
type Engine struct {
	cfg         EngineConfig
	processor   PageProcessor
	guard       Guard
	checkpoints CheckpointStore
	records     *RecordWriter
	publisher   *Publisher
	ids         IDGenerator
	clock       Clock
	logger      *zap.Logger

	frontier     *Frontier
	aggregator   *Aggregator
	pagesScraped int
	failed       []string
	runID        string

	progressMu sync.Mutex
	progress   Progress
}

// Progress is a point-in-time view of a running crawl, safe to read from
// other goroutines.
type Progress struct {
	RunID        string    `json:"run_id"`
	BaseURL      string    `json:"base_url"`
	PagesScraped int       `json:"pages_scraped"`
	MaxPages     int       `json:"max_pages"`
	Pending      int       `json:"pending"`
	Visited      int       `json:"visited"`
	Failed       int       `json:"failed"`
	Done         bool      `json:"done"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EngineDeps groups the collaborators of an Engine. Records and Publisher
// are optional.
type EngineDeps struct {
	Processor   PageProcessor
	Guard       Guard
	Checkpoints CheckpointStore
	Records     *RecordWriter
	Publisher   *Publisher
	IDs         IDGenerator
	Clock       Clock
	Logger      *zap.Logger
}

// NewEngine validates the base URL and wires the engine.
func NewEngine(cfg EngineConfig, deps EngineDeps) (*Engine, error) {
	normalized, _, err := ParseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	cfg.BaseURL = normalized
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = defaultCheckpointEvery
	}
	if deps.Processor == nil {
		return nil, errors.New("page processor is required")
	}
	if deps.Checkpoints == nil {
		return nil, errors.New("checkpoint store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:         cfg,
		processor:   deps.Processor,
		guard:       deps.Guard,
		checkpoints: deps.Checkpoints,
		records:     deps.Records,
		publisher:   deps.Publisher,
		ids:         deps.IDs,
		clock:       deps.Clock,
		logger:      logger.Named("engine"),
		frontier:    NewFrontier(),
		aggregator:  NewAggregator(),
	}, nil
}

// Run executes the crawl until the frontier drains or the page budget is
// reached. Cancellation is honored between URLs: the in-flight page is
// allowed to finish, a checkpoint is written, and ctx.Err() is returned.
func (e *Engine) Run(ctx context.Context) (RunSummary, error) {
	e.restore(ctx)
	if e.runID == "" {
		e.runID = e.newRunID()
	}
	e.logger.Info("crawl started",
		zap.String("run_id", e.runID),
		zap.String("base_url", e.cfg.BaseURL),
		zap.Int("max_pages", e.cfg.MaxPages),
		zap.Int("pages_scraped", e.pagesScraped),
		zap.Int("pending", e.frontier.Len()),
	)
	e.publishProgress(false)

	iterations := 0
	for e.pagesScraped < e.cfg.MaxPages {
		if err := ctx.Err(); err != nil {
			e.checkpoint(context.WithoutCancel(ctx))
			e.logger.Warn("crawl interrupted; checkpoint kept for resume",
				zap.Int("pages_scraped", e.pagesScraped),
				zap.Int("pending", e.frontier.Len()),
			)
			return e.summary(), fmt.Errorf("crawl interrupted: %w", err)
		}
		next, ok := e.frontier.Pop()
		if !ok {
			break
		}
		e.frontier.MarkVisited(next)

		outcome := e.step(context.WithoutCancel(ctx), next)
		iterations++
		metrics.ObserveFrontier(e.frontier.Len(), e.frontier.VisitedCount())
		e.publishProgress(false)

		if iterations%e.cfg.CheckpointEvery == 0 {
			e.checkpoint(context.WithoutCancel(ctx))
		}
		if e.pagesScraped < e.cfg.MaxPages && e.frontier.Len() > 0 && e.guard != nil {
			e.guard.Throttle(ctx, outcome.Latency)
		}
	}

	return e.complete(context.WithoutCancel(ctx))
}

func (e *Engine) step(ctx context.Context, target string) Outcome {
	outcome, err := e.processor.Process(ctx, target)
	switch {
	case err == nil && outcome.Record != nil:
		e.pagesScraped++
		e.aggregator.File(*outcome.Record)
		added := 0
		for _, link := range outcome.Links {
			if e.frontier.Push(link) {
				added++
			}
		}
		metrics.ObservePage("scraped")
		e.logger.Info("page scraped",
			zap.String("url", target),
			zap.String("language", string(outcome.Record.Language)),
			zap.String("category", outcome.Record.Category),
			zap.Int("importance", outcome.Record.ImportanceScore),
			zap.Int("links_added", added),
			zap.Int("pages_scraped", e.pagesScraped),
		)
		if e.records != nil {
			if _, werr := e.records.Write(ctx, *outcome.Record); werr != nil {
				metrics.ObservePersistenceFailure("record")
				e.logger.Error("failed to write page record", zap.String("url", target), zap.Error(werr))
			}
		}
	case errors.Is(err, ErrSoftSkip):
		reason, _ := SkipReasonOf(err)
		metrics.ObserveSkip(string(reason))
		e.logger.Info("page skipped", zap.String("url", target), zap.String("reason", string(reason)), zap.Error(err))
	default:
		if err == nil {
			err = errors.New("processor returned no record")
		}
		e.failed = append(e.failed, target)
		metrics.ObservePage("failed")
		e.logger.Warn("page failed", zap.String("url", target), zap.Error(err))
	}
	return outcome
}

func (e *Engine) complete(ctx context.Context) (RunSummary, error) {
	e.checkpoint(ctx)
	e.publishProgress(true)
	summary := e.summary()
	e.logger.Info("crawl finished",
		zap.Int("pages_scraped", summary.TotalPages),
		zap.Int("failed", len(summary.FailedURLs)),
		zap.Int("visited", e.frontier.VisitedCount()),
	)

	var outputErr error
	if e.publisher != nil {
		if _, err := e.publisher.PublishSummary(ctx, summary); err != nil {
			e.logger.Error("failed to write run summary", zap.Error(err))
			outputErr = errors.Join(outputErr, err)
		}
		if e.pagesScraped > 0 {
			names, err := e.publisher.PublishDocuments(ctx, e.aggregator)
			if err != nil {
				e.logger.Error("failed to write some documents", zap.Error(err))
				outputErr = errors.Join(outputErr, err)
			}
			e.logger.Info("documents published", zap.Strings("artifacts", names))
		}
	}

	if outputErr != nil {
		e.logger.Warn("checkpoint kept so outputs can be regenerated on the next run")
		return summary, nil
	}
	if err := e.checkpoints.Delete(ctx); err != nil {
		metrics.ObservePersistenceFailure("checkpoint")
		e.logger.Error("failed to delete checkpoint", zap.Error(err))
	}
	return summary, nil
}

func (e *Engine) restore(ctx context.Context) {
	snap, err := e.checkpoints.Load(ctx)
	if err != nil {
		metrics.ObservePersistenceFailure("checkpoint")
		e.logger.Error("failed to load checkpoint; starting fresh", zap.Error(err))
		snap = nil
	}
	if snap != nil && snap.BaseURL != "" && snap.BaseURL != e.cfg.BaseURL {
		e.logger.Warn("checkpoint belongs to another site; starting fresh",
			zap.String("checkpoint_base_url", snap.BaseURL),
			zap.String("base_url", e.cfg.BaseURL),
		)
		snap = nil
	}
	if snap == nil {
		e.frontier.Push(e.cfg.BaseURL)
		return
	}
	e.frontier.Restore(snap.VisitedURLs, snap.URLsToVisit)
	e.pagesScraped = snap.PagesScraped
	e.failed = append([]string(nil), snap.FailedURLs...)
	e.aggregator.Restore(snap.PageRecords)
	e.runID = snap.RunID
	if e.frontier.VisitedCount() == 0 && e.frontier.Len() == 0 {
		e.frontier.Push(e.cfg.BaseURL)
	}
	e.logger.Info("resuming from checkpoint",
		zap.Int("visited", e.frontier.VisitedCount()),
		zap.Int("pending", e.frontier.Len()),
		zap.Int("pages_scraped", e.pagesScraped),
		zap.Time("last_updated", snap.LastUpdated),
	)
}

// Snapshot returns a point-in-time copy of the crawl state.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		RunID:             e.runID,
		BaseURL:           e.cfg.BaseURL,
		VisitedURLs:       e.frontier.Visited(),
		URLsToVisit:       e.frontier.Pending(),
		PagesScraped:      e.pagesScraped,
		FailedURLs:        append([]string{}, e.failed...),
		LastUpdated:       e.now(),
		MultilingualStats: e.aggregator.Counts(),
		PageRecords:       e.aggregator.Records(),
	}
}

// Progress returns the latest published progress.
func (e *Engine) Progress() Progress {
	e.progressMu.Lock()
	defer e.progressMu.Unlock()
	return e.progress
}

func (e *Engine) publishProgress(done bool) {
	p := Progress{
		RunID:        e.runID,
		BaseURL:      e.cfg.BaseURL,
		PagesScraped: e.pagesScraped,
		MaxPages:     e.cfg.MaxPages,
		Pending:      e.frontier.Len(),
		Visited:      e.frontier.VisitedCount(),
		Failed:       len(e.failed),
		Done:         done,
		UpdatedAt:    e.now(),
	}
	e.progressMu.Lock()
	e.progress = p
	e.progressMu.Unlock()
}

func (e *Engine) checkpoint(ctx context.Context) {
	if err := e.checkpoints.Save(ctx, e.Snapshot()); err != nil {
		metrics.ObservePersistenceFailure("checkpoint")
		e.logger.Error("checkpoint save failed; resume point lost",
			zap.Int("pages_scraped", e.pagesScraped),
			zap.Error(err),
		)
		return
	}
	e.logger.Debug("checkpoint saved", zap.Int("pages_scraped", e.pagesScraped))
}

func (e *Engine) summary() RunSummary {
	records := e.aggregator.Records()
	scraped := make([]string, 0, len(records))
	for _, rec := range records {
		scraped = append(scraped, rec.URL)
	}
	return RunSummary{
		RunID:                 e.runID,
		BaseURL:               e.cfg.BaseURL,
		TotalPages:            e.pagesScraped,
		FailedURLs:            append([]string{}, e.failed...),
		ScrapedURLs:           scraped,
		VisitedURLs:           e.frontier.Visited(),
		CompletedAt:           e.now(),
		OracleEnabled:         e.cfg.OracleEnabled,
		MultilingualBreakdown: e.aggregator.Stats(),
	}
}

func (e *Engine) newRunID() string {
	if e.ids == nil {
		return ""
	}
	id, err := e.ids.NewID()
	if err != nil {
		e.logger.Warn("failed to generate run id", zap.Error(err))
		return ""
	}
	return id
}

func (e *Engine) now() time.Time {
	if e.clock == nil {
		return time.Now().UTC()
	}
	return e.clock.Now()
}
