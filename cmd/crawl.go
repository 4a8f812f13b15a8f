package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"

	gcsstorage "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Paulino-Cristovao/webscrap/internal/checkpoint"
	"github.com/Paulino-Cristovao/webscrap/internal/clock/system"
	"github.com/Paulino-Cristovao/webscrap/internal/config"
	"github.com/Paulino-Cristovao/webscrap/internal/crawler"
	"github.com/Paulino-Cristovao/webscrap/internal/extract"
	collyfetcher "github.com/Paulino-Cristovao/webscrap/internal/fetcher/colly"
	"github.com/Paulino-Cristovao/webscrap/internal/hash/sha256"
	"github.com/Paulino-Cristovao/webscrap/internal/id/uuid"
	"github.com/Paulino-Cristovao/webscrap/internal/metrics"
	"github.com/Paulino-Cristovao/webscrap/internal/oracle"
	"github.com/Paulino-Cristovao/webscrap/internal/policy/ratelimit"
	"github.com/Paulino-Cristovao/webscrap/internal/politeness"
	"github.com/Paulino-Cristovao/webscrap/internal/render"
	"github.com/Paulino-Cristovao/webscrap/internal/storage/gcs"
	"github.com/Paulino-Cristovao/webscrap/internal/storage/local"
	"github.com/Paulino-Cristovao/webscrap/internal/storage/memory"
)

func newCrawlCmd() *cobra.Command {
	var fresh bool
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the configured site and build the multilingual documents",
		Long: `Crawls crawl.base_url breadth-first, staying on the same host and honoring
robots.txt, until the frontier drains or crawl.max_pages pages are scraped.
Per-page records go to output.work_dir and the per-language documents plus
the run summary go to output.final_dir. Interrupting the command (Ctrl-C)
saves a checkpoint; running it again resumes from there.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := resolveEnv(cmd.Context())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			summary, err := runCrawl(ctx, e.cfg, fresh, e.logger)
			if errors.Is(err, context.Canceled) {
				e.logger.Warn("crawl interrupted; run the command again to resume",
					zap.Int("pages_scraped", summary.TotalPages))
				return nil
			}
			return err
		},
	}
	cmd.Flags().String("base-url", "", "site to crawl (overrides crawl.base_url)")
	cmd.Flags().Int("max-pages", 0, "page budget (overrides crawl.max_pages)")
	cmd.Flags().Int("checkpoint-every", 0, "checkpoint interval in pages (overrides crawl.checkpoint_every)")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "discard any saved checkpoint and start over")
	return cmd
}

// runCrawl wires every component from cfg and runs one crawl.
func runCrawl(ctx context.Context, cfg config.Config, fresh bool, logger *zap.Logger) (crawler.RunSummary, error) {
	baseURL, base, err := crawler.ParseBaseURL(cfg.Crawl.BaseURL)
	if err != nil {
		return crawler.RunSummary{}, err
	}

	work, final, closeStores, err := buildStores(ctx, cfg.Output)
	if err != nil {
		return crawler.RunSummary{}, err
	}
	defer closeStores()

	checkpoints, closeCheckpoints, err := buildCheckpoints(cfg.Checkpoint, work)
	if err != nil {
		return crawler.RunSummary{}, err
	}
	defer closeCheckpoints()
	if fresh {
		if err := checkpoints.Delete(ctx); err != nil {
			return crawler.RunSummary{}, fmt.Errorf("discard checkpoint: %w", err)
		}
		logger.Info("previous checkpoint discarded")
	}

	robots := politeness.AllowAll()
	if cfg.Politeness.RespectRobots {
		client := &http.Client{Timeout: cfg.HTTP.Timeout}
		robots = politeness.LoadRobots(ctx, client, base, cfg.Crawl.UserAgent, logger)
	}
	guard := politeness.NewGuard(politeness.Config{
		MinDelay:      cfg.Politeness.MinDelay,
		LatencyFactor: cfg.Politeness.LatencyFactor,
		MaxBytes:      cfg.HTTP.MaxPageBytes,
	}, robots, logger)

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:      cfg.Crawl.UserAgent,
		Timeout:        cfg.HTTP.Timeout,
		MaxRetries:     cfg.HTTP.MaxRetries,
		BackoffInitial: cfg.HTTP.BackoffInitial,
		BackoffMax:     cfg.HTTP.BackoffMax,
	}, guard, logger)

	classifier, translator := buildOracle(cfg.Oracle, logger)
	clock := system.New()

	processor := crawler.NewProcessor(crawler.ProcessorConfig{
		ExcerptRunes:  cfg.Oracle.ExcerptChars,
		OracleTimeout: cfg.Oracle.Timeout,
	}, base, guard, fetcher, extract.New(), classifier, clock, logger)

	assembler := crawler.NewAssembler(crawler.AssemblerConfig{
		Title:     cfg.Output.DocumentTitle,
		SourceURL: baseURL,
	}, translator, clock, logger)

	engine, err := crawler.NewEngine(crawler.EngineConfig{
		BaseURL:         baseURL,
		MaxPages:        cfg.Crawl.MaxPages,
		CheckpointEvery: cfg.Crawl.CheckpointEvery,
		OracleEnabled:   classifier != nil,
	}, crawler.EngineDeps{
		Processor:   processor,
		Guard:       guard,
		Checkpoints: checkpoints,
		Records:     crawler.NewRecordWriter(work, sha256.New()),
		Publisher:   crawler.NewPublisher(final, assembler, render.All(), cfg.Output.DocumentPrefix, logger),
		IDs:         uuid.New(),
		Clock:       clock,
		Logger:      logger,
	})
	if err != nil {
		return crawler.RunSummary{}, err
	}

	if cfg.Metrics.Addr != "" {
		router := metrics.NewRouter(func() any { return engine.Progress() })
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, router, logger); err != nil {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	return engine.Run(ctx)
}

// buildStores returns the working store (per-page records, checkpoint) and
// the final store (documents, summary).
func buildStores(ctx context.Context, cfg config.OutputConfig) (crawler.BlobStore, crawler.BlobStore, func(), error) {
	noop := func() {}
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.NewBlobStore(), memory.NewBlobStore(), noop, nil
	case config.BackendGCS:
		client, err := gcsstorage.NewClient(ctx)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("create gcs client: %w", err)
		}
		closeClient := func() { _ = client.Close() }
		work, err := gcs.New(client, gcs.Config{Bucket: cfg.GCSBucket, Prefix: cfg.WorkDir})
		if err != nil {
			closeClient()
			return nil, nil, noop, fmt.Errorf("create work store: %w", err)
		}
		final, err := gcs.New(client, gcs.Config{Bucket: cfg.GCSBucket, Prefix: cfg.FinalDir})
		if err != nil {
			closeClient()
			return nil, nil, noop, fmt.Errorf("create final store: %w", err)
		}
		return work, final, closeClient, nil
	default:
		work, err := local.New(local.Config{BaseDir: cfg.WorkDir})
		if err != nil {
			return nil, nil, noop, fmt.Errorf("create work store: %w", err)
		}
		final, err := local.New(local.Config{BaseDir: cfg.FinalDir})
		if err != nil {
			return nil, nil, noop, fmt.Errorf("create final store: %w", err)
		}
		return work, final, noop, nil
	}
}

func buildCheckpoints(cfg config.CheckpointConfig, work crawler.BlobStore) (crawler.CheckpointStore, func(), error) {
	if cfg.Backend == config.CheckpointBolt {
		store, err := checkpoint.OpenBolt(cfg.BoltPath)
		if err != nil {
			return nil, func() {}, err
		}
		return store, closer(store), nil
	}
	return checkpoint.NewBlobStore(work, cfg.Name), func() {}, nil
}

func closer(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// buildOracle returns nil collaborators when the oracle is disabled or has
// no credentials; the crawl then runs with default analyses and no
// translation.
func buildOracle(cfg config.OracleConfig, logger *zap.Logger) (crawler.Classifier, crawler.Translator) {
	if !cfg.Enabled {
		logger.Info("oracle disabled; pages get default analysis and are not translated")
		return nil, nil
	}
	llm, err := oracle.NewOpenAI(oracle.Config{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		logger.Warn("oracle unavailable; continuing without classification or translation", zap.Error(err))
		return nil, nil
	}
	limiter := ratelimit.New(ratelimit.Config{RPS: cfg.RequestsPerSecond, Burst: 1})
	client := oracle.New(llm, limiter, logger, oracle.WithCallTimeout(cfg.Timeout))
	return client, client
}
