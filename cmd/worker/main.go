// The worker binary hosts the pipeline orchestrator: a cron-scheduled
// scrape → cluster → objectify cycle over the configured news sources, plus
// health and metrics endpoints.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"veritas-scraper/internal/config"
	"veritas-scraper/internal/infra/backend"
	"veritas-scraper/internal/infra/discovery"
	"veritas-scraper/internal/infra/encoder"
	"veritas-scraper/internal/infra/extractor"
	"veritas-scraper/internal/infra/fetcher"
	"veritas-scraper/internal/infra/store"
	"veritas-scraper/internal/infra/summarizer"
	workerPkg "veritas-scraper/internal/infra/worker"
	"veritas-scraper/internal/observability/logging"
	"veritas-scraper/internal/usecase/cluster"
	"veritas-scraper/internal/usecase/objectify"
	"veritas-scraper/internal/usecase/pipeline"
	"veritas-scraper/internal/usecase/scrape"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	cfg := config.Load()
	workerCfg := workerPkg.LoadConfigFromEnv()
	// The pipeline interval doubles as the cron period.
	if cfg.CycleInterval > 0 {
		workerCfg.Interval = cfg.CycleInterval
	}

	registry, err := config.LoadRegistry()
	if err != nil {
		logger.Error("failed to load source registry", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("source registry loaded", slog.Int("sources", registry.Len()))

	svc, err := buildPipeline(cfg, registry)
	if err != nil {
		logger.Error("failed to build pipeline", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	startMetricsServer(ctx, logger, workerCfg.MetricsPort)

	healthServer := workerPkg.NewHealthServer(listenAddr(workerCfg.HealthPort), logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	runCycle := func() {
		cycleCtx, cycleCancel := context.WithTimeout(ctx, workerCfg.CycleTimeout)
		defer cycleCancel()

		if _, err := svc.RunCycle(cycleCtx); err != nil {
			logger.Error("pipeline cycle failed", slog.Any("error", err))
		}
	}

	scheduler := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
		cron.Recover(cron.DiscardLogger),
	))
	if _, err := scheduler.AddFunc("@every "+workerCfg.Interval.String(), runCycle); err != nil {
		logger.Error("failed to schedule pipeline", slog.Any("error", err))
		os.Exit(1)
	}

	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("interval", workerCfg.Interval.String()),
		slog.String("base_dir", cfg.BaseDir))

	// First cycle runs immediately; cron covers the rest.
	runCycle()
	scheduler.Start()

	<-ctx.Done()
	logger.Info("shutdown signal received, waiting for running cycle")
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(workerCfg.CycleTimeout):
		logger.Warn("running cycle did not finish before shutdown deadline")
	}
	logger.Info("worker stopped")
}

// buildPipeline wires the stores, infra adapters and usecases.
func buildPipeline(cfg config.Pipeline, registry *config.Registry) (*pipeline.Service, error) {
	articles, err := store.NewArticleStore(cfg.PulledDir())
	if err != nil {
		return nil, err
	}
	ledger, err := store.NewURLLedger(cfg.PulledDir())
	if err != nil {
		return nil, err
	}
	groups, err := store.NewGroupStore(cfg.GroupedDir())
	if err != nil {
		return nil, err
	}
	cache, err := store.OpenEmbeddingCache(cfg.CacheFile())
	if err != nil {
		return nil, err
	}
	newLog := store.NewNewArticlesLog(cfg.NewArticlesLogFile())
	scraperLog := store.NewScraperLog(cfg.ScraperLogFile())

	client := fetcher.New()
	feedClient := &http.Client{Timeout: 10 * time.Second}
	disc := discovery.New(
		discovery.NewRSSLister(feedClient),
		discovery.NewPageLister(client, config.AcceptPatterns, config.RejectPatterns, cfg.MaxPages, cfg.StagnationLimit),
		cfg.ListingBound,
	)

	scraper := scrape.New(registry, disc, client, extractor.New(), articles, ledger, newLog, cfg)

	caching := encoder.NewCachingEncoder(createEncoder(slog.Default(), cfg), cache, cfg.EncodeBatchSize)
	engine := cluster.New(articles, groups, caching, newLog, cfg.MatchThreshold, cfg.InternalThreshold)

	var objectifier *objectify.Service
	if cfg.ObjectifyEnabled {
		objectifier = objectify.New(
			groups,
			createSummarizer(slog.Default(), cfg),
			client,
			backend.New(cfg.InsertURL),
			cfg.ObjectifiedDir(),
		)
	}

	return pipeline.New(scraper, engine, objectifier, articles, scraperLog, newLog), nil
}

// createSummarizer creates a summarizer based on the SUMMARIZER_TYPE
// environment variable. Gemini with key rotation is the default; Claude is
// the single-key alternate, and "noop" disables the LLM entirely.
func createSummarizer(logger *slog.Logger, cfg config.Pipeline) summarizer.Summarizer {
	summarizerType := os.Getenv("SUMMARIZER_TYPE")
	if summarizerType == "" {
		summarizerType = "gemini"
	}

	switch summarizerType {
	case "gemini":
		if len(cfg.GeminiAPIKeys) == 0 {
			logger.Error("GEMINI_API_KEYS is required when SUMMARIZER_TYPE=gemini")
			os.Exit(1)
		}
		logger.Info("Using Gemini API for objectification",
			slog.String("type", "gemini"),
			slog.Int("keys", len(cfg.GeminiAPIKeys)))
		return summarizer.NewGemini(cfg.GeminiAPIKeys)
	case "claude":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			logger.Error("ANTHROPIC_API_KEY is required when SUMMARIZER_TYPE=claude")
			os.Exit(1)
		}
		logger.Info("Using Claude API for objectification", slog.String("type", "claude"))
		return summarizer.NewClaude(apiKey)
	case "noop":
		logger.Info("Objectification summarizer disabled", slog.String("type", "noop"))
		return summarizer.NewNoop()
	default:
		logger.Error("Invalid SUMMARIZER_TYPE",
			slog.String("type", summarizerType),
			slog.String("expected", "gemini, claude or noop"))
		os.Exit(1)
		return nil
	}
}

// createEncoder creates the sentence encoder based on the ENCODER_TYPE
// environment variable. The HTTP adapter for the local model server is the
// default; OpenAI embeddings are the alternate for deployments without one.
// The embedding cache must be cleared when switching providers.
func createEncoder(logger *slog.Logger, cfg config.Pipeline) encoder.Encoder {
	encoderType := os.Getenv("ENCODER_TYPE")
	if encoderType == "" {
		encoderType = "http"
	}

	switch encoderType {
	case "http":
		logger.Info("Using local encoder service",
			slog.String("type", "http"),
			slog.String("url", cfg.EncoderURL),
			slog.String("model", cfg.EncoderModel))
		return encoder.NewHTTPEncoder(cfg.EncoderURL, cfg.EncoderModel)
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			logger.Error("OPENAI_API_KEY is required when ENCODER_TYPE=openai")
			os.Exit(1)
		}
		logger.Info("Using OpenAI embeddings", slog.String("type", "openai"))
		return encoder.NewOpenAIEncoder(apiKey)
	default:
		logger.Error("Invalid ENCODER_TYPE",
			slog.String("type", encoderType),
			slog.String("expected", "http or openai"))
		os.Exit(1)
		return nil
	}
}
