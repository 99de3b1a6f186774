// Package scrape implements the per-source scrape pass: discover candidate
// URLs, drop everything the ledger has seen, fetch and extract the rest
// concurrently, and persist the records. Sources run in parallel under a
// global in-flight fetch budget.
package scrape

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"veritas-scraper/internal/config"
	"veritas-scraper/internal/domain/entity"
	"veritas-scraper/internal/infra/discovery"
	"veritas-scraper/internal/infra/extractor"
	"veritas-scraper/internal/infra/fetcher"
	"veritas-scraper/internal/infra/store"
	"veritas-scraper/internal/observability/metrics"
)

// maxConcurrentSources bounds how many sources scrape at once; the global
// fetch semaphore bounds the sockets underneath them.
const maxConcurrentSources = 8

// Service wires one scrape pass over the registry.
type Service struct {
	registry   *config.Registry
	discoverer *discovery.Discoverer
	client     *fetcher.Client
	extractor  *extractor.Extractor
	articles   *store.ArticleStore
	ledger     *store.URLLedger
	newLog     *store.NewArticlesLog

	perSourceFetches int
	saveWorkers      int
	globalFetches    *semaphore.Weighted
}

// SourceStats summarizes one source's scrape pass.
type SourceStats struct {
	Source     string
	Candidates int
	Fresh      int
	Saved      int64
	Empty      int64
	Errors     int64
}

// CycleStats aggregates a full scrape pass over all sources.
type CycleStats struct {
	Sources  int
	NewSaved int64
	Duration time.Duration
}

// New creates a scrape Service.
func New(
	registry *config.Registry,
	discoverer *discovery.Discoverer,
	client *fetcher.Client,
	ext *extractor.Extractor,
	articles *store.ArticleStore,
	ledger *store.URLLedger,
	newLog *store.NewArticlesLog,
	cfg config.Pipeline,
) *Service {
	return &Service{
		registry:         registry,
		discoverer:       discoverer,
		client:           client,
		extractor:        ext,
		articles:         articles,
		ledger:           ledger,
		newLog:           newLog,
		perSourceFetches: cfg.PerSourceFetches,
		saveWorkers:      cfg.SaveWorkers,
		globalFetches:    semaphore.NewWeighted(int64(cfg.MaxInflightFetches)),
	}
}

// RunAll scrapes every registered source with bounded cross-source
// concurrency. Single-source failures are logged and never abort the pass.
func (s *Service) RunAll(ctx context.Context) (*CycleStats, error) {
	start := time.Now()
	stats := &CycleStats{Sources: s.registry.Len()}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentSources)

	for _, src := range s.registry.Sources() {
		src := src
		eg.Go(func() error {
			srcStats, err := s.ProcessSource(egCtx, &src)
			if err != nil {
				slog.Warn("source scrape failed",
					slog.String("source", src.Slug),
					slog.Any("error", err))
				metrics.RecordScrapeError(src.Slug, "listing")
				return nil // keep scraping the other sources
			}
			atomic.AddInt64(&stats.NewSaved, srcStats.Saved)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return stats, err
	}

	stats.Duration = time.Since(start)
	slog.Info("scrape pass completed",
		slog.Int("sources", stats.Sources),
		slog.Int64("new_records", atomic.LoadInt64(&stats.NewSaved)),
		slog.Duration("duration", stats.Duration))

	return stats, nil
}

// ProcessSource runs discovery, ledger diff, fetch, extract and save for one
// source. URLs whose fetch failed are left out of the ledger so the next
// cycle retries them; extraction always yields a record, so every extracted
// URL (blocked and empty pages included) is appended.
func (s *Service) ProcessSource(ctx context.Context, src *entity.Source) (*SourceStats, error) {
	sourceStart := time.Now()
	stats := &SourceStats{Source: src.Slug}

	candidates, err := s.discoverer.Discover(ctx, src)
	if err != nil {
		return nil, err
	}
	stats.Candidates = len(candidates)

	fresh, err := s.ledger.Filter(src.Slug, candidates)
	if err != nil {
		return nil, err
	}
	stats.Fresh = len(fresh)

	if len(fresh) == 0 {
		slog.Info("no new articles for source", slog.String("source", src.Slug))
		return stats, nil
	}

	var mu sync.Mutex
	var ledgerURLs []string
	var newPaths []string

	fetchSem := make(chan struct{}, s.perSourceFetches)
	saveSem := make(chan struct{}, s.saveWorkers)
	eg, egCtx := errgroup.WithContext(ctx)

	for _, pageURL := range fresh {
		pageURL := pageURL
		eg.Go(func() error {
			if err := s.globalFetches.Acquire(egCtx, 1); err != nil {
				return err
			}
			fetchSem <- struct{}{}
			body, _, fetchErr := s.client.Get(egCtx, pageURL)
			<-fetchSem
			s.globalFetches.Release(1)

			var article entity.RawArticle
			if fetchErr != nil {
				// Failed fetches still produce a record, but the URL stays out
				// of the ledger so the next cycle retries it.
				slog.Warn("article fetch failed",
					slog.String("source", src.Slug),
					slog.String("url", pageURL),
					slog.Any("error", fetchErr))
				metrics.RecordArticleFetched(src.Slug, "error")
				metrics.RecordScrapeError(src.Slug, "fetch")
				atomic.AddInt64(&stats.Errors, 1)
				article = entity.FailedRawArticle(src.Slug, pageURL, "", fetchErr.Error(), time.Now())
			} else {
				article = s.extractor.Extract(src, pageURL, body, time.Now())
				switch {
				case article.Error == entity.BlockedErrorMessage:
					metrics.RecordArticleFetched(src.Slug, "blocked")
					atomic.AddInt64(&stats.Empty, 1)
				case article.IsEmpty:
					metrics.RecordArticleFetched(src.Slug, "empty")
					atomic.AddInt64(&stats.Empty, 1)
				default:
					metrics.RecordArticleFetched(src.Slug, "ok")
				}
			}

			saveSem <- struct{}{}
			path, saveErr := s.articles.Save(article)
			<-saveSem
			if saveErr != nil {
				slog.Error("failed to save record",
					slog.String("source", src.Slug),
					slog.String("url", pageURL),
					slog.Any("error", saveErr))
				metrics.RecordScrapeError(src.Slug, "store")
				return nil
			}

			mu.Lock()
			newPaths = append(newPaths, path)
			if fetchErr == nil {
				ledgerURLs = append(ledgerURLs, pageURL)
			}
			mu.Unlock()

			if fetchErr == nil {
				atomic.AddInt64(&stats.Saved, 1)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return stats, err
	}

	if err := s.ledger.Append(src.Slug, ledgerURLs); err != nil {
		return stats, err
	}
	if err := s.newLog.Append(newPaths); err != nil {
		return stats, err
	}

	duration := time.Since(sourceStart)
	metrics.RecordSourceScrape(src.Slug, duration)
	slog.Info("source scraped",
		slog.String("source", src.Slug),
		slog.Int("candidates", stats.Candidates),
		slog.Int("fresh", stats.Fresh),
		slog.Int64("saved", atomic.LoadInt64(&stats.Saved)),
		slog.Int64("empty", atomic.LoadInt64(&stats.Empty)),
		slog.Int64("errors", atomic.LoadInt64(&stats.Errors)),
		slog.Duration("duration", duration))

	return stats, nil
}
