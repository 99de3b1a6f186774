// Package pipeline is the orchestrator: one Run executes the full
// scrape → cluster → objectify cycle against the filesystem state of record.
// Every stage is idempotent, so a crashed or interrupted cycle is simply
// absorbed by the next one.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"veritas-scraper/internal/infra/store"
	"veritas-scraper/internal/observability/metrics"
	"veritas-scraper/internal/usecase/cluster"
	"veritas-scraper/internal/usecase/objectify"
	"veritas-scraper/internal/usecase/scrape"
)

// Service runs pipeline cycles.
type Service struct {
	scraper     *scrape.Service
	clusterer   *cluster.Engine
	objectifier *objectify.Service // nil when objectification is disabled
	articles    *store.ArticleStore
	scraperLog  *store.ScraperLog
	newLog      *store.NewArticlesLog
}

// Report summarizes one completed cycle.
type Report struct {
	NewArticles  int
	ClusterStats *cluster.Stats
	Duration     time.Duration
}

// New creates the orchestrator. objectifier may be nil to skip that stage.
func New(
	scraper *scrape.Service,
	clusterer *cluster.Engine,
	objectifier *objectify.Service,
	articles *store.ArticleStore,
	scraperLog *store.ScraperLog,
	newLog *store.NewArticlesLog,
) *Service {
	return &Service{
		scraper:     scraper,
		clusterer:   clusterer,
		objectifier: objectifier,
		articles:    articles,
		scraperLog:  scraperLog,
		newLog:      newLog,
	}
}

// RunCycle executes one full cycle:
//  1. snapshot the record count
//  2. reset the new-articles log
//  3. scrape every source
//  4. recount and log the delta
//  5. run the clustering engine (mode auto-selected by the group store)
//  6. objectify new groups, when enabled
//
// Per-record errors never abort a cycle; stage-level failures do.
func (s *Service) RunCycle(ctx context.Context) (*Report, error) {
	start := time.Now()
	slog.Info("starting pipeline cycle")

	before, err := s.articles.Count()
	if err != nil {
		return nil, fmt.Errorf("count records before scrape: %w", err)
	}

	if err := s.newLog.Reset(); err != nil {
		return nil, err
	}

	if _, err := s.scraper.RunAll(ctx); err != nil {
		return nil, fmt.Errorf("scrape pass: %w", err)
	}

	after, err := s.articles.Count()
	if err != nil {
		return nil, fmt.Errorf("count records after scrape: %w", err)
	}
	delta := after - before
	if err := s.scraperLog.LogCycle(delta, time.Now()); err != nil {
		return nil, err
	}
	slog.Info("scrape stage finished", slog.Int("new_records", delta))

	clusterStats, err := s.clusterer.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("clustering pass: %w", err)
	}

	if s.objectifier != nil {
		if _, err := s.objectifier.Run(ctx); err != nil {
			// Objectification failures must not block the next scrape cycle;
			// unprocessed groups are retried automatically.
			slog.Warn("objectification pass failed", slog.Any("error", err))
		}
	}

	report := &Report{
		NewArticles:  delta,
		ClusterStats: clusterStats,
		Duration:     time.Since(start),
	}
	metrics.RecordCycle(report.Duration, report.NewArticles)

	slog.Info("pipeline cycle completed",
		slog.Int("new_articles", report.NewArticles),
		slog.String("clusters", clusterStats.String()),
		slog.Duration("duration", report.Duration))

	return report, nil
}
