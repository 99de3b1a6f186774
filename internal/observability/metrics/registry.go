// Package metrics provides centralized Prometheus metrics for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scrape metrics track discovery and article fetching per source.
var (
	// ArticlesFetchedTotal counts fetched article pages by source and outcome.
	ArticlesFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_articles_fetched_total",
			Help: "Total number of article pages fetched",
		},
		[]string{"source", "outcome"},
	)

	// ListingURLsTotal counts candidate URLs discovered per source.
	ListingURLsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_listing_urls_total",
			Help: "Total number of candidate article URLs discovered",
		},
		[]string{"source", "mode"},
	)

	// SourceScrapeDuration measures the per-source scrape duration in seconds.
	SourceScrapeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_source_duration_seconds",
			Help:    "Duration of one source scrape pass",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"source"},
	)

	// ScrapeErrorsTotal counts scrape failures by source and kind.
	ScrapeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of scrape errors",
		},
		[]string{"source", "kind"},
	)
)

// Clustering metrics track the matching engine.
var (
	// GroupsFormedTotal counts newly created groups.
	GroupsFormedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cluster_groups_formed_total",
			Help: "Total number of newly created article groups",
		},
	)

	// AttachmentsTotal counts records attached to existing groups.
	AttachmentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cluster_attachments_total",
			Help: "Total number of records attached to existing groups",
		},
	)

	// ClusterDuration measures the duration of one clustering pass in seconds.
	ClusterDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cluster_pass_duration_seconds",
			Help:    "Duration of one clustering pass",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	// EmbeddingsEncodedTotal counts texts sent through the encoder.
	EmbeddingsEncodedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cluster_embeddings_encoded_total",
			Help: "Total number of texts encoded (cache misses)",
		},
	)
)

// Cycle metrics track the orchestrator.
var (
	// CycleDuration measures full orchestrator cycle duration in seconds.
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_cycle_duration_seconds",
			Help:    "Duration of one full pipeline cycle",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// NewArticlesPerCycle tracks how many records each cycle added.
	NewArticlesPerCycle = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_new_articles_per_cycle",
			Help:    "New RawArticle records written per cycle",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// SummarizerRetriesTotal counts objectification retries by reason.
	SummarizerRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summarizer_retries_total",
			Help: "Total number of summarizer retries",
		},
		[]string{"reason"},
	)

	// SummarizerKeyRotationsTotal counts API key rotations in the pool.
	SummarizerKeyRotationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "summarizer_key_rotations_total",
			Help: "Total number of LLM API key rotations",
		},
	)
)
