package metrics

import "time"

// RecordArticleFetched records one article page fetch with its outcome.
// Outcome should be "ok", "empty", "blocked" or "error".
func RecordArticleFetched(source, outcome string) {
	ArticlesFetchedTotal.WithLabelValues(source, outcome).Inc()
}

// RecordListingURLs records the candidate URLs a discovery pass produced.
// Mode is "rss" or "pagination".
func RecordListingURLs(source, mode string, count int) {
	ListingURLsTotal.WithLabelValues(source, mode).Add(float64(count))
}

// RecordSourceScrape records the duration of a full per-source scrape pass.
func RecordSourceScrape(source string, duration time.Duration) {
	SourceScrapeDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordScrapeError records a scrape failure.
// Kind should be "listing", "fetch", "extract" or "store".
func RecordScrapeError(source, kind string) {
	ScrapeErrorsTotal.WithLabelValues(source, kind).Inc()
}

// RecordClusterPass records the outcome of one clustering pass.
func RecordClusterPass(duration time.Duration, newGroups, attached int) {
	ClusterDuration.Observe(duration.Seconds())
	GroupsFormedTotal.Add(float64(newGroups))
	AttachmentsTotal.Add(float64(attached))
}

// RecordEmbeddingsEncoded records encoder cache misses that were encoded.
func RecordEmbeddingsEncoded(count int) {
	EmbeddingsEncodedTotal.Add(float64(count))
}

// RecordCycle records one full orchestrator cycle.
func RecordCycle(duration time.Duration, newArticles int) {
	CycleDuration.Observe(duration.Seconds())
	NewArticlesPerCycle.Observe(float64(newArticles))
}

// RecordSummarizerRetry records a summarizer retry by reason
// ("rate_limit", "error").
func RecordSummarizerRetry(reason string) {
	SummarizerRetriesTotal.WithLabelValues(reason).Inc()
}

// RecordKeyRotation records an LLM API key rotation.
func RecordKeyRotation() {
	SummarizerKeyRotationsTotal.Inc()
}
