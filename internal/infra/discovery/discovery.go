// Package discovery derives candidate article URLs for a source, either from
// its RSS feeds or by walking paginated HTML listing pages. It uses the gofeed
// library for feed parsing and goquery for listing pages, with retry and
// circuit breaker protection per source.
package discovery

import (
	"context"
	"log/slog"

	"veritas-scraper/internal/domain/entity"
	"veritas-scraper/internal/observability/metrics"
)

// Discoverer produces the bounded candidate URL set for one source per cycle.
type Discoverer struct {
	rss        *RSSLister
	pagination *PageLister
	bound      int
}

// New creates a Discoverer. bound caps the candidate set per source.
func New(rss *RSSLister, pagination *PageLister, bound int) *Discoverer {
	return &Discoverer{rss: rss, pagination: pagination, bound: bound}
}

// Discover returns candidate article URLs for the source, newest-listed first,
// deduplicated and capped at the configured bound. The mode is chosen by the
// registry: sources with RSS feeds use them, everything else paginates HTML.
func (d *Discoverer) Discover(ctx context.Context, src *entity.Source) ([]string, error) {
	if src.UsesRSS() {
		urls, err := d.rss.List(ctx, src, d.bound)
		if err != nil {
			return nil, err
		}
		metrics.RecordListingURLs(src.Slug, "rss", len(urls))
		slog.Info("discovery completed",
			slog.String("source", src.Slug),
			slog.String("mode", "rss"),
			slog.Int("urls", len(urls)))
		return urls, nil
	}

	urls, err := d.pagination.List(ctx, src, d.bound)
	if err != nil {
		return nil, err
	}
	metrics.RecordListingURLs(src.Slug, "pagination", len(urls))
	slog.Info("discovery completed",
		slog.String("source", src.Slug),
		slog.String("mode", "pagination"),
		slog.Int("urls", len(urls)))
	return urls, nil
}
