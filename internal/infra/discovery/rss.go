package discovery

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"

	"veritas-scraper/internal/domain/entity"
	"veritas-scraper/internal/resilience/circuitbreaker"
	"veritas-scraper/internal/resilience/retry"
)

// RSSLister collects entry links from a source's configured feeds using the
// gofeed library. Feeds are walked in registry order; a malformed or
// unreachable feed is logged and skipped, never fatal for the source.
type RSSLister struct {
	client      *http.Client
	mu          sync.Mutex
	breakers    map[string]*circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

// NewRSSLister creates an RSSLister with the given HTTP client.
func NewRSSLister(client *http.Client) *RSSLister {
	return &RSSLister{
		client:      client,
		breakers:    make(map[string]*circuitbreaker.CircuitBreaker),
		retryConfig: retry.ListingConfig(),
	}
}

// List returns up to bound entry links across the source's feeds, in feed
// order, deduplicated.
func (l *RSSLister) List(ctx context.Context, src *entity.Source, bound int) ([]string, error) {
	seen := make(map[string]struct{}, bound)
	links := make([]string, 0, bound)

	for _, feedURL := range src.RSSURLs {
		if len(links) >= bound {
			break
		}

		feed, err := l.fetchFeed(ctx, src.Slug, feedURL)
		if err != nil {
			slog.Warn("rss feed skipped",
				slog.String("source", src.Slug),
				slog.String("feed_url", feedURL),
				slog.Any("error", err))
			continue
		}

		for _, item := range feed.Items {
			if item.Link == "" {
				continue
			}
			if _, dup := seen[item.Link]; dup {
				continue
			}
			seen[item.Link] = struct{}{}
			links = append(links, item.Link)
			if len(links) >= bound {
				break
			}
		}
	}

	return links, nil
}

// fetchFeed parses one feed URL through retry and the per-source breaker.
func (l *RSSLister) fetchFeed(ctx context.Context, slug, feedURL string) (*gofeed.Feed, error) {
	var feed *gofeed.Feed

	retryErr := retry.WithBackoff(ctx, l.retryConfig, func() error {
		cbResult, err := l.breaker(slug).Execute(func() (interface{}, error) {
			fp := gofeed.NewParser()
			fp.Client = l.client
			return fp.ParseURLWithContext(feedURL, ctx)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("rss circuit breaker open, request rejected",
					slog.String("source", slug),
					slog.String("feed_url", feedURL))
			}
			return err
		}
		feed = cbResult.(*gofeed.Feed)
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	return feed, nil
}

func (l *RSSLister) breaker(slug string) *circuitbreaker.CircuitBreaker {
	l.mu.Lock()
	defer l.mu.Unlock()

	cb, ok := l.breakers[slug]
	if !ok {
		cb = circuitbreaker.New(circuitbreaker.ListingConfig(slug))
		l.breakers[slug] = cb
	}
	return cb
}
