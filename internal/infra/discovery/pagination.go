package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker"

	"veritas-scraper/internal/domain/entity"
	"veritas-scraper/internal/infra/fetcher"
	"veritas-scraper/internal/resilience/circuitbreaker"
	"veritas-scraper/internal/resilience/retry"
)

// PageLister walks paginated HTML listing pages and collects article links.
// A link is accepted iff it resolves to the source's own host, matches one of
// the accept substrings, and matches none of the reject substrings.
type PageLister struct {
	client   *fetcher.Client
	accept   []string
	reject   []string
	maxPages int
	// stagnationLimit stops pagination after this many consecutive pages that
	// contributed zero new URLs; deep pages on most sources repeat the sidebar.
	stagnationLimit int
	retryConfig     retry.Config

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.CircuitBreaker
}

// NewPageLister creates a PageLister.
func NewPageLister(client *fetcher.Client, accept, reject []string, maxPages, stagnationLimit int) *PageLister {
	return &PageLister{
		client:          client,
		accept:          accept,
		reject:          reject,
		maxPages:        maxPages,
		stagnationLimit: stagnationLimit,
		retryConfig:     retry.ListingConfig(),
		breakers:        make(map[string]*circuitbreaker.CircuitBreaker),
	}
}

// List collects up to bound article URLs for the source. Sources with explicit
// listing pages walk those in order; everyone else walks {base_url}?page={p}.
func (l *PageLister) List(ctx context.Context, src *entity.Source, bound int) ([]string, error) {
	base, err := url.Parse(src.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url for %s: %w", src.Slug, err)
	}

	pages := src.ListingPages
	if len(pages) == 0 {
		pages = make([]string, 0, l.maxPages)
		for p := 1; p <= l.maxPages; p++ {
			pages = append(pages, fmt.Sprintf("%s?page=%d", src.BaseURL, p))
		}
	}

	seen := make(map[string]struct{}, bound)
	urls := make([]string, 0, bound)
	stagnant := 0

	for i, pageURL := range pages {
		if len(urls) >= bound {
			break
		}

		body, err := l.fetchPage(ctx, src.Slug, pageURL)
		if err != nil {
			slog.Warn("listing page fetch failed, stopping pagination",
				slog.String("source", src.Slug),
				slog.String("page_url", pageURL),
				slog.Any("error", err))
			break
		}

		added := l.collectLinks(body, base, seen, &urls, bound)

		slog.Debug("listing page scanned",
			slog.String("source", src.Slug),
			slog.Int("page", i+1),
			slog.Int("new_urls", added),
			slog.Int("total", len(urls)))

		if added == 0 {
			stagnant++
			if stagnant >= l.stagnationLimit {
				slog.Info("stopping pagination early after stagnant pages",
					slog.String("source", src.Slug),
					slog.Int("stagnant_pages", stagnant))
				break
			}
		} else {
			stagnant = 0
		}
	}

	return urls, nil
}

// collectLinks scans anchors in the page and appends accepted URLs. Returns
// the number of new URLs added.
func (l *PageLister) collectLinks(body []byte, base *url.URL, seen map[string]struct{}, urls *[]string, bound int) int {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 0
	}

	added := 0
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if len(*urls) >= bound {
			return
		}
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		full := base.ResolveReference(ref)
		full.Fragment = ""
		fullStr := full.String()

		if !l.acceptable(full, base) {
			return
		}
		if _, dup := seen[fullStr]; dup {
			return
		}
		seen[fullStr] = struct{}{}
		*urls = append(*urls, fullStr)
		added++
	})

	return added
}

// acceptable applies the host, reject and accept rules to a resolved URL.
func (l *PageLister) acceptable(u, base *url.URL) bool {
	if u.Host != base.Host {
		return false
	}
	full := u.String()
	for _, pattern := range l.reject {
		if strings.Contains(full, pattern) {
			return false
		}
	}
	for _, pattern := range l.accept {
		if strings.Contains(full, pattern) {
			return true
		}
	}
	return false
}

// fetchPage fetches one listing page through retry and the per-source breaker.
func (l *PageLister) fetchPage(ctx context.Context, slug, pageURL string) ([]byte, error) {
	var body []byte

	retryErr := retry.WithBackoff(ctx, l.retryConfig, func() error {
		cbResult, err := l.breaker(slug).Execute(func() (interface{}, error) {
			pageBody, _, err := l.client.Get(ctx, pageURL)
			return pageBody, err
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("listing circuit breaker open, request rejected",
					slog.String("source", slug),
					slog.String("page_url", pageURL))
			}
			return err
		}
		body = cbResult.([]byte)
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	return body, nil
}

func (l *PageLister) breaker(slug string) *circuitbreaker.CircuitBreaker {
	l.mu.Lock()
	defer l.mu.Unlock()

	cb, ok := l.breakers[slug]
	if !ok {
		cb = circuitbreaker.New(circuitbreaker.ListingConfig(slug))
		l.breakers[slug] = cb
	}
	return cb
}
