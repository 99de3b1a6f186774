// Package fetcher provides the shared HTTP client used for listing pages,
// article pages and RSS feeds. It enforces a desktop User-Agent, a hard
// per-request timeout, a response body cap, and per-host request throttling.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"veritas-scraper/internal/resilience/retry"
)

const (
	// maxBodySize caps response bodies to prevent memory exhaustion.
	maxBodySize = 10 * 1024 * 1024 // 10MB

	// userAgent is a desktop Chrome UA; several sources serve bot interstitials
	// to anything that does not look like a browser.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

	// defaultTimeout is the hard per-request timeout.
	defaultTimeout = 10 * time.Second

	// perHostRate is the sustained request rate allowed against one host.
	perHostRate = rate.Limit(4)

	// perHostBurst allows short bursts when a source's fetch pool fills up.
	perHostBurst = 8
)

// Client fetches URLs with throttling and body limits. It is safe for
// concurrent use; one Client is shared by all pipeline stages.
type Client struct {
	http *http.Client

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a Client with the default timeout.
func New() *Client {
	return NewWithClient(&http.Client{Timeout: defaultTimeout})
}

// NewWithClient creates a Client around the given http.Client.
// Used by tests to point at httptest servers.
func NewWithClient(hc *http.Client) *Client {
	return &Client{
		http:     hc,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Get fetches the URL and returns the body bytes and status code.
// Non-2xx responses return the status code together with a retry.HTTPError so
// callers can classify the failure; the body is not returned for them.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, 0, fmt.Errorf("parse url %q: %w", rawURL, err)
	}

	if err := c.limiter(u.Host).Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("throttle %s: %w", u.Host, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "tr-TR,tr;q=0.9,en;q=0.5")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http get %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status: %s", resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body of %s: %w", rawURL, err)
	}

	return body, resp.StatusCode, nil
}

// limiter returns the rate limiter for a host, creating it on first use.
func (c *Client) limiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.limiters[host]
	if !ok {
		l = rate.NewLimiter(perHostRate, perHostBurst)
		c.limiters[host] = l
	}
	return l
}
