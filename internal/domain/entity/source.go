package entity

import (
	"errors"
	"fmt"
	"net/url"
)

// SelectorSet is one candidate CSS selector combination for extracting an
// article body. Sets are tried in order; the first one yielding a non-empty
// paragraph list wins.
type SelectorSet struct {
	// Paragraphs selects the body paragraph elements (joined with spaces).
	Paragraphs string `yaml:"paragraphs"`
}

// Source describes one news site: where its listings live, how article URLs
// are recognized, and how article pages are extracted.
type Source struct {
	// Slug is the source identifier used in record ids and ledger filenames.
	Slug string `yaml:"slug"`

	// Name is the human-readable display name.
	Name string `yaml:"name"`

	// BaseURL is the listing root for paginated HTML discovery.
	BaseURL string `yaml:"base_url"`

	// RSSURLs, when non-empty, switches discovery to RSS mode over these feeds.
	RSSURLs []string `yaml:"rss_urls,omitempty"`

	// ListingPages optionally overrides the pages discovery walks instead of
	// {base_url}?page={p}. Used by sources that paginate per category.
	ListingPages []string `yaml:"listing_pages,omitempty"`

	// Profile is the ordered list of selector sets the extractor tries before
	// falling back to the generic strategies. Empty means generic-only.
	Profile []SelectorSet `yaml:"profile,omitempty"`

	// TitleSelector overrides the default h1/h2 title lookup.
	TitleSelector string `yaml:"title_selector,omitempty"`

	// GenreOverride, when set, replaces the genre-from-URL derivation.
	GenreOverride string `yaml:"genre_override,omitempty"`
}

// ErrMissingSlug is returned when a source has no identifier.
var ErrMissingSlug = errors.New("source slug is required")

// Validate checks that the source carries enough configuration to be scraped.
// RSS sources need at least one feed URL; HTML sources need a parseable base URL.
func (s *Source) Validate() error {
	if s.Slug == "" {
		return ErrMissingSlug
	}
	if len(s.RSSURLs) == 0 && s.BaseURL == "" {
		return fmt.Errorf("source %s: base_url or rss_urls required", s.Slug)
	}
	if s.BaseURL != "" {
		u, err := url.Parse(s.BaseURL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("source %s: invalid base_url %q", s.Slug, s.BaseURL)
		}
	}
	return nil
}

// UsesRSS reports whether discovery should use the RSS feeds for this source.
func (s *Source) UsesRSS() bool {
	return len(s.RSSURLs) > 0
}

// Host returns the hostname of the base URL, or "" when it cannot be parsed.
func (s *Source) Host() string {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return ""
	}
	return u.Host
}
