// Package entity defines the core domain entities and validation logic for the pipeline.
// It contains the fundamental business objects such as RawArticle, Source and
// ObjectifiedArticle, along with their validation rules and domain-specific errors.
package entity

import (
	"strings"
	"time"
	"unicode"
)

// MinClusterWords is the minimum word count a RawArticle needs to be eligible
// for clustering. Shorter records are never clustered and stay in the pulled
// store.
const MinClusterWords = 50

// RawArticle represents a single fetched-and-parsed news page.
// It is immutable after creation; the persisted JSON file is the record of truth
// and the filename doubles as the record id.
type RawArticle struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	Genre       string `json:"genre"`
	ArticleDate string `json:"article_date"`
	RequestDate string `json:"request_date"`
	IsEmpty     bool   `json:"is_empty"`
	Image       string `json:"image,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NewRawArticle builds a RawArticle, filling the derived fields.
// articleDate falls back to the fetch time when the page carried no date.
func NewRawArticle(source, url, title, content, genre, articleDate, image string, fetchedAt time.Time) RawArticle {
	if articleDate == "" {
		articleDate = fetchedAt.Format(time.RFC3339)
	}
	return RawArticle{
		Title:       title,
		Content:     content,
		URL:         url,
		Source:      source,
		Genre:       genre,
		ArticleDate: articleDate,
		RequestDate: fetchedAt.Format(time.RFC3339),
		IsEmpty:     len(strings.TrimSpace(content)) == 0,
		Image:       image,
	}
}

// FailedRawArticle builds the empty-content record written for a URL that could
// not be fetched or was blocked. The error string is preserved on the record so
// downstream stages can tell scrape failures from genuinely empty pages.
func FailedRawArticle(source, url, title, errMsg string, fetchedAt time.Time) RawArticle {
	now := fetchedAt.Format(time.RFC3339)
	return RawArticle{
		Title:       title,
		URL:         url,
		Source:      source,
		Genre:       "unknown",
		ArticleDate: now,
		RequestDate: now,
		IsEmpty:     true,
		Error:       errMsg,
	}
}

// RecordID returns the stable record id for this article:
// {source}_{YYYY-MM-DD}_{slugified-title}.json
// The id is the filename the article store persists the record under.
func (a RawArticle) RecordID() string {
	date := a.ArticleDate
	if len(date) > 10 {
		date = date[:10]
	}
	return a.Source + "_" + date + "_" + SlugifyTitle(a.Title) + ".json"
}

// WordCount returns the number of whitespace-separated words in the content.
func (a RawArticle) WordCount() int {
	return len(strings.Fields(a.Content))
}

// Eligible reports whether the article qualifies for clustering.
func (a RawArticle) Eligible() bool {
	return !a.IsEmpty && a.WordCount() >= MinClusterWords
}

// EmbedText returns the text fed to the sentence encoder. The title is doubled
// to up-weight the headline relative to the body.
func (a RawArticle) EmbedText() string {
	title := strings.TrimSpace(a.Title)
	content := strings.TrimSpace(a.Content)
	return title + ". " + title + ". " + content
}

// SlugifyTitle converts a title into the filename-safe slug used in record ids.
// Every non-alphanumeric rune becomes an underscore and the result is capped at
// 50 runes, matching the historical record naming so ids stay stable.
func SlugifyTitle(title string) string {
	var b strings.Builder
	count := 0
	for _, r := range title {
		if count >= 50 {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
		count++
	}
	return b.String()
}
