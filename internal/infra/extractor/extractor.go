// Package extractor turns fetched HTML into RawArticle records. Extraction is
// dispatched per source: a source-specific selector profile runs first, then
// JSON-LD structured data, then a generic selector fallback, and finally a
// readability pass for pages none of the selectors understand.
package extractor

import (
	"bytes"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"veritas-scraper/internal/domain/entity"
)

// genericParagraphSelectors is the fallback body selector chain used when a
// source has no profile or its profile matched nothing.
const genericParagraphSelectors = `article p, div[class*="content"] p, div[class*="article-body"] p`

// dateMetaSelectors is the ordered list of meta tags checked for the
// publication date.
var dateMetaSelectors = []string{
	`meta[property="article:published_time"]`,
	`meta[name="date"]`,
	`meta[name="publish_date"]`,
	`meta[name="article:modified_time"]`,
}

// Extractor parses article pages. It is stateless and safe for concurrent use.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract produces a RawArticle from the page HTML. It never returns an error:
// unparseable or empty pages yield a record with IsEmpty=true, and blocked
// pages carry the blocked error marker, so the URL still lands in the store
// and the ledger.
func (e *Extractor) Extract(src *entity.Source, pageURL string, html []byte, fetchedAt time.Time) entity.RawArticle {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return entity.FailedRawArticle(src.Slug, pageURL, "", "parse error: "+err.Error(), fetchedAt)
	}

	title := e.extractTitle(doc, src)

	// Anti-bot interstitials render a page with a telltale title and no body.
	if isBlockedTitle(title) {
		a := entity.FailedRawArticle(src.Slug, pageURL, title, entity.BlockedErrorMessage, fetchedAt)
		a.Genre = genreFor(src, pageURL)
		return a
	}

	content, articleDate := e.extractBody(doc, src, pageURL, html)

	if title == "" {
		if ld := parseJSONLD(doc); ld != nil && ld.Headline != "" {
			title = ld.Headline
		}
	}

	image := extractImage(doc)
	genre := genreFor(src, pageURL)

	return entity.NewRawArticle(src.Slug, pageURL, title, content, genre, articleDate, image, fetchedAt)
}

// extractBody runs the dispatch chain and returns the body text and the
// article date string ("" when the page carried none).
func (e *Extractor) extractBody(doc *goquery.Document, src *entity.Source, pageURL string, html []byte) (string, string) {
	// 1. Source-specific selector profile, first non-empty set wins.
	for _, set := range src.Profile {
		if text := joinParagraphs(doc, set.Paragraphs); text != "" {
			return text, extractMetaDate(doc)
		}
	}

	// 2. JSON-LD structured data. Only used when no profile matched: profiled
	// sources ship JSON-LD teasers that truncate the body.
	if len(src.Profile) == 0 {
		if ld := parseJSONLD(doc); ld != nil && strings.TrimSpace(ld.ArticleBody) != "" {
			return strings.TrimSpace(ld.ArticleBody), normalizeDate(ld.DatePublished)
		}
	}

	// 3. Generic selector fallback.
	if text := joinParagraphs(doc, genericParagraphSelectors); text != "" {
		return text, extractMetaDate(doc)
	}

	// 4. Readability as the last resort.
	if text := readabilityText(html, pageURL); text != "" {
		return text, extractMetaDate(doc)
	}

	return "", extractMetaDate(doc)
}

// extractTitle applies the source's title override, then the default chain:
// h1, h2, og:title, meta[name=title].
func (e *Extractor) extractTitle(doc *goquery.Document, src *entity.Source) string {
	if src.TitleSelector != "" {
		if t := strings.TrimSpace(doc.Find(src.TitleSelector).First().Text()); t != "" {
			return t
		}
	}
	for _, sel := range []string{"h1", "h2"} {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	for _, sel := range []string{`meta[property="og:title"]`, `meta[name="title"]`} {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if t := strings.TrimSpace(content); t != "" {
				return t
			}
		}
	}
	return ""
}

// joinParagraphs joins the trimmed text of every element matched by the
// selector with single spaces. Returns "" when nothing matched.
func joinParagraphs(doc *goquery.Document, selector string) string {
	var parts []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

// extractMetaDate walks the date meta chain and returns the first value.
func extractMetaDate(doc *goquery.Document) string {
	for _, sel := range dateMetaSelectors {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if d := strings.TrimSpace(content); d != "" {
				return normalizeDate(d)
			}
		}
	}
	return ""
}

// extractImage returns the page's og:image, falling back to twitter:image.
func extractImage(doc *goquery.Document) string {
	for _, sel := range []string{`meta[property="og:image"]`, `meta[name="twitter:image"]`} {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if img := strings.TrimSpace(content); img != "" {
				return img
			}
		}
	}
	return ""
}

// genreFor derives the genre from the first non-empty URL path segment,
// lowercased, unless the source pins a fixed genre.
func genreFor(src *entity.Source, pageURL string) string {
	if src.GenreOverride != "" {
		return src.GenreOverride
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return "unknown"
	}
	for _, part := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if part != "" {
			return strings.ToLower(part)
		}
	}
	return "unknown"
}

// isBlockedTitle reports whether the page title looks like an anti-bot block.
func isBlockedTitle(title string) bool {
	lower := strings.ToLower(title)
	return strings.Contains(lower, "blocked") || strings.Contains(lower, "access denied")
}
