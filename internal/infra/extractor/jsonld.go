package extractor

import (
	"encoding/json"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

// articleLD is the subset of schema.org NewsArticle/Article we read.
type articleLD struct {
	Type          string `json:"@type"`
	Headline      string `json:"headline"`
	ArticleBody   string `json:"articleBody"`
	DatePublished string `json:"datePublished"`
}

// parseJSONLD finds the first usable application/ld+json block in the page.
// Blocks holding a JSON array or an @graph wrapper are searched for the first
// element carrying a headline or body. Malformed blocks are skipped.
func parseJSONLD(doc *goquery.Document) *articleLD {
	var found *articleLD

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		raw := []byte(sel.Text())

		if ld := decodeLD(raw); ld != nil {
			found = ld
			return false
		}
		return true
	})

	return found
}

// decodeLD tries object, array and @graph layouts in that order.
func decodeLD(raw []byte) *articleLD {
	var obj articleLD
	if err := json.Unmarshal(raw, &obj); err == nil && usable(&obj) {
		return &obj
	}

	var arr []articleLD
	if err := json.Unmarshal(raw, &arr); err == nil {
		for i := range arr {
			if usable(&arr[i]) {
				return &arr[i]
			}
		}
	}

	var graph struct {
		Graph []articleLD `json:"@graph"`
	}
	if err := json.Unmarshal(raw, &graph); err == nil {
		for i := range graph.Graph {
			if usable(&graph.Graph[i]) {
				return &graph.Graph[i]
			}
		}
	}

	return nil
}

func usable(ld *articleLD) bool {
	return ld.Headline != "" || ld.ArticleBody != ""
}

// normalizeDate parses the many date formats news sites emit and returns
// RFC3339. Unparseable values pass through untouched; the record still carries
// whatever the page said.
func normalizeDate(raw string) string {
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return raw
	}
	return t.Format(time.RFC3339)
}
