package extractor

import (
	"bytes"
	"log/slog"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// readabilityText extracts the main article text with go-readability.
// Used only when every selector strategy came up empty; sites redesign faster
// than selector profiles get updated, and this keeps those records usable
// until the profile catches up.
func readabilityText(html []byte, pageURL string) string {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	article, err := readability.FromReader(bytes.NewReader(html), parsedURL)
	if err != nil {
		slog.Debug("readability extraction failed",
			slog.String("url", pageURL),
			slog.Any("error", err))
		return ""
	}

	return strings.TrimSpace(strings.Join(strings.Fields(article.TextContent), " "))
}
