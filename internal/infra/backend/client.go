// Package backend delivers objectified articles to the external insert
// endpoint as multipart/form-data. The endpoint itself is outside this
// system; only the wire contract lives here.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"veritas-scraper/internal/domain/entity"
	"veritas-scraper/internal/utils/text"
)

// fieldLimit caps the backend's bounded varchar columns.
const fieldLimit = 100

// Client posts ObjectifiedArticle records to the insert endpoint.
type Client struct {
	insertURL string
	http      *http.Client
}

// New creates a Client for the given insert URL.
func New(insertURL string) *Client {
	return &Client{
		insertURL: insertURL,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

// NewWithHTTPClient creates a Client with a custom http.Client, for tests.
func NewWithHTTPClient(insertURL string, hc *http.Client) *Client {
	return &Client{insertURL: insertURL, http: hc}
}

// Send posts the article and, when imagePath names an existing file, attaches
// it as the image field. Success is exactly HTTP 201.
func (c *Client) Send(ctx context.Context, article entity.ObjectifiedArticle, imagePath string) error {
	prepared := prepare(article)

	data, err := json.Marshal(prepared)
	if err != nil {
		return fmt.Errorf("marshal article: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("data", string(data)); err != nil {
		return fmt.Errorf("write data field: %w", err)
	}

	if imagePath != "" {
		if err := attachImage(writer, imagePath); err != nil {
			// A missing or unreadable image never blocks delivery.
			slog.Warn("skipping image attachment",
				slog.String("path", imagePath),
				slog.Any("error", err))
		}
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.insertURL, &body)
	if err != nil {
		return fmt.Errorf("create insert request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post article: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("insert rejected with %s: %s", resp.Status, detail)
	}

	return nil
}

// prepare applies the backend's field rules: bounded varchar truncation and
// source URLs collapsed to bare site names.
func prepare(a entity.ObjectifiedArticle) entity.ObjectifiedArticle {
	a.ArticleID = text.TruncateRunes(a.ArticleID, fieldLimit)
	a.Category = text.TruncateRunes(a.Category, fieldLimit)
	if a.Location != nil {
		loc := text.TruncateRunes(*a.Location, fieldLimit)
		a.Location = &loc
	}

	names := make([]string, 0, len(a.Source))
	for _, s := range a.Source {
		names = append(names, SourceName(s))
	}
	a.Source = names

	return a
}

// SourceName reduces a source URL to its bare site name: "sozcu" from
// "https://www.sozcu.com.tr/gundem/x". Values that are not URLs pass through.
func SourceName(source string) string {
	u, err := url.Parse(source)
	if err != nil || u.Host == "" {
		return source
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	if i := strings.Index(host, "."); i > 0 {
		return host[:i]
	}
	return host
}

func attachImage(writer *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	part, err := writer.CreateFormFile("image", "image.jpg")
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	return nil
}
