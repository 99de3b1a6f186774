// Package objectify turns persisted clusters into single neutral article
// records via the LLM summarizer, writes them to the objectified output
// layout, fetches a representative image, and hands the result to the backend
// delivery client.
package objectify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"veritas-scraper/internal/domain/entity"
	"veritas-scraper/internal/infra/fetcher"
	"veritas-scraper/internal/infra/store"
	"veritas-scraper/internal/infra/summarizer"
)

// Sender delivers one objectified article, optionally with an image file.
type Sender interface {
	Send(ctx context.Context, article entity.ObjectifiedArticle, imagePath string) error
}

// Service objectifies clusters. Each group is objectified once; processed
// group ids are tracked in a ledger file under the output directory so
// repeated cycles do not produce duplicate records.
type Service struct {
	groups     *store.GroupStore
	summarizer summarizer.Summarizer
	images     *fetcher.Client
	sender     Sender
	outDir     string
}

// Stats summarizes one objectification pass.
type Stats struct {
	Groups    int
	Written   int
	Skipped   int
	SendFails int
}

// New creates a Service. sender may be nil to only write local output.
func New(groups *store.GroupStore, s summarizer.Summarizer, images *fetcher.Client, sender Sender, outDir string) *Service {
	return &Service{
		groups:     groups,
		summarizer: s,
		images:     images,
		sender:     sender,
		outDir:     outDir,
	}
}

// Run objectifies every not-yet-processed group with at least two members
// carrying content. Single-group failures are logged and retried next cycle.
func (s *Service) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := os.MkdirAll(s.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create objectified dir: %w", err)
	}

	done, err := s.loadDone()
	if err != nil {
		return nil, err
	}

	groups, err := s.groups.Groups()
	if err != nil {
		return nil, err
	}
	stats.Groups = len(groups)

	for _, g := range groups {
		if _, processed := done[g.ID]; processed {
			stats.Skipped++
			continue
		}
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		processed, err := s.processGroup(ctx, g.ID, stats)
		if err != nil {
			slog.Warn("group objectification failed, will retry next cycle",
				slog.Int("group_id", g.ID),
				slog.Any("error", err))
			continue
		}
		// Groups skipped for too few valid members stay unmarked so they are
		// revisited once more members attach.
		if processed {
			if err := s.markDone(g.ID); err != nil {
				return stats, err
			}
		}
	}

	return stats, nil
}

func (s *Service) processGroup(ctx context.Context, groupID int, stats *Stats) (bool, error) {
	articles, err := s.groups.ReadGroupArticles(groupID)
	if err != nil {
		return false, err
	}

	var contents []string
	var sources []string
	var imageURL string
	seenSources := make(map[string]struct{})
	for _, a := range articles {
		if strings.TrimSpace(a.Content) == "" {
			continue
		}
		contents = append(contents, a.Content)
		if _, dup := seenSources[a.URL]; !dup && a.URL != "" {
			seenSources[a.URL] = struct{}{}
			sources = append(sources, a.URL)
		}
		if imageURL == "" && a.Image != "" {
			imageURL = a.Image
		}
	}

	if len(contents) < 2 {
		slog.Info("not enough valid articles in group, skipping",
			slog.Int("group_id", groupID),
			slog.Int("valid", len(contents)))
		stats.Skipped++
		return false, nil
	}

	summary, err := s.summarizer.Summarize(ctx, strings.Join(contents, "\n\n"))
	if err != nil {
		return false, fmt.Errorf("summarize group %d: %w", groupID, err)
	}

	article := entity.ObjectifiedArticle{
		ArticleID:       uuid.New().String(),
		Title:           summary.Title,
		Content:         "",
		Summary:         summary.Summary,
		LongerSummary:   summary.LongerSummary,
		Category:        summary.Category,
		Tags:            []string{},
		Source:          sources,
		PopularityScore: 0,
		CreatedAt:       time.Now().Format(time.RFC3339),
	}

	dir := filepath.Join(s.outDir, articleDirName(time.Now()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create article dir: %w", err)
	}

	imagePath := ""
	if imageURL != "" {
		if p, err := s.fetchImage(ctx, imageURL, dir); err != nil {
			slog.Warn("image fetch failed",
				slog.Int("group_id", groupID),
				slog.String("image_url", imageURL),
				slog.Any("error", err))
		} else {
			imagePath = p
			name := filepath.Base(p)
			article.Image = &name
		}
	}

	path := filepath.Join(dir, "article.json")
	data, err := json.MarshalIndent(article, "", "    ")
	if err != nil {
		return false, fmt.Errorf("marshal objectified article: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write objectified article: %w", err)
	}
	stats.Written++

	slog.Info("group objectified",
		slog.Int("group_id", groupID),
		slog.String("title", summary.Title),
		slog.String("category", summary.Category),
		slog.String("path", path))

	if s.sender != nil {
		if err := s.sender.Send(ctx, article, imagePath); err != nil {
			stats.SendFails++
			slog.Warn("backend delivery failed",
				slog.Int("group_id", groupID),
				slog.Any("error", err))
		}
	}

	return true, nil
}

// fetchImage downloads the representative image next to article.json.
func (s *Service) fetchImage(ctx context.Context, imageURL, dir string) (string, error) {
	body, _, err := s.images.Get(ctx, imageURL)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "image.jpg")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return path, nil
}

// articleDirName builds article_{YYYYMMDD_HHMMSS}_{rand6}.
func articleDirName(now time.Time) string {
	rand6 := strings.ReplaceAll(uuid.New().String(), "-", "")[:6]
	return fmt.Sprintf("article_%s_%s", now.Format("20060102_150405"), rand6)
}

// doneFile tracks which group ids have already been objectified.
func (s *Service) doneFile() string {
	return filepath.Join(s.outDir, "objectified_groups.txt")
}

func (s *Service) loadDone() (map[int]struct{}, error) {
	done := make(map[int]struct{})
	raw, err := os.ReadFile(s.doneFile())
	if err != nil {
		if os.IsNotExist(err) {
			return done, nil
		}
		return nil, fmt.Errorf("read objectified ledger: %w", err)
	}
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var id int
		if _, err := fmt.Sscanf(line, "%d", &id); err == nil {
			done[id] = struct{}{}
		}
	}
	return done, nil
}

func (s *Service) markDone(groupID int) error {
	f, err := os.OpenFile(s.doneFile(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open objectified ledger: %w", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := fmt.Fprintf(f, "%d\n", groupID); err != nil {
		return fmt.Errorf("append objectified ledger: %w", err)
	}
	return nil
}
