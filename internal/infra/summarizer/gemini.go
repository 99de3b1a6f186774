package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"veritas-scraper/internal/domain/entity"
	"veritas-scraper/internal/observability/metrics"
)

// geminiModel is the Gemini model used for objectification.
const geminiModel = "gemini-1.5-flash"

// retryDelays holds one entry per attempt of one prompt; entry i is the wait
// after failed attempt i. No wait follows the last attempt, so the waits are
// 1s and 3s and the final entry is not used.
var retryDelays = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

// Gemini implements Summarizer on the Gemini API with key rotation.
// Each prompt gets up to three attempts: the first two on the rotation cursor,
// the last on the healthiest key in the pool. A prompt that exhausts its
// attempts yields the error placeholder instead of failing the whole cluster.
type Gemini struct {
	pool  *KeyPool
	model string

	// newClient is swapped in tests.
	newClient func(ctx context.Context, apiKey string) (geminiClient, error)
}

// geminiClient is the slice of the SDK client the adapter needs.
type geminiClient interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
	Close() error
}

// sdkClient adapts the real SDK.
type sdkClient struct {
	client *genai.Client
}

func (s *sdkClient) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := s.client.GenerativeModel(model).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", errors.New("gemini returned empty text")
	}
	return out, nil
}

func (s *sdkClient) Close() error {
	return s.client.Close()
}

// NewGemini creates a Gemini summarizer rotating over the given API keys.
func NewGemini(apiKeys []string) *Gemini {
	return &Gemini{
		pool:  NewKeyPool(apiKeys),
		model: geminiModel,
		newClient: func(ctx context.Context, apiKey string) (geminiClient, error) {
			c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
			if err != nil {
				return nil, err
			}
			return &sdkClient{client: c}, nil
		},
	}
}

// Summarize runs the four objectification prompts over the combined cluster
// text. Individual prompt failures degrade to the error placeholder; only a
// cancelled context or an empty key pool fail the call.
func (g *Gemini) Summarize(ctx context.Context, combined string) (*ClusterSummary, error) {
	if g.pool.Size() == 0 {
		return nil, ErrNoKeys
	}

	title, err := g.generateWithRotation(ctx, titlePrompt+"\n"+combined)
	if err != nil {
		return nil, err
	}
	short, err := g.generateWithRotation(ctx, shortSummaryPrompt+"\n"+combined)
	if err != nil {
		return nil, err
	}
	long, err := g.generateWithRotation(ctx, longSummaryPrompt+"\n"+combined)
	if err != nil {
		return nil, err
	}
	category, err := g.generateWithRotation(ctx, categoryPrompt()+"\n"+combined)
	if err != nil {
		return nil, err
	}

	if category != ErrorPlaceholder {
		category = entity.NormalizeCategory(strings.TrimSpace(category))
	}

	return &ClusterSummary{
		Title:         title,
		Summary:       short,
		LongerSummary: long,
		Category:      category,
	}, nil
}

// generateWithRotation runs one prompt with key rotation and backoff.
// Returns ErrorPlaceholder after the final failed attempt; returns an error
// only for context cancellation.
func (g *Gemini) generateWithRotation(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt < len(retryDelays); attempt++ {
		var key string
		var err error
		if attempt == len(retryDelays)-1 {
			key, err = g.pool.Healthiest()
		} else {
			key, err = g.pool.Current()
		}
		if err != nil {
			return "", err
		}

		text, err := g.generateOnce(ctx, key, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}

		g.pool.ReportError(key)
		reason := "error"
		if isRateLimited(err) {
			reason = "rate_limit"
		}
		metrics.RecordSummarizerRetry(reason)

		slog.Warn("gemini generation failed, rotating key",
			slog.Int("attempt", attempt+1),
			slog.String("reason", reason),
			slog.Any("error", err))

		if attempt < len(retryDelays)-1 {
			select {
			case <-time.After(retryDelays[attempt]):
			case <-ctx.Done():
				return "", fmt.Errorf("summarize aborted: %w", ctx.Err())
			}
		}
	}

	slog.Error("gemini generation exhausted retries, using placeholder",
		slog.Any("error", lastErr))
	return ErrorPlaceholder, nil
}

func (g *Gemini) generateOnce(ctx context.Context, key, prompt string) (string, error) {
	client, err := g.newClient(ctx, key)
	if err != nil {
		return "", fmt.Errorf("create gemini client: %w", err)
	}
	defer func() { _ = client.Close() }()

	return client.Generate(ctx, g.model, prompt)
}

// isRateLimited detects 429 responses across the SDK's error shapes.
func isRateLimited(err error) bool {
	return err != nil && strings.Contains(err.Error(), "429")
}

// categoryPrompt builds the category prompt from the closed category set.
func categoryPrompt() string {
	return categoryPromptStart + strings.Join(entity.Categories, "\n") + categoryPromptEnd
}
