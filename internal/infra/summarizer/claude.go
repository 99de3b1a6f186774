package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"veritas-scraper/internal/domain/entity"
	"veritas-scraper/internal/resilience/circuitbreaker"
	"veritas-scraper/internal/resilience/retry"
)

// Claude implements Summarizer on Anthropic's Claude API. It is the alternate
// provider for deployments without Gemini access; there is no key pool, a
// single key with retry and a circuit breaker covers it.
type Claude struct {
	client         anthropic.Client
	model          string
	maxTokens      int64
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewClaude creates a Claude summarizer with the given API key.
func NewClaude(apiKey string) *Claude {
	return &Claude{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:          string(anthropic.ModelClaudeSonnet4_5_20250929),
		maxTokens:      1024,
		circuitBreaker: circuitbreaker.New(circuitbreaker.LLMConfig()),
		retryConfig:    retry.LLMConfig(),
	}
}

// Summarize runs the four objectification prompts. Prompt failures after
// retries degrade to the error placeholder like the Gemini adapter.
func (c *Claude) Summarize(ctx context.Context, combined string) (*ClusterSummary, error) {
	title, err := c.generate(ctx, titlePrompt+"\n"+combined)
	if err != nil {
		return nil, err
	}
	short, err := c.generate(ctx, shortSummaryPrompt+"\n"+combined)
	if err != nil {
		return nil, err
	}
	long, err := c.generate(ctx, longSummaryPrompt+"\n"+combined)
	if err != nil {
		return nil, err
	}
	category, err := c.generate(ctx, categoryPrompt()+"\n"+combined)
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

// generate runs one prompt through retry and the circuit breaker. Exhausted
// retries yield the placeholder; only context cancellation is an error.
func (c *Claude) generate(ctx context.Context, prompt string) (string, error) {
	var result string

	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		cbResult, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doGenerate(ctx, prompt)
		})
		if err != nil {
			return err
		}
		result = cbResult.(string)
		return nil
	})
	if retryErr != nil {
		if errors.Is(retryErr, context.Canceled) || errors.Is(retryErr, context.DeadlineExceeded) {
			return "", retryErr
		}
		return ErrorPlaceholder, nil
	}

	return result, nil
}

func (c *Claude) doGenerate(ctx context.Context, prompt string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude api error: %w", err)
	}
	if len(message.Content) == 0 {
		return "", fmt.Errorf("claude api returned empty response")
	}

	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", fmt.Errorf("claude api returned unexpected response type")
	}
	return strings.TrimSpace(textBlock.Text), nil
}
