package summarizer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas-scraper/internal/domain/entity"
)

// fakeGeminiClient answers prompts from a script keyed by prompt prefix and
// records which API key each call used.
type fakeGeminiClient struct {
	key  string
	fake *fakeGemini
}

type fakeGemini struct {
	mu       sync.Mutex
	keysUsed []string
	// failFor marks keys whose calls always fail, with the error to return.
	failFor map[string]error
	answers map[string]string
}

func (f *fakeGemini) newClient(_ context.Context, apiKey string) (geminiClient, error) {
	return &fakeGeminiClient{key: apiKey, fake: f}, nil
}

func (c *fakeGeminiClient) Generate(_ context.Context, _, prompt string) (string, error) {
	c.fake.mu.Lock()
	c.fake.keysUsed = append(c.fake.keysUsed, c.key)
	c.fake.mu.Unlock()

	if err, bad := c.fake.failFor[c.key]; bad {
		return "", err
	}
	for prefix, answer := range c.fake.answers {
		if strings.HasPrefix(prompt, prefix) {
			return answer, nil
		}
	}
	return "cevap", nil
}

func (c *fakeGeminiClient) Close() error { return nil }

func newFakeGemini(keys []string, fake *fakeGemini) *Gemini {
	g := NewGemini(keys)
	g.newClient = fake.newClient
	return g
}

func shortDelaysForTest(t *testing.T) {
	t.Helper()
	saved := retryDelays
	retryDelays = []time.Duration{0, 0, 0}
	t.Cleanup(func() { retryDelays = saved })
}

func TestGemini_SummarizeHappyPath(t *testing.T) {
	fake := &fakeGemini{
		answers: map[string]string{
			titlePrompt:         "Deprem Sonrası Gelişmeler",
			shortSummaryPrompt:  "Bölgede arama çalışmaları sürüyor.",
			longSummaryPrompt:   "Arama kurtarma ekipleri bölgede çalışmalarını sürdürüyor.",
			categoryPromptStart: "Siyaset",
		},
	}
	g := newFakeGemini([]string{"key-a"}, fake)

	s, err := g.Summarize(context.Background(), "birleşik içerik")
	require.NoError(t, err)

	assert.Equal(t, "Deprem Sonrası Gelişmeler", s.Title)
	assert.Equal(t, "Bölgede arama çalışmaları sürüyor.", s.Summary)
	assert.Equal(t, "Siyaset", s.Category)
}

func TestGemini_UnknownCategoryFallsBack(t *testing.T) {
	fake := &fakeGemini{
		answers: map[string]string{categoryPromptStart: "Uydurma Kategori"},
	}
	g := newFakeGemini([]string{"key-a"}, fake)

	s, err := g.Summarize(context.Background(), "içerik")
	require.NoError(t, err)
	assert.Equal(t, entity.CategoryFallback, s.Category)
}

func TestGemini_RotatesKeysOnFailure(t *testing.T) {
	shortDelaysForTest(t)
	fake := &fakeGemini{
		failFor: map[string]error{"key-a": errors.New("googleapi: Error 429: quota exceeded")},
		answers: map[string]string{},
	}
	g := newFakeGemini([]string{"key-a", "key-b"}, fake)

	s, err := g.Summarize(context.Background(), "içerik")
	require.NoError(t, err)

	// The first call fails on key-a and every subsequent call runs on key-b.
	assert.Equal(t, "key-a", fake.keysUsed[0])
	for _, k := range fake.keysUsed[1:] {
		assert.Equal(t, "key-b", k)
	}
	assert.NotEqual(t, ErrorPlaceholder, s.Title)
}

func TestGemini_ExhaustedRetriesYieldPlaceholder(t *testing.T) {
	shortDelaysForTest(t)
	fake := &fakeGemini{
		failFor: map[string]error{"key-a": errors.New("boom")},
	}
	g := newFakeGemini([]string{"key-a"}, fake)

	s, err := g.Summarize(context.Background(), "içerik")
	require.NoError(t, err, "placeholder output, not an error")

	assert.Equal(t, ErrorPlaceholder, s.Title)
	assert.Equal(t, ErrorPlaceholder, s.Summary)
	assert.Equal(t, ErrorPlaceholder, s.Category)
}

func TestGemini_NoKeys(t *testing.T) {
	g := NewGemini(nil)
	_, err := g.Summarize(context.Background(), "içerik")
	assert.True(t, errors.Is(err, ErrNoKeys))
}

func TestGemini_ContextCancellation(t *testing.T) {
	fake := &fakeGemini{
		failFor: map[string]error{"key-a": context.Canceled},
	}
	g := newFakeGemini([]string{"key-a"}, fake)

	_, err := g.Summarize(context.Background(), "içerik")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNoopSummarizer(t *testing.T) {
	s, err := NewNoop().Summarize(context.Background(), "içerik")
	require.NoError(t, err)
	assert.NotEmpty(t, s.Title)
	assert.Equal(t, entity.CategoryFallback, s.Category)
}
