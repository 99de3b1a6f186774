package encoder

import (
	"context"
	"fmt"
	"log/slog"

	"veritas-scraper/internal/infra/store"
	"veritas-scraper/internal/observability/metrics"
)

// CachingEncoder batches cache misses through the wrapped Encoder and persists
// the results. Records already cached are never re-encoded, which is what
// makes repeated cycles cheap and clustering incremental across runs.
type CachingEncoder struct {
	inner     Encoder
	cache     *store.EmbeddingCache
	batchSize int
}

// NewCachingEncoder wraps an Encoder with the persistent cache.
func NewCachingEncoder(inner Encoder, cache *store.EmbeddingCache, batchSize int) *CachingEncoder {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &CachingEncoder{inner: inner, cache: cache, batchSize: batchSize}
}

// EnsureCached encodes every id whose vector is missing from the cache, in
// batches. A failed batch is split in half and each half retried, recursively
// down to single ids; a single id that still fails is logged and skipped
// without corrupting the cache. The cache is flushed once at the end.
func (c *CachingEncoder) EnsureCached(ctx context.Context, ids, texts []string) error {
	if len(ids) != len(texts) {
		return fmt.Errorf("ids/texts length mismatch: %d vs %d", len(ids), len(texts))
	}

	var missIDs, missTexts []string
	for i, id := range ids {
		if !c.cache.Has(id) {
			missIDs = append(missIDs, id)
			missTexts = append(missTexts, texts[i])
		}
	}
	if len(missIDs) == 0 {
		return nil
	}

	slog.Info("encoding uncached records",
		slog.Int("misses", len(missIDs)),
		slog.Int("batch_size", c.batchSize))

	encoded := 0
	for start := 0; start < len(missIDs); start += c.batchSize {
		end := start + c.batchSize
		if end > len(missIDs) {
			end = len(missIDs)
		}
		encoded += c.encodeBatch(ctx, missIDs[start:end], missTexts[start:end])
	}

	metrics.RecordEmbeddingsEncoded(encoded)
	if err := c.cache.Flush(); err != nil {
		return fmt.Errorf("flush embedding cache: %w", err)
	}
	return nil
}

// encodeBatch encodes one batch; on failure it recurses into both halves until
// single ids remain.
// Returns the number of vectors cached.
func (c *CachingEncoder) encodeBatch(ctx context.Context, ids, texts []string) int {
	vectors, err := c.inner.Encode(ctx, texts)
	if err == nil {
		for i, id := range ids {
			c.cache.Put(id, vectors[i])
		}
		return len(ids)
	}

	if len(ids) == 1 {
		slog.Error("encoding failed for record, skipping",
			slog.String("record_id", ids[0]),
			slog.Any("error", err))
		return 0
	}

	slog.Warn("batch encoding failed, retrying in halves",
		slog.Int("batch", len(ids)),
		slog.Any("error", err))

	mid := len(ids) / 2
	return c.encodeBatch(ctx, ids[:mid], texts[:mid]) +
		c.encodeBatch(ctx, ids[mid:], texts[mid:])
}

// Vector returns the cached vector for a record id.
func (c *CachingEncoder) Vector(id string) ([]float32, bool) {
	return c.cache.Get(id)
}
