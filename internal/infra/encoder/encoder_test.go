package encoder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas-scraper/internal/infra/store"
)

func TestHTTPEncoder_Encode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req encodeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "paraphrase-multilingual-MiniLM-L12-v2", req.Model)

		resp := encodeResponse{Embeddings: make([][]float32, len(req.Texts))}
		for i := range req.Texts {
			resp.Embeddings[i] = []float32{float32(i), 1}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	e := NewHTTPEncoder(server.URL, "paraphrase-multilingual-MiniLM-L12-v2")
	vectors, err := e.Encode(context.Background(), []string{"bir", "iki", "üç"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{2, 1}, vectors[2])
}

func TestHTTPEncoder_CountMismatchIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(encodeResponse{Embeddings: [][]float32{{1}}})
	}))
	defer server.Close()

	e := NewHTTPEncoder(server.URL, "m")
	_, err := e.Encode(context.Background(), []string{"bir", "iki"})
	assert.Error(t, err)
}

func TestHTTPEncoder_EmptyBatchIsNoop(t *testing.T) {
	e := NewHTTPEncoder("http://localhost:0/encode", "m")
	vectors, err := e.Encode(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

// stubEncoder fails whole batches containing a poisoned text.
type stubEncoder struct {
	mu     sync.Mutex
	calls  [][]string
	poison string
}

func (s *stubEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	s.calls = append(s.calls, append([]string(nil), texts...))
	s.mu.Unlock()

	for _, text := range texts {
		if text == s.poison {
			return nil, errors.New("model choked")
		}
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i]))}
	}
	return out, nil
}

func newTestCache(t *testing.T) *store.EmbeddingCache {
	t.Helper()
	c, err := store.OpenEmbeddingCache(filepath.Join(t.TempDir(), "embedding_cache.json"))
	require.NoError(t, err)
	return c
}

func TestCachingEncoder_SkipsCachedIDs(t *testing.T) {
	cache := newTestCache(t)
	cache.Put("a.json", []float32{9})

	stub := &stubEncoder{}
	c := NewCachingEncoder(stub, cache, 32)

	err := c.EnsureCached(context.Background(), []string{"a.json", "b.json"}, []string{"ta", "tb"})
	require.NoError(t, err)

	require.Len(t, stub.calls, 1)
	assert.Equal(t, []string{"tb"}, stub.calls[0])

	v, ok := c.Vector("a.json")
	require.True(t, ok)
	assert.Equal(t, []float32{9}, v, "cached vector must not be overwritten")
}

func TestCachingEncoder_Batches(t *testing.T) {
	cache := newTestCache(t)
	stub := &stubEncoder{}
	c := NewCachingEncoder(stub, cache, 2)

	ids := []string{"a.json", "b.json", "c.json", "d.json", "e.json"}
	texts := []string{"t1", "t2", "t3", "t4", "t5"}

	require.NoError(t, c.EnsureCached(context.Background(), ids, texts))
	assert.Len(t, stub.calls, 3, "5 misses at batch size 2 -> 3 batches")
	assert.Equal(t, 5, cache.Len())
}

func TestCachingEncoder_PoisonedRecordSkippedWithoutCorruption(t *testing.T) {
	cache := newTestCache(t)
	stub := &stubEncoder{poison: "zehirli"}
	c := NewCachingEncoder(stub, cache, 4)

	ids := []string{"a.json", "b.json", "c.json", "d.json"}
	texts := []string{"bir", "zehirli", "üç", "dört"}

	require.NoError(t, c.EnsureCached(context.Background(), ids, texts))

	// Everything except the poisoned record is cached.
	assert.Equal(t, 3, cache.Len())
	assert.True(t, cache.Has("a.json"))
	assert.False(t, cache.Has("b.json"))
	assert.True(t, cache.Has("c.json"))
	assert.True(t, cache.Has("d.json"))
}

func TestCachingEncoder_LengthMismatch(t *testing.T) {
	c := NewCachingEncoder(&stubEncoder{}, newTestCache(t), 4)
	err := c.EnsureCached(context.Background(), []string{"a"}, []string{"x", "y"})
	assert.Error(t, err)
}
