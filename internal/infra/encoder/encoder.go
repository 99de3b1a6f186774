// Package encoder wraps the multilingual sentence encoder behind a small
// interface. The primary adapter talks HTTP to a local model server hosting
// the MiniLM model; an OpenAI-backed adapter exists as an alternate provider.
// The caching layer batches cache misses and persists vectors between runs.
package encoder

import "context"

// Encoder produces one embedding vector per input text.
// Implementations must preserve input order and return exactly one vector per
// text, or an error for the whole batch.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}
