package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"veritas-scraper/internal/resilience/circuitbreaker"
	"veritas-scraper/internal/resilience/retry"
)

// HTTPEncoder calls a sentence-transformers model server over HTTP.
// Request:  POST {"model": "...", "texts": ["...", ...]}
// Response: {"embeddings": [[...], ...]}
type HTTPEncoder struct {
	url            string
	model          string
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewHTTPEncoder creates an HTTPEncoder for the given endpoint and model name.
func NewHTTPEncoder(url, model string) *HTTPEncoder {
	return &HTTPEncoder{
		url:            url,
		model:          model,
		client:         &http.Client{Timeout: 60 * time.Second},
		circuitBreaker: circuitbreaker.New(circuitbreaker.EncoderConfig()),
		retryConfig:    retry.EncoderConfig(),
	}
}

type encodeRequest struct {
	Model string   `json:"model"`
	Texts []string `json:"texts"`
}

type encodeResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Encode sends the batch through retry and the circuit breaker.
func (e *HTTPEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var vectors [][]float32

	retryErr := retry.WithBackoff(ctx, e.retryConfig, func() error {
		cbResult, err := e.circuitBreaker.Execute(func() (interface{}, error) {
			return e.doEncode(ctx, texts)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("encoder circuit breaker open, request rejected",
					slog.String("service", "encoder"))
			}
			return err
		}
		vectors = cbResult.([][]float32)
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	return vectors, nil
}

func (e *HTTPEncoder) doEncode(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(encodeRequest{Model: e.model, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create encode request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("encoder request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("encoder returned %s: %s", resp.Status, body),
		}
	}

	var decoded encodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode encoder response: %w", err)
	}
	if len(decoded.Embeddings) != len(texts) {
		return nil, fmt.Errorf("encoder returned %d embeddings for %d texts",
			len(decoded.Embeddings), len(texts))
	}

	return decoded.Embeddings, nil
}
