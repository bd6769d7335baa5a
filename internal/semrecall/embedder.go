// Package semrecall provides an optional vector-similarity safety net:
// clause texts are embedded into a qdrant collection at startup, and when
// lexical retrieval finds nothing the lookup layer consults nearest
// neighbors instead. The lexical engine never depends on this package.
package semrecall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// EmbedderConfig points at an Ollama-compatible embeddings endpoint.
type EmbedderConfig struct {
	Endpoint  string `json:"endpoint"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}

// Embedder turns clause or query text into a vector.
type Embedder struct {
	cfg EmbedderConfig
}

// NewEmbedder creates an embedder for the configured endpoint.
func NewEmbedder(cfg EmbedderConfig) *Embedder {
	return &Embedder{cfg: cfg}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed requests a single embedding vector for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.cfg.Model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("embed: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embed: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embed: API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embed: decode response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("embed: empty embedding result")
	}
	return result.Embedding, nil
}

// Dimension returns the configured vector dimension.
func (e *Embedder) Dimension() int {
	if e.cfg.Dimension > 0 {
		return e.cfg.Dimension
	}
	return 1024
}
