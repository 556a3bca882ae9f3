// Package embedding provides embedding adapters.
// Each adapter implements ports.EmbeddingService; the domain layer never sees
// provider specifics.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"
)

// OllamaAdapter implements ports.EmbeddingService using the Ollama API.
type OllamaAdapter struct {
	baseURL     string
	model       string
	concurrency int
	client      *http.Client
	logger      arbor.ILogger
}

// NewOllamaAdapter creates a new Ollama embedding adapter.
func NewOllamaAdapter(baseURL, model string, concurrency int, logger arbor.ILogger) *OllamaAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &OllamaAdapter{
		baseURL:     baseURL,
		model:       model,
		concurrency: concurrency,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// ollamaEmbedRequest is the Ollama API request format.
type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// ollamaEmbedResponse is the Ollama API response format.
type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed generates an embedding for a single text.
func (a *OllamaAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	jsonData, err := json.Marshal(ollamaEmbedRequest{
		Model:  a.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error().Err(err).Str("url", a.baseURL).Msg("Ollama embedding call failed")
		return nil, fmt.Errorf("calling Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Ollama returned status %d", resp.StatusCode)
	}

	var embedResp ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(embedResp.Embedding) == 0 {
		return nil, fmt.Errorf("Ollama returned an empty embedding")
	}

	a.logger.Trace().Int("dims", len(embedResp.Embedding)).Msg("Ollama embedding received")
	return embedResp.Embedding, nil
}

// EmbedBatch embeds texts with bounded concurrency, preserving input order.
func (a *OllamaAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, text := range texts {
		g.Go(func() error {
			emb, err := a.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("embedding text %d: %w", i, err)
			}
			embeddings[i] = emb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	a.logger.Debug().Int("texts", len(texts)).Str("model", a.model).Msg("Ollama batch embedded")
	return embeddings, nil
}

// Dimensions is decided by the Ollama model.
func (a *OllamaAdapter) Dimensions() int { return 0 }

// ModelName returns the embedding model.
func (a *OllamaAdapter) ModelName() string { return a.model }
