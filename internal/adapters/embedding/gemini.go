package embedding

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"
)

// geminiBatchLimit is the most contents sent in one EmbedContent call.
const geminiBatchLimit = 100

// GeminiConfig configures the Gemini embedding adapter.
type GeminiConfig struct {
	APIKey     string
	Model      string
	Dimensions int    // 0 keeps the model default
	BaseURL    string // Override for tests and proxies
}

// GeminiAdapter implements ports.EmbeddingService using the Gemini API.
type GeminiAdapter struct {
	client     *genai.Client
	model      string
	dimensions int
	logger     arbor.ILogger
}

// NewGeminiAdapter creates a Gemini embedding adapter.
func NewGeminiAdapter(ctx context.Context, cfg GeminiConfig, logger arbor.ILogger) (*GeminiAdapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-004"
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	logger.Debug().
		Str("model", cfg.Model).
		Int("dimensions", cfg.Dimensions).
		Msg("Gemini embedding adapter initialized")

	return &GeminiAdapter{
		client:     client,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		logger:     logger,
	}, nil
}

// Embed generates an embedding for a single text.
func (a *GeminiAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := a.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in API-sized batches, preserving input order.
func (a *GeminiAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += geminiBatchLimit {
		end := min(start+geminiBatchLimit, len(texts))
		vectors, err := a.embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d: %w", start, end, err)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (a *GeminiAdapter) embed(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	config := &genai.EmbedContentConfig{}
	if a.dimensions > 0 {
		dim := int32(a.dimensions)
		config.OutputDimensionality = &dim
	}

	result, err := a.client.Models.EmbedContent(ctx, a.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding failed: %w", err)
	}
	if result == nil || len(result.Embeddings) != len(texts) {
		got := 0
		if result != nil {
			got = len(result.Embeddings)
		}
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", got, len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, e := range result.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("gemini returned an empty embedding at %d", i)
		}
		if a.dimensions > 0 && len(e.Values) != a.dimensions {
			return nil, fmt.Errorf("gemini embedding dimension mismatch: expected %d, got %d", a.dimensions, len(e.Values))
		}
		vectors[i] = e.Values
	}
	return vectors, nil
}

// Dimensions returns the requested output dimensionality (0 = model default).
func (a *GeminiAdapter) Dimensions() int { return a.dimensions }

// ModelName returns the embedding model.
func (a *GeminiAdapter) ModelName() string { return a.model }
