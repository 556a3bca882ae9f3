package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini generation adapter.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	BaseURL     string // Override for tests and proxies
}

// GeminiAdapter implements ports.LLMService using the Gemini API.
type GeminiAdapter struct {
	client      *genai.Client
	model       string
	temperature float32
	logger      arbor.ILogger
}

// NewGeminiAdapter creates a Gemini generation adapter.
func NewGeminiAdapter(ctx context.Context, cfg GeminiConfig, logger arbor.ILogger) (*GeminiAdapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
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

	return &GeminiAdapter{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      logger,
	}, nil
}

// Generate sends the prompt as a single user turn and concatenates the text parts.
func (a *GeminiAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(a.temperature),
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	var sb strings.Builder
	if resp != nil {
		for _, cand := range resp.Candidates {
			if cand == nil || cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if part != nil && part.Text != "" {
					sb.WriteString(part.Text)
				}
			}
			// First candidate only
			break
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no response generated from Gemini")
	}

	a.logger.Debug().Str("model", a.model).Int("chars", sb.Len()).Msg("Gemini generation completed")
	return sb.String(), nil
}

// ModelName returns the generation model.
func (a *GeminiAdapter) ModelName() string { return a.model }
