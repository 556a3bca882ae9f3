// Package llm provides language model adapters implementing ports.LLMService.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
)

// OllamaLLMAdapter implements ports.LLMService using the Ollama API.
type OllamaLLMAdapter struct {
	baseURL     string
	model       string
	temperature float32
	client      *http.Client
	logger      arbor.ILogger
}

// NewOllamaLLMAdapter creates a new Ollama LLM adapter.
func NewOllamaLLMAdapter(baseURL, model string, temperature float32, logger arbor.ILogger) *OllamaLLMAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	return &OllamaLLMAdapter{
		baseURL:     baseURL,
		model:       model,
		temperature: temperature,
		client: &http.Client{
			Timeout: 300 * time.Second,
		},
		logger: logger,
	}
}

// ollamaGenerateRequest is the Ollama generate API request.
type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

// ollamaGenerateResponse is the Ollama generate API response.
type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate sends the prompt as a single non-streaming request.
func (a *OllamaLLMAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	jsonData, err := json.Marshal(ollamaGenerateRequest{
		Model:   a.model,
		Prompt:  prompt,
		Stream:  false,
		Options: map[string]any{"temperature": a.temperature},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Ollama returned status %d", resp.StatusCode)
	}

	var genResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	a.logger.Debug().
		Str("model", a.model).
		Int("chars", len(genResp.Response)).
		Dur("duration", time.Since(start)).
		Msg("Ollama generation completed")

	return genResp.Response, nil
}

// ModelName returns the generation model.
func (a *OllamaLLMAdapter) ModelName() string { return a.model }
