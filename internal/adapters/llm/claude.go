package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
)

// ClaudeConfig configures the Claude generation adapter.
type ClaudeConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int64
	Temperature float32
	BaseURL     string // Override for tests and proxies
}

// ClaudeAdapter implements ports.LLMService using the Anthropic Messages API.
type ClaudeAdapter struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float32
	logger      arbor.ILogger
}

// NewClaudeAdapter creates a Claude generation adapter.
func NewClaudeAdapter(cfg ClaudeConfig, logger arbor.ILogger) (*ClaudeAdapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("claude API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}

	// Retries are owned by the resilient decorator
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &ClaudeAdapter{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		logger:      logger,
	}, nil
}

// Generate sends the prompt as one user message and joins the text blocks.
func (a *ClaudeAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(float64(a.temperature)),
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude generation failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no response generated from Claude")
	}

	a.logger.Debug().Str("model", a.model).Int("chars", sb.Len()).Msg("Claude generation completed")
	return sb.String(), nil
}

// ModelName returns the generation model.
func (a *ClaudeAdapter) ModelName() string { return a.model }
