package resilient

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/ports"
)

// LLM decorates an LLMService with a timeout and, when configured, retry.
type LLM struct {
	next   ports.LLMService
	policy Policy
	logger arbor.ILogger
}

var _ ports.LLMService = (*LLM)(nil)

// NewLLM wraps next.
func NewLLM(next ports.LLMService, policy Policy, logger arbor.ILogger) *LLM {
	return &LLM{next: next, policy: policy, logger: logger}
}

func (l *LLM) Generate(ctx context.Context, prompt string) (string, error) {
	return call(ctx, l.policy, l.logger, "generate", func(ctx context.Context) (string, error) {
		return l.next.Generate(ctx, prompt)
	})
}

func (l *LLM) ModelName() string { return l.next.ModelName() }
