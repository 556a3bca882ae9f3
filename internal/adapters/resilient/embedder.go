package resilient

import (
	"context"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/ports"
)

// Embedder decorates an EmbeddingService with a rate limit, timeouts and retry.
type Embedder struct {
	next    ports.EmbeddingService
	policy  Policy
	limiter *rate.Limiter
	logger  arbor.ILogger
}

var _ ports.EmbeddingService = (*Embedder)(nil)

// NewEmbedder wraps next. requestsPerSecond <= 0 disables rate limiting.
func NewEmbedder(next ports.EmbeddingService, policy Policy, requestsPerSecond float64, logger arbor.ILogger) *Embedder {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), max(int(requestsPerSecond), 1))
	}
	return &Embedder{next: next, policy: policy, limiter: limiter, logger: logger}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return call(ctx, e.policy, e.logger, "embed", func(ctx context.Context) ([]float32, error) {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return e.next.Embed(ctx, text)
	})
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return call(ctx, e.policy, e.logger, "embed batch", func(ctx context.Context) ([][]float32, error) {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return e.next.EmbedBatch(ctx, texts)
	})
}

func (e *Embedder) Dimensions() int   { return e.next.Dimensions() }
func (e *Embedder) ModelName() string { return e.next.ModelName() }
