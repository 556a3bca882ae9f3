package resilient

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
	"github.com/prathap024-ctrl/pdf-rag/internal/domain/ports"
)

// Index decorates a VectorIndex. Reads are retried. CreateCollection and
// Upsert get a single attempt since a replay could fail or duplicate points.
// DeleteCollection gets a single attempt as it runs inside the metadata
// delete transaction.
type Index struct {
	next   ports.VectorIndex
	policy Policy
	logger arbor.ILogger
}

var _ ports.VectorIndex = (*Index)(nil)

// NewIndex wraps next.
func NewIndex(next ports.VectorIndex, policy Policy, logger arbor.ILogger) *Index {
	return &Index{next: next, policy: policy, logger: logger}
}

func (i *Index) CreateCollection(ctx context.Context, name string, dimension int) error {
	return run(ctx, i.policy.Single(), i.logger, "create collection", func(ctx context.Context) error {
		return i.next.CreateCollection(ctx, name, dimension)
	})
}

func (i *Index) CollectionExists(ctx context.Context, name string) (bool, error) {
	return call(ctx, i.policy, i.logger, "collection exists", func(ctx context.Context) (bool, error) {
		return i.next.CollectionExists(ctx, name)
	})
}

func (i *Index) Upsert(ctx context.Context, name string, chunks []entities.Chunk) error {
	return run(ctx, i.policy.Single(), i.logger, "upsert", func(ctx context.Context) error {
		return i.next.Upsert(ctx, name, chunks)
	})
}

func (i *Index) Query(ctx context.Context, name string, embedding []float32, topK int) ([]entities.QueryResult, error) {
	return call(ctx, i.policy, i.logger, "query", func(ctx context.Context) ([]entities.QueryResult, error) {
		return i.next.Query(ctx, name, embedding, topK)
	})
}

func (i *Index) DeleteCollection(ctx context.Context, name string) error {
	return run(ctx, i.policy.Single(), i.logger, "delete collection", func(ctx context.Context) error {
		return i.next.DeleteCollection(ctx, name)
	})
}

func (i *Index) ListCollections(ctx context.Context) ([]string, error) {
	return call(ctx, i.policy, i.logger, "list collections", func(ctx context.Context) ([]string, error) {
		return i.next.ListCollections(ctx)
	})
}

func (i *Index) Count(ctx context.Context, name string) (int, error) {
	return call(ctx, i.policy, i.logger, "count", func(ctx context.Context) (int, error) {
		return i.next.Count(ctx, name)
	})
}
