package usecases

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
	"github.com/prathap024-ctrl/pdf-rag/internal/domain/ports"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 4

// RetrieveStage embeds the question and pulls the nearest chunks from the
// document's own collection.
type RetrieveStage struct {
	embedder ports.EmbeddingService
	index    ports.VectorIndex
	topK     int
	logger   arbor.ILogger
}

// NewRetrieveStage creates the retrieval node. topK <= 0 selects DefaultTopK.
func NewRetrieveStage(embedder ports.EmbeddingService, index ports.VectorIndex, topK int, logger arbor.ILogger) *RetrieveStage {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &RetrieveStage{embedder: embedder, index: index, topK: topK, logger: logger}
}

func (s *RetrieveStage) Name() string { return "retrieve" }

// Run returns the ranked context. A missing collection is an error;
// an existing collection with no hits yields an empty context.
func (s *RetrieveStage) Run(ctx context.Context, state entities.PipelineState) (entities.StateUpdate, error) {
	if state.CollectionID == "" {
		return entities.StateUpdate{}, entities.Validation("collection id is required")
	}

	exists, err := s.index.CollectionExists(ctx, state.CollectionID)
	if err != nil {
		return entities.StateUpdate{}, entities.Upstream("checking collection", err)
	}
	if !exists {
		return entities.StateUpdate{}, fmt.Errorf("%s: %w", state.CollectionID, entities.ErrCollectionNotFound)
	}

	embedding, err := s.embedder.Embed(ctx, state.Question)
	if err != nil {
		return entities.StateUpdate{}, entities.Upstream("embedding question", err)
	}

	results, err := s.index.Query(ctx, state.CollectionID, embedding, s.topK)
	if err != nil {
		return entities.StateUpdate{}, entities.Upstream("querying collection", err)
	}

	chunks := make([]entities.Chunk, 0, len(results))
	for _, r := range results {
		c := r.Chunk
		c.Embedding = nil
		chunks = append(chunks, c)
	}

	s.logger.Debug().
		Str("collection", state.CollectionID).
		Int("hits", len(chunks)).
		Int("top_k", s.topK).
		Msg("Retrieved context")

	return entities.StateUpdate{Context: chunks}, nil
}
