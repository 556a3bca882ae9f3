package vectordb

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
)

type memoryCollection struct {
	dimension int
	chunks    []entities.Chunk
}

// InMemoryStore is a process-local vector index, used for tests and ephemeral runs.
type InMemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

// NewInMemoryStore creates a new in-memory vector index.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		collections: make(map[string]*memoryCollection),
	}
}

// CreateCollection creates an empty collection. Creating an existing name fails.
func (s *InMemoryStore) CreateCollection(ctx context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d for collection %s", dimension, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; ok {
		return fmt.Errorf("collection %s already exists", name)
	}
	s.collections[name] = &memoryCollection{dimension: dimension}
	return nil
}

// CollectionExists reports whether the collection exists.
func (s *InMemoryStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

// Upsert appends chunks to the collection after checking every dimension.
func (s *InMemoryStore) Upsert(ctx context.Context, name string, chunks []entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, entities.ErrCollectionNotFound)
	}
	for _, chunk := range chunks {
		if err := checkDimension(name, c.dimension, chunk.Embedding); err != nil {
			return err
		}
	}
	c.chunks = append(c.chunks, chunks...)
	return nil
}

// Query finds the most similar chunks in one collection.
func (s *InMemoryStore) Query(ctx context.Context, name string, embedding []float32, topK int) ([]entities.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, entities.ErrCollectionNotFound)
	}
	if err := checkDimension(name, c.dimension, embedding); err != nil {
		return nil, err
	}

	results := make([]scored, len(c.chunks))
	for i, chunk := range c.chunks {
		results[i] = scored{chunk: chunk, score: cosineSimilarity(embedding, chunk.Embedding), position: i}
	}
	return rankTopK(results, topK), nil
}

// DeleteCollection removes a collection. Unknown names are not an error.
func (s *InMemoryStore) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

// ListCollections returns collection names sorted.
func (s *InMemoryStore) ListCollections(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Count returns the number of vectors in a collection.
func (s *InMemoryStore) Count(ctx context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, entities.ErrCollectionNotFound)
	}
	return len(c.chunks), nil
}
