// Package vectordb provides vector index adapters implementing ports.VectorIndex.
// Every backend keeps one isolated collection per document and enforces a
// single embedding dimension per collection.
package vectordb

import (
	"fmt"
	"math"
	"sort"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
)

// cosineSimilarity calculates cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// checkDimension rejects a vector whose length differs from the collection's.
func checkDimension(collection string, want int, got []float32) error {
	if len(got) != want {
		return fmt.Errorf("collection %s expects %d dims, got %d: %w", collection, want, len(got), entities.ErrDimensionMismatch)
	}
	return nil
}

type scored struct {
	chunk    entities.Chunk
	score    float64
	position int
}

// rankTopK sorts by descending score (insertion position breaks ties) and truncates.
func rankTopK(results []scored, topK int) []entities.QueryResult {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].position < results[j].position
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	out := make([]entities.QueryResult, len(results))
	for i, r := range results {
		out[i] = entities.QueryResult{Chunk: r.chunk, Score: r.score}
	}
	return out
}
