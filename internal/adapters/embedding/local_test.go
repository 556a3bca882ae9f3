package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestLocalEmbedder_Deterministic(t *testing.T) {
	e := NewLocalEmbedder(0)
	ctx := context.Background()

	a, err := e.Embed(ctx, "The capital of France is Paris.")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "The capital of France is Paris.")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, DefaultLocalDimensions)
	assert.InDelta(t, 1.0, cosine(a, a), 1e-6)
}

func TestLocalEmbedder_SharedVocabularyRanksHigher(t *testing.T) {
	e := NewLocalEmbedder(512)
	vectors, err := e.EmbedBatch(context.Background(), []string{
		"What is the capital of France?",
		"The capital of France is Paris.",
		"Chapter three covers the history of the printing press.",
	})
	require.NoError(t, err)

	related := cosine(vectors[0], vectors[1])
	unrelated := cosine(vectors[0], vectors[2])
	assert.Greater(t, related, unrelated)
}

func TestLocalEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	e := NewLocalEmbedder(8)
	v, err := e.Embed(context.Background(), "the of is")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), v)
}

func TestLocalEmbedder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLocalEmbedder(8).Embed(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
