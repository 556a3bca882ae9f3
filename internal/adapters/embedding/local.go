package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// DefaultLocalDimensions is the vector size of the local embedder.
const DefaultLocalDimensions = 256

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// LocalEmbedder is an offline, deterministic embedder. Tokens are hashed into
// a fixed number of buckets (the hashing trick) and the vector is L2
// normalised, so cosine similarity tracks shared vocabulary. It needs no
// corpus preparation, which keeps the dimension fixed across collections.
type LocalEmbedder struct {
	dimensions int
	stopwords  map[string]struct{}
}

// NewLocalEmbedder creates a local embedder with the given dimension.
func NewLocalEmbedder(dimensions int) *LocalEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultLocalDimensions
	}
	return &LocalEmbedder{dimensions: dimensions, stopwords: defaultStopwords()}
}

// Embed hashes text into a normalised term-frequency vector.
func (e *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float64, e.dimensions)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := e.stopwords[tok]; stop {
			continue
		}
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dimensions))
		// Sign bit halves collision bias
		if sum&(1<<63) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, e.dimensions)
	if norm == 0 {
		return out, nil
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

// EmbedBatch embeds each text in order.
func (e *LocalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions returns the fixed vector size.
func (e *LocalEmbedder) Dimensions() int { return e.dimensions }

// ModelName identifies the local embedder.
func (e *LocalEmbedder) ModelName() string { return "local-hash" }

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "but", "by", "do", "does",
		"for", "from", "has", "have", "how", "i", "in", "into", "is", "it",
		"its", "of", "on", "or", "that", "the", "their", "there", "these",
		"this", "to", "was", "were", "what", "when", "where", "which", "who",
		"why", "will", "with", "you",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
