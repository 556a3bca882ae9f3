// Package splitter provides text splitting adapters.
// Adapter implementing ports.TextSplitter.
package splitter

import (
	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// CharacterSplitter cuts text into fixed-size character windows.
// Consecutive windows share exactly overlap characters; sizes count runes, not bytes.
type CharacterSplitter struct {
	chunkSize int
	overlap   int
}

// Option configures the splitter.
type Option func(*CharacterSplitter)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *CharacterSplitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *CharacterSplitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *CharacterSplitter {
	s := &CharacterSplitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Overlap must leave room to advance
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}
	return s
}

// ChunkSize returns the configured window size.
func (s *CharacterSplitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured overlap.
func (s *CharacterSplitter) Overlap() int { return s.overlap }

// Split returns the windows covering text in order. Blank windows are kept;
// filtering is the caller's decision.
func (s *CharacterSplitter) Split(text string) []entities.Span {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.chunkSize - s.overlap
	spans := make([]entities.Span, 0, len(runes)/step+1)

	for start := 0; ; start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		spans = append(spans, entities.Span{
			Text:   string(runes[start:end]),
			Offset: start,
		})
		if end == len(runes) {
			break
		}
	}
	return spans
}
