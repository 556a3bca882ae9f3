// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import (
	"slices"
	"time"
)

// Document is an ingested PDF and the vector collection holding its chunks.
// Rows are created once and never updated; only deletion changes them.
type Document struct {
	ID           int64
	Filename     string
	Size         int64
	CollectionID string
	CreatedAt    time.Time
}

// QARecord is one answered question, owned by the document it was asked against.
type QARecord struct {
	ID         int64
	DocumentID int64
	Question   string
	Answer     string
	CreatedAt  time.Time
}

// Upload is a PDF handed to ingestion. The bytes are discarded once ingestion ends.
type Upload struct {
	Filename string
	Data     []byte
}

// Page is the extracted text of one PDF page (1-based number).
type Page struct {
	Number int
	Text   string
}

// Span is a piece of text cut by a splitter, with its rune offset in the source.
type Span struct {
	Text   string
	Offset int
}

// Chunk is a span of extracted text, the unit of embedding and retrieval.
// It only ever lives inside a vector collection.
type Chunk struct {
	Text      string
	Source    string // Original filename
	Page      int
	Offset    int       // Rune offset within the page
	Embedding []float32 // Populated by the embedding adapter
}

// QueryResult is a ranked hit from a vector collection.
type QueryResult struct {
	Chunk Chunk
	Score float64 // Cosine similarity
}

// PipelineState is the per-request value threaded through the answer pipeline.
// It is never mutated; nodes return a StateUpdate that Merge folds into a copy.
type PipelineState struct {
	Question     string
	CollectionID string
	Context      []Chunk
	Answer       string
}

// StateUpdate is the partial result of one pipeline node.
// A nil field leaves the corresponding state field untouched.
type StateUpdate struct {
	Context []Chunk
	Answer  *string
}

// Merge returns a new state with the update applied.
func (s PipelineState) Merge(u StateUpdate) PipelineState {
	next := s
	next.Context = slices.Clone(s.Context)
	if u.Context != nil {
		next.Context = slices.Clone(u.Context)
	}
	if u.Answer != nil {
		next.Answer = *u.Answer
	}
	return next
}

// Answer is what the service returns for a question.
type Answer struct {
	DocumentID int64
	Question   string
	Answer     string
	Context    []Chunk
	RecordID   int64
}
