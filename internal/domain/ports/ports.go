// Package ports defines interfaces for external dependencies.
// Usecases depend on these abstractions; adapters implement them.
package ports

import (
	"context"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
)

// EmbeddingService generates vector embeddings for text.
// The same instance must serve ingestion and querying of a collection.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the configured output size, or 0 when the model decides.
	Dimensions() int

	// ModelName identifies the embedding model.
	ModelName() string
}

// LLMService generates text from a language model.
type LLMService interface {
	// Generate sends the rendered prompt and returns the completion verbatim.
	Generate(ctx context.Context, prompt string) (string, error)

	// ModelName identifies the generation model.
	ModelName() string
}

// VectorIndex stores chunk embeddings in isolated, named collections.
type VectorIndex interface {
	// CreateCollection creates an empty collection whose vectors have the given dimension.
	CreateCollection(ctx context.Context, name string, dimension int) error

	// CollectionExists reports whether the named collection exists.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// Upsert writes chunks (with embeddings) into an existing collection.
	Upsert(ctx context.Context, name string, chunks []entities.Chunk) error

	// Query returns up to topK chunks ordered by descending similarity.
	// A missing collection yields entities.ErrCollectionNotFound.
	Query(ctx context.Context, name string, embedding []float32, topK int) ([]entities.QueryResult, error)

	// DeleteCollection drops a collection and all its vectors.
	DeleteCollection(ctx context.Context, name string) error

	// ListCollections returns the names of all collections.
	ListCollections(ctx context.Context) ([]string, error)

	// Count returns the number of vectors in a collection.
	Count(ctx context.Context, name string) (int, error)
}

// DocumentParser extracts text from binary document formats.
type DocumentParser interface {
	// Parse extracts page texts, in page order, from document bytes.
	Parse(ctx context.Context, data []byte, filename string) ([]entities.Page, error)

	// SupportedFormats returns formats this parser handles (e.g., "pdf").
	SupportedFormats() []string
}

// TextSplitter cuts text into overlapping spans.
type TextSplitter interface {
	Split(text string) []entities.Span
}

// MetadataStore persists documents and their question/answer history.
type MetadataStore interface {
	CreateDocument(ctx context.Context, doc entities.Document) (entities.Document, error)
	GetDocument(ctx context.Context, id int64) (entities.Document, error)
	ListDocuments(ctx context.Context) ([]entities.Document, error)
	LatestDocument(ctx context.Context) (entities.Document, error)

	// DeleteDocument removes the row and its QA records. beforeCommit runs
	// inside the transaction; an error from it rolls the delete back.
	DeleteDocument(ctx context.Context, id int64, beforeCommit func(ctx context.Context, doc entities.Document) error) error

	InsertQARecord(ctx context.Context, rec entities.QARecord) (entities.QARecord, error)
	ListQARecords(ctx context.Context, documentID int64) ([]entities.QARecord, error)
}

// FileLoader reads a document from the local filesystem for ingestion.
type FileLoader interface {
	// Load waits for the file to stop growing and returns its contents.
	Load(ctx context.Context, path string) (entities.Upload, error)

	// SupportedExtensions returns the extensions this loader accepts (e.g., ".pdf").
	SupportedExtensions() []string
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)

func (op FileOperation) String() string {
	switch op {
	case FileCreated:
		return "created"
	case FileModified:
		return "modified"
	case FileDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}
