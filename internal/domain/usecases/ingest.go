// Package usecases contains application business rules.
// Usecases orchestrate entities and depend only on port interfaces.
package usecases

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
	"github.com/prathap024-ctrl/pdf-rag/internal/domain/ports"
)

// CollectionPrefix starts every per-document collection name.
const CollectionPrefix = "pdf-"

// IngestResult describes one completed ingestion.
type IngestResult struct {
	Document entities.Document
	Pages    int
	Chunks   int
}

// IngestUseCase turns an uploaded PDF into a Document row and a populated collection.
type IngestUseCase struct {
	parser   ports.DocumentParser
	splitter ports.TextSplitter
	embedder ports.EmbeddingService
	index    ports.VectorIndex
	store    ports.MetadataStore
	logger   arbor.ILogger
	newID    func() string
}

// NewIngestUseCase creates an IngestUseCase with injected dependencies.
func NewIngestUseCase(
	parser ports.DocumentParser,
	splitter ports.TextSplitter,
	embedder ports.EmbeddingService,
	index ports.VectorIndex,
	store ports.MetadataStore,
	logger arbor.ILogger,
) *IngestUseCase {
	return &IngestUseCase{
		parser:   parser,
		splitter: splitter,
		embedder: embedder,
		index:    index,
		store:    store,
		logger:   logger,
		newID:    func() string { return CollectionPrefix + uuid.NewString() },
	}
}

// Ingest validates, records, parses, splits, embeds and indexes one PDF.
// The Document row is written before parsing, so a later failure leaves
// a row whose collection is missing; the reconciler cleans those up.
func (uc *IngestUseCase) Ingest(ctx context.Context, upload entities.Upload) (IngestResult, error) {
	start := time.Now()
	if err := validateUpload(upload); err != nil {
		return IngestResult{}, err
	}

	collection := uc.newID()
	doc, err := uc.store.CreateDocument(ctx, entities.Document{
		Filename:     upload.Filename,
		Size:         int64(len(upload.Data)),
		CollectionID: collection,
	})
	if err != nil {
		return IngestResult{}, entities.Upstream("recording document", err)
	}
	log := uc.logger.WithCorrelationId(doc.CollectionID)
	log.Info().Int64("id", doc.ID).Str("filename", doc.Filename).Int64("size", doc.Size).Msg("Ingesting document")

	pages, err := uc.parser.Parse(ctx, upload.Data, upload.Filename)
	if err != nil {
		return IngestResult{Document: doc}, entities.Upstream("extracting text", err)
	}

	chunks := uc.split(pages, upload.Filename)
	if len(chunks) == 0 {
		log.Warn().Int("pages", len(pages)).Msg("No extractable text")
		return IngestResult{Document: doc, Pages: len(pages)}, entities.Validation("no extractable text in %s", upload.Filename)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := uc.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return IngestResult{Document: doc, Pages: len(pages)}, entities.Upstream("embedding chunks", err)
	}
	if len(embeddings) != len(chunks) {
		return IngestResult{Document: doc, Pages: len(pages)}, entities.Upstream("embedding chunks",
			fmt.Errorf("got %d embeddings for %d chunks", len(embeddings), len(chunks)))
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}

	if err := uc.index.CreateCollection(ctx, collection, len(embeddings[0])); err != nil {
		return IngestResult{Document: doc, Pages: len(pages)}, entities.Upstream("creating collection", err)
	}
	if err := uc.index.Upsert(ctx, collection, chunks); err != nil {
		return IngestResult{Document: doc, Pages: len(pages)}, entities.Upstream("indexing chunks", err)
	}

	log.Info().
		Int("pages", len(pages)).
		Int("chunks", len(chunks)).
		Int("dimension", len(embeddings[0])).
		Dur("elapsed", time.Since(start)).
		Msg("Document ingested")

	return IngestResult{Document: doc, Pages: len(pages), Chunks: len(chunks)}, nil
}

// split cuts every page separately and drops blank pieces.
func (uc *IngestUseCase) split(pages []entities.Page, source string) []entities.Chunk {
	var chunks []entities.Chunk
	for _, page := range pages {
		for _, span := range uc.splitter.Split(page.Text) {
			if strings.TrimSpace(span.Text) == "" {
				continue
			}
			chunks = append(chunks, entities.Chunk{
				Text:   span.Text,
				Source: source,
				Page:   page.Number,
				Offset: span.Offset,
			})
		}
	}
	return chunks
}

var pdfMagic = []byte("%PDF")

func validateUpload(upload entities.Upload) error {
	if strings.TrimSpace(upload.Filename) == "" {
		return entities.Validation("filename is required")
	}
	if len(upload.Data) == 0 {
		return entities.Validation("%s is empty", upload.Filename)
	}
	if !strings.EqualFold(filepath.Ext(upload.Filename), ".pdf") && !bytes.HasPrefix(upload.Data, pdfMagic) {
		return entities.Validation("%s is not a PDF", upload.Filename)
	}
	return nil
}
