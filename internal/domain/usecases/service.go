package usecases

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
	"github.com/prathap024-ctrl/pdf-rag/internal/domain/ports"
)

const (
	MaxQuestionLength = 2000
	MaxAnswerLength   = 5000
)

// ServiceOptions tunes bookkeeping behaviour.
type ServiceOptions struct {
	// LinkToLatestDocument stores each QA record against the most recently
	// created document instead of the one that was asked. Legacy behaviour.
	LinkToLatestDocument bool

	// CollectionDeleteTimeout bounds the collection delete made while the
	// document row is locked. Defaults to DefaultCollectionDeleteTimeout.
	CollectionDeleteTimeout time.Duration
}

// DefaultCollectionDeleteTimeout stays under the SQLite busy timeout.
const DefaultCollectionDeleteTimeout = 4 * time.Second

// Service is the core API: ingest, answer, list, get, history and delete.
type Service struct {
	ingest   *IngestUseCase
	pipeline *Pipeline
	index    ports.VectorIndex
	store    ports.MetadataStore
	opts     ServiceOptions
	logger   arbor.ILogger
}

// NewService wires the use cases behind one facade.
func NewService(
	ingest *IngestUseCase,
	pipeline *Pipeline,
	index ports.VectorIndex,
	store ports.MetadataStore,
	opts ServiceOptions,
	logger arbor.ILogger,
) *Service {
	if opts.CollectionDeleteTimeout <= 0 {
		opts.CollectionDeleteTimeout = DefaultCollectionDeleteTimeout
	}
	if opts.LinkToLatestDocument {
		logger.Warn().Msg("QA records are linked to the latest document, not the queried one (qa.link_to_latest_document)")
	}
	return &Service{
		ingest:   ingest,
		pipeline: pipeline,
		index:    index,
		store:    store,
		opts:     opts,
		logger:   logger,
	}
}

// Ingest stores a new PDF.
func (s *Service) Ingest(ctx context.Context, upload entities.Upload) (IngestResult, error) {
	return s.ingest.Ingest(ctx, upload)
}

// Answer runs the pipeline against one document and records the exchange.
func (s *Service) Answer(ctx context.Context, documentID int64, question string) (entities.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return entities.Answer{}, entities.Validation("question is required")
	}
	if n := utf8.RuneCountInString(question); n > MaxQuestionLength {
		return entities.Answer{}, entities.Validation("question is %d characters, limit is %d", n, MaxQuestionLength)
	}

	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return entities.Answer{}, err
	}

	state, err := s.pipeline.Run(ctx, entities.PipelineState{
		Question:     question,
		CollectionID: doc.CollectionID,
	})
	if err != nil {
		return entities.Answer{}, err
	}

	linkID := doc.ID
	if s.opts.LinkToLatestDocument {
		latest, err := s.store.LatestDocument(ctx)
		if err != nil {
			return entities.Answer{}, err
		}
		linkID = latest.ID
	}

	rec, err := s.store.InsertQARecord(ctx, entities.QARecord{
		DocumentID: linkID,
		Question:   question,
		Answer:     truncateRunes(state.Answer, MaxAnswerLength),
	})
	if err != nil {
		return entities.Answer{}, err
	}

	s.logger.Info().
		Int64("document_id", doc.ID).
		Int64("record_id", rec.ID).
		Int("context_chunks", len(state.Context)).
		Msg("Question answered")

	return entities.Answer{
		DocumentID: doc.ID,
		Question:   question,
		Answer:     state.Answer,
		Context:    state.Context,
		RecordID:   rec.ID,
	}, nil
}

// ListDocuments returns every document, newest first.
func (s *Service) ListDocuments(ctx context.Context) ([]entities.Document, error) {
	return s.store.ListDocuments(ctx)
}

// GetDocument returns one document.
func (s *Service) GetDocument(ctx context.Context, id int64) (entities.Document, error) {
	return s.store.GetDocument(ctx, id)
}

// History returns the QA records of a document, oldest first.
func (s *Service) History(ctx context.Context, id int64) ([]entities.QARecord, error) {
	if _, err := s.store.GetDocument(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListQARecords(ctx, id)
}

// DeleteDocument removes the collection, then the row and its history.
// A failed collection delete leaves the row in place.
func (s *Service) DeleteDocument(ctx context.Context, id int64) error {
	err := s.store.DeleteDocument(ctx, id, func(ctx context.Context, doc entities.Document) error {
		if doc.CollectionID == "" {
			return entities.Validation("document %d has no collection", doc.ID)
		}
		ctx, cancel := context.WithTimeout(ctx, s.opts.CollectionDeleteTimeout)
		defer cancel()
		if err := s.index.DeleteCollection(ctx, doc.CollectionID); err != nil {
			return entities.Upstream("deleting collection", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().Int64("document_id", id).Msg("Document deleted")
	return nil
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
