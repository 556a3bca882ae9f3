package usecases

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/prathap024-ctrl/pdf-rag/internal/adapters/vectordb"
	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
)

type serviceFixture struct {
	svc    *Service
	parser *mockParser
	llm    *mockLLM
	index  *failingIndex
	store  *memStore
}

func newServiceFixture(opts ServiceOptions) *serviceFixture {
	logger := arbor.NewLogger()
	f := &serviceFixture{
		parser: &mockParser{pages: []entities.Page{{Number: 1, Text: "The capital of France is Paris."}}},
		llm:    &mockLLM{answer: "Paris"},
		index:  &failingIndex{VectorIndex: vectordb.NewInMemoryStore()},
		store:  newMemStore(),
	}
	emb := &mockEmbedder{}
	ingest := NewIngestUseCase(f.parser, lineSplitter{}, emb, f.index, f.store, logger)
	pipeline := NewPipeline(NewRetrieveStage(emb, f.index, 4, logger), NewGenerateStage(f.llm, logger), logger)
	f.svc = NewService(ingest, pipeline, f.index, f.store, opts, logger)
	return f
}

func (f *serviceFixture) ingest(t *testing.T, name string) entities.Document {
	t.Helper()
	result, err := f.svc.Ingest(context.Background(), entities.Upload{Filename: name, Data: pdfBytes})
	require.NoError(t, err)
	return result.Document
}

func TestService_AnswerRecordsHistory(t *testing.T) {
	f := newServiceFixture(ServiceOptions{})
	doc := f.ingest(t, "france.pdf")

	answer, err := f.svc.Answer(context.Background(), doc.ID, "  What is the capital of France?  ")
	require.NoError(t, err)
	assert.Equal(t, "Paris", answer.Answer)
	assert.Equal(t, "What is the capital of France?", answer.Question)
	assert.NotZero(t, answer.RecordID)
	require.Len(t, answer.Context, 1)

	history, err := f.svc.History(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Paris", history[0].Answer)
}

func TestService_QARecordLinksToQueriedDocument(t *testing.T) {
	f := newServiceFixture(ServiceOptions{})
	older := f.ingest(t, "older.pdf")
	newer := f.ingest(t, "newer.pdf")

	_, err := f.svc.Answer(context.Background(), older.ID, "capital of France?")
	require.NoError(t, err)

	olderHistory, _ := f.svc.History(context.Background(), older.ID)
	newerHistory, _ := f.svc.History(context.Background(), newer.ID)
	assert.Len(t, olderHistory, 1, "record belongs to the document that was asked")
	assert.Empty(t, newerHistory)
}

func TestService_LegacyLinkToLatestDocument(t *testing.T) {
	f := newServiceFixture(ServiceOptions{LinkToLatestDocument: true})
	older := f.ingest(t, "older.pdf")
	newer := f.ingest(t, "newer.pdf")

	answer, err := f.svc.Answer(context.Background(), older.ID, "capital of France?")
	require.NoError(t, err)
	assert.Equal(t, older.ID, answer.DocumentID)

	newerHistory, _ := f.svc.History(context.Background(), newer.ID)
	assert.Len(t, newerHistory, 1)
}

func TestService_AnswerValidation(t *testing.T) {
	f := newServiceFixture(ServiceOptions{})
	doc := f.ingest(t, "a.pdf")

	_, err := f.svc.Answer(context.Background(), doc.ID, "   ")
	assert.ErrorIs(t, err, entities.ErrValidation)

	_, err = f.svc.Answer(context.Background(), doc.ID, strings.Repeat("é", MaxQuestionLength+1))
	assert.ErrorIs(t, err, entities.ErrValidation)
	assert.Empty(t, f.llm.prompts)
}

func TestService_AnswerUnknownDocument(t *testing.T) {
	f := newServiceFixture(ServiceOptions{})
	_, err := f.svc.Answer(context.Background(), 404, "q")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestService_AnswerEmptyCollectionIsNoContext(t *testing.T) {
	f := newServiceFixture(ServiceOptions{})
	doc, err := f.store.CreateDocument(context.Background(), entities.Document{Filename: "e.pdf", CollectionID: "pdf-empty"})
	require.NoError(t, err)
	require.NoError(t, f.index.CreateCollection(context.Background(), "pdf-empty", 3))

	_, err = f.svc.Answer(context.Background(), doc.ID, "anything?")
	assert.ErrorIs(t, err, entities.ErrNoContext)
	history, _ := f.svc.History(context.Background(), doc.ID)
	assert.Empty(t, history)
}

func TestService_AnswerTruncatesStoredAnswer(t *testing.T) {
	f := newServiceFixture(ServiceOptions{})
	f.llm.answer = strings.Repeat("x", MaxAnswerLength+10)
	doc := f.ingest(t, "a.pdf")

	answer, err := f.svc.Answer(context.Background(), doc.ID, "capital of France?")
	require.NoError(t, err)
	assert.Len(t, answer.Answer, MaxAnswerLength+10)

	history, _ := f.svc.History(context.Background(), doc.ID)
	assert.Len(t, history[0].Answer, MaxAnswerLength)
}

func TestService_DeleteRemovesEverything(t *testing.T) {
	f := newServiceFixture(ServiceOptions{})
	doc := f.ingest(t, "a.pdf")
	_, err := f.svc.Answer(context.Background(), doc.ID, "capital of France?")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteDocument(context.Background(), doc.ID))

	docs, err := f.svc.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)

	exists, _ := f.index.CollectionExists(context.Background(), doc.CollectionID)
	assert.False(t, exists)

	_, err = f.svc.Answer(context.Background(), doc.ID, "capital of France?")
	assert.ErrorIs(t, err, entities.ErrNotFound)
	_, err = f.svc.History(context.Background(), doc.ID)
	assert.ErrorIs(t, err, entities.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteDocument(context.Background(), doc.ID), entities.ErrNotFound)
}

func TestService_DeleteKeepsRowWhenCollectionDeleteFails(t *testing.T) {
	f := newServiceFixture(ServiceOptions{})
	doc := f.ingest(t, "a.pdf")
	f.index.deleteErr = errBoom

	err := f.svc.DeleteDocument(context.Background(), doc.ID)
	assert.ErrorIs(t, err, entities.ErrUpstream)

	_, err = f.svc.GetDocument(context.Background(), doc.ID)
	assert.NoError(t, err)
}

func TestService_DeleteToleratesMissingCollection(t *testing.T) {
	f := newServiceFixture(ServiceOptions{})
	doc := f.ingest(t, "a.pdf")
	require.NoError(t, f.index.DeleteCollection(context.Background(), doc.CollectionID))

	require.NoError(t, f.svc.DeleteDocument(context.Background(), doc.ID))
}

func TestService_OutOfBandCollectionDeleteIsNotFound(t *testing.T) {
	f := newServiceFixture(ServiceOptions{})
	doc := f.ingest(t, "a.pdf")
	require.NoError(t, f.index.DeleteCollection(context.Background(), doc.CollectionID))

	_, err := f.svc.Answer(context.Background(), doc.ID, "capital of France?")
	assert.ErrorIs(t, err, entities.ErrNotFound)
	assert.NotErrorIs(t, err, entities.ErrUpstream)
}

// deadlineIndex records the deadline seen by DeleteCollection.
type deadlineIndex struct {
	*failingIndex
	deadline time.Time
	bounded  bool
}

func (d *deadlineIndex) DeleteCollection(ctx context.Context, name string) error {
	d.deadline, d.bounded = ctx.Deadline()
	return d.failingIndex.DeleteCollection(ctx, name)
}

func TestService_DeleteBoundsCollectionDelete(t *testing.T) {
	f := newServiceFixture(ServiceOptions{})
	doc := f.ingest(t, "a.pdf")

	idx := &deadlineIndex{failingIndex: f.index}
	svc := NewService(f.svc.ingest, f.svc.pipeline, idx, f.store, ServiceOptions{CollectionDeleteTimeout: time.Second}, arbor.NewLogger())

	start := time.Now()
	require.NoError(t, svc.DeleteDocument(context.Background(), doc.ID))
	require.True(t, idx.bounded)
	assert.WithinDuration(t, start.Add(time.Second), idx.deadline, 500*time.Millisecond)

	exists, err := f.index.CollectionExists(context.Background(), doc.CollectionID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestService_DefaultCollectionDeleteTimeout(t *testing.T) {
	f := newServiceFixture(ServiceOptions{})
	assert.Equal(t, DefaultCollectionDeleteTimeout, f.svc.opts.CollectionDeleteTimeout)
}
