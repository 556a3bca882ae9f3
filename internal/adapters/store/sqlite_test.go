package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })
	return s
}

func createDoc(t *testing.T, s *SQLiteStore, name string, at time.Time) entities.Document {
	t.Helper()
	doc, err := s.CreateDocument(context.Background(), entities.Document{
		Filename:     name,
		Size:         1234,
		CollectionID: "pdf-" + name,
		CreatedAt:    at,
	})
	require.NoError(t, err)
	return doc
}

func TestSQLiteStore_DocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	first := createDoc(t, s, "a.pdf", base)
	second := createDoc(t, s, "b.pdf", base.Add(time.Minute))
	assert.NotZero(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	got, err := s.GetDocument(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", got.Filename)
	assert.Equal(t, int64(1234), got.Size)
	assert.Equal(t, "pdf-a.pdf", got.CollectionID)
	assert.True(t, base.Equal(got.CreatedAt))

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, second.ID, docs[0].ID)

	latest, err := s.LatestDocument(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	_, err = s.GetDocument(ctx, 999)
	assert.ErrorIs(t, err, entities.ErrDocumentNotFound)
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestSQLiteStore_EmptyStore(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)

	_, err = s.LatestDocument(ctx)
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestSQLiteStore_CollectionIDIsUnique(t *testing.T) {
	s := setupTestStore(t)
	createDoc(t, s, "a.pdf", time.Now())

	_, err := s.CreateDocument(context.Background(), entities.Document{Filename: "other.pdf", CollectionID: "pdf-a.pdf"})
	assert.Error(t, err)
}

func TestSQLiteStore_DeleteCascadesQARecords(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	doc := createDoc(t, s, "a.pdf", time.Now())
	keep := createDoc(t, s, "b.pdf", time.Now())

	_, err := s.InsertQARecord(ctx, entities.QARecord{DocumentID: doc.ID, Question: "q1", Answer: "a1"})
	require.NoError(t, err)
	_, err = s.InsertQARecord(ctx, entities.QARecord{DocumentID: keep.ID, Question: "q2", Answer: "a2"})
	require.NoError(t, err)

	var seen entities.Document
	err = s.DeleteDocument(ctx, doc.ID, func(ctx context.Context, d entities.Document) error {
		seen = d
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "pdf-a.pdf", seen.CollectionID)

	_, err = s.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, entities.ErrNotFound)

	records, err := s.ListQARecords(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = s.ListQARecords(ctx, keep.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSQLiteStore_DeleteRollsBackOnCallbackError(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	doc := createDoc(t, s, "a.pdf", time.Now())
	_, err := s.InsertQARecord(ctx, entities.QARecord{DocumentID: doc.ID, Question: "q", Answer: "a"})
	require.NoError(t, err)

	boom := errors.New("index unavailable")
	err = s.DeleteDocument(ctx, doc.ID, func(context.Context, entities.Document) error { return boom })
	assert.ErrorIs(t, err, boom)

	_, err = s.GetDocument(ctx, doc.ID)
	require.NoError(t, err, "row must survive a failed collection delete")
	records, err := s.ListQARecords(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSQLiteStore_DeleteUnknown(t *testing.T) {
	called := false
	err := setupTestStore(t).DeleteDocument(context.Background(), 42, func(context.Context, entities.Document) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, entities.ErrDocumentNotFound)
	assert.False(t, called)
}

func TestSQLiteStore_QARecordsRequireDocument(t *testing.T) {
	_, err := setupTestStore(t).InsertQARecord(context.Background(), entities.QARecord{DocumentID: 7, Question: "q", Answer: "a"})
	assert.ErrorIs(t, err, entities.ErrDocumentNotFound)
}

func TestSQLiteStore_QARecordsOrdered(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	doc := createDoc(t, s, "a.pdf", time.Now())

	for _, q := range []string{"first", "second", "third"} {
		rec, err := s.InsertQARecord(ctx, entities.QARecord{DocumentID: doc.ID, Question: q, Answer: "x"})
		require.NoError(t, err)
		assert.NotZero(t, rec.ID)
		assert.False(t, rec.CreatedAt.IsZero())
	}

	records, err := s.ListQARecords(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "first", records[0].Question)
	assert.Equal(t, "third", records[2].Question)
}

func TestSQLiteStore_MigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSQLiteStore(dir)
	require.NoError(t, err)
	createDoc(t, s, "a.pdf", time.Now())
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	var version int
	require.NoError(t, reopened.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 2, version)

	docs, err := reopened.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}
