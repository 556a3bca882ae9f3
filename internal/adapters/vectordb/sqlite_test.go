package vectordb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	indexContract(t, newTestSQLiteStore(t))
}

func TestSQLiteStore_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewSQLiteStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.CreateCollection(ctx, "pdf-p", 3))
	require.NoError(t, store.Upsert(ctx, "pdf-p", sampleChunks()))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count(ctx, "pdf-p")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	results, err := reopened.Query(ctx, "pdf-p", []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "rivers", results[0].Chunk.Text)
	assert.Equal(t, "a.pdf", results[0].Chunk.Source)
}

func TestSQLiteStore_CollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	require.NoError(t, store.CreateCollection(ctx, "pdf-1", 2))
	require.NoError(t, store.CreateCollection(ctx, "pdf-2", 2))
	require.NoError(t, store.Upsert(ctx, "pdf-1", []entities.Chunk{{Text: "one", Embedding: []float32{1, 0}}}))
	require.NoError(t, store.Upsert(ctx, "pdf-2", []entities.Chunk{{Text: "two", Embedding: []float32{1, 0}}}))

	results, err := store.Query(ctx, "pdf-2", []float32{1, 0}, 4)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "two", results[0].Chunk.Text)

	require.NoError(t, store.DeleteCollection(ctx, "pdf-1"))
	count, err := store.Count(ctx, "pdf-2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLiteStore_DuplicateCollection(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	require.NoError(t, store.CreateCollection(ctx, "pdf-d", 2))
	assert.Error(t, store.CreateCollection(ctx, "pdf-d", 2))
	assert.Error(t, store.CreateCollection(ctx, "pdf-e", -1))
}
