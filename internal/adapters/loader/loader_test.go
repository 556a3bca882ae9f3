package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
)

func TestPDFFileLoader_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.PDF")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 body"), 0644))

	l := NewPDFFileLoader(5*time.Millisecond, 0, arbor.NewLogger())
	upload, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "report.PDF", upload.Filename)
	assert.Equal(t, []byte("%PDF-1.4 body"), upload.Data)
}

func TestPDFFileLoader_RejectsOtherExtensions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hi"), 0644))

	_, err := NewPDFFileLoader(time.Millisecond, 0, arbor.NewLogger()).Load(context.Background(), path)
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestPDFFileLoader_SizeLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.pdf")
	require.NoError(t, os.WriteFile(path, make([]byte, 64), 0644))

	_, err := NewPDFFileLoader(time.Millisecond, 32, arbor.NewLogger()).Load(context.Background(), path)
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestPDFFileLoader_WaitsForWriterAndHonoursContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pdf")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	// An empty file never counts as settled.
	_, err := NewPDFFileLoader(5*time.Millisecond, 0, arbor.NewLogger()).Load(ctx, path)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPDFFileLoader_MissingFile(t *testing.T) {
	_, err := NewPDFFileLoader(time.Millisecond, 0, arbor.NewLogger()).Load(context.Background(), filepath.Join(t.TempDir(), "gone.pdf"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
