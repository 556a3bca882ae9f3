package usecases

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
	"github.com/prathap024-ctrl/pdf-rag/internal/domain/ports"
)

type chanWatcher struct {
	events  chan ports.FileEvent
	stopped bool
}

func (w *chanWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	return w.events, nil
}

func (w *chanWatcher) Stop() error {
	w.stopped = true
	return nil
}

type stubLoader struct{ err error }

func (l stubLoader) Load(ctx context.Context, path string) (entities.Upload, error) {
	if l.err != nil {
		return entities.Upload{}, l.err
	}
	return entities.Upload{Filename: path, Data: pdfBytes}, nil
}

func (stubLoader) SupportedExtensions() []string { return []string{".pdf"} }

type recordingIngester struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingIngester) Ingest(ctx context.Context, upload entities.Upload) (IngestResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, upload.Filename)
	return IngestResult{Document: entities.Document{ID: int64(len(r.names)), Filename: upload.Filename}, Chunks: 1}, nil
}

func TestInboxWatcher_IngestsEachPathOnce(t *testing.T) {
	watcher := &chanWatcher{events: make(chan ports.FileEvent, 10)}
	ingester := &recordingIngester{}
	w := NewInboxWatcher(watcher, stubLoader{}, ingester, arbor.NewLogger())

	watcher.events <- ports.FileEvent{Path: "a.pdf", Operation: ports.FileCreated}
	watcher.events <- ports.FileEvent{Path: "a.pdf", Operation: ports.FileModified}
	watcher.events <- ports.FileEvent{Path: "b.pdf", Operation: ports.FileModified}
	watcher.events <- ports.FileEvent{Path: "a.pdf", Operation: ports.FileDeleted}
	watcher.events <- ports.FileEvent{Path: "a.pdf", Operation: ports.FileCreated}
	close(watcher.events)

	var results []IngestResult
	err := w.Run(context.Background(), "inbox", func(r IngestResult) { results = append(results, r) })
	require.NoError(t, err)

	assert.Equal(t, []string{"a.pdf", "b.pdf", "a.pdf"}, ingester.names)
	assert.Len(t, results, 3)
	assert.True(t, watcher.stopped)
}

func TestInboxWatcher_LoadFailureAllowsRetry(t *testing.T) {
	watcher := &chanWatcher{events: make(chan ports.FileEvent, 10)}
	ingester := &recordingIngester{}
	w := NewInboxWatcher(watcher, stubLoader{err: errBoom}, ingester, arbor.NewLogger())

	watcher.events <- ports.FileEvent{Path: "a.pdf", Operation: ports.FileCreated}
	close(watcher.events)
	require.NoError(t, w.Run(context.Background(), "inbox", nil))

	assert.Empty(t, ingester.names)
	w.mu.Lock()
	assert.NotContains(t, w.seen, "a.pdf")
	w.mu.Unlock()
}

func TestInboxWatcher_StopsOnCancel(t *testing.T) {
	watcher := &chanWatcher{events: make(chan ports.FileEvent)}
	w := NewInboxWatcher(watcher, stubLoader{}, &recordingIngester{}, arbor.NewLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.NoError(t, w.Run(ctx, "inbox", nil))
}
