package usecases

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
	"github.com/prathap024-ctrl/pdf-rag/internal/domain/ports"
)

// Ingester is anything that can ingest an upload.
type Ingester interface {
	Ingest(ctx context.Context, upload entities.Upload) (IngestResult, error)
}

// InboxWatcher ingests PDFs dropped into a directory.
type InboxWatcher struct {
	watcher  ports.FileWatcher
	loader   ports.FileLoader
	ingester Ingester
	logger   arbor.ILogger

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewInboxWatcher creates an inbox watcher.
func NewInboxWatcher(watcher ports.FileWatcher, loader ports.FileLoader, ingester Ingester, logger arbor.ILogger) *InboxWatcher {
	return &InboxWatcher{
		watcher:  watcher,
		loader:   loader,
		ingester: ingester,
		logger:   logger,
		seen:     make(map[string]struct{}),
	}
}

// Run blocks until ctx is done or the watcher closes. Each path is ingested
// once; removing the file allows it to be ingested again.
// onIngest, when non-nil, receives every successful result.
func (w *InboxWatcher) Run(ctx context.Context, dir string, onIngest func(IngestResult)) error {
	events, err := w.watcher.Watch(ctx, dir)
	if err != nil {
		return err
	}
	defer w.watcher.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			w.handle(ctx, event, onIngest)
		}
	}
}

func (w *InboxWatcher) handle(ctx context.Context, event ports.FileEvent, onIngest func(IngestResult)) {
	w.mu.Lock()
	_, done := w.seen[event.Path]
	switch event.Operation {
	case ports.FileDeleted:
		delete(w.seen, event.Path)
		w.mu.Unlock()
		return
	default:
		if done {
			w.mu.Unlock()
			return
		}
		w.seen[event.Path] = struct{}{}
	}
	w.mu.Unlock()

	upload, err := w.loader.Load(ctx, event.Path)
	if err != nil {
		w.logger.Error().Err(err).Str("path", event.Path).Msg("Failed to load inbox file")
		w.forget(event.Path)
		return
	}

	result, err := w.ingester.Ingest(ctx, upload)
	if err != nil {
		w.logger.Error().Err(err).Str("path", event.Path).Msg("Failed to ingest inbox file")
		return
	}

	w.logger.Info().
		Str("path", event.Path).
		Int64("document_id", result.Document.ID).
		Int("chunks", result.Chunks).
		Msg("Inbox file ingested")
	if onIngest != nil {
		onIngest(result)
	}
}

func (w *InboxWatcher) forget(path string) {
	w.mu.Lock()
	delete(w.seen, path)
	w.mu.Unlock()
}
