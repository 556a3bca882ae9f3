// Package filewatcher provides file system monitoring adapters.
package filewatcher

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/ternarybob/arbor"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/ports"
)

// FSNotifyWatcher implements ports.FileWatcher using fsnotify.
type FSNotifyWatcher struct {
	watcher    *fsnotify.Watcher
	extensions []string // Lower-case extensions to report, e.g. ".pdf"
	logger     arbor.ILogger
}

var _ ports.FileWatcher = (*FSNotifyWatcher)(nil)

// NewFSNotifyWatcher creates a new file watcher. No extensions means ".pdf".
func NewFSNotifyWatcher(extensions []string, logger arbor.ILogger) (*FSNotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if len(extensions) == 0 {
		extensions = []string{".pdf"}
	}
	normalized := make([]string, len(extensions))
	for i, e := range extensions {
		normalized[i] = strings.ToLower(e)
	}

	return &FSNotifyWatcher{
		watcher:    w,
		extensions: normalized,
		logger:     logger,
	}, nil
}

// Watch starts monitoring the directory and emits events until ctx ends.
func (w *FSNotifyWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}
	w.logger.Info().Str("dir", dir).Strs("extensions", w.extensions).Msg("Watching directory")

	events := make(chan ports.FileEvent, 100)

	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !w.isWatchedExtension(event.Name) {
					continue
				}

				var op ports.FileOperation
				switch {
				case event.Op.Has(fsnotify.Create):
					op = ports.FileCreated
				case event.Op.Has(fsnotify.Write):
					op = ports.FileModified
				case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
					op = ports.FileDeleted
				default:
					continue
				}

				w.logger.Trace().Str("path", event.Name).Str("op", op.String()).Msg("File event")
				select {
				case events <- ports.FileEvent{Path: event.Name, Operation: op}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn().Err(err).Str("dir", dir).Msg("File watcher error")
			}
		}
	}()

	return events, nil
}

// Stop stops the watcher.
func (w *FSNotifyWatcher) Stop() error {
	return w.watcher.Close()
}

func (w *FSNotifyWatcher) isWatchedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}
