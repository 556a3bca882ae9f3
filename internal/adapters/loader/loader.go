// Package loader provides document loading adapters.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
	"github.com/prathap024-ctrl/pdf-rag/internal/domain/ports"
)

const (
	DefaultSettleInterval = 500 * time.Millisecond
	DefaultMaxSize        = 50 << 20
)

// PDFFileLoader reads PDFs from disk once their size stops changing.
type PDFFileLoader struct {
	settle  time.Duration
	maxSize int64
	logger  arbor.ILogger
}

var _ ports.FileLoader = (*PDFFileLoader)(nil)

// NewPDFFileLoader creates a loader. Zero values select the defaults.
func NewPDFFileLoader(settle time.Duration, maxSize int64, logger arbor.ILogger) *PDFFileLoader {
	if settle <= 0 {
		settle = DefaultSettleInterval
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &PDFFileLoader{settle: settle, maxSize: maxSize, logger: logger}
}

// Load waits until two consecutive stats agree on size, then reads the file.
func (l *PDFFileLoader) Load(ctx context.Context, path string) (entities.Upload, error) {
	if !l.supported(path) {
		return entities.Upload{}, entities.Validation("unsupported file type %q", filepath.Ext(path))
	}

	size, err := l.waitStable(ctx, path)
	if err != nil {
		return entities.Upload{}, err
	}
	if size > l.maxSize {
		return entities.Upload{}, entities.Validation("%s is %d bytes, limit is %d", filepath.Base(path), size, l.maxSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return entities.Upload{}, fmt.Errorf("reading %s: %w", path, err)
	}

	l.logger.Debug().Str("path", path).Int64("size", size).Msg("Loaded file")
	return entities.Upload{Filename: filepath.Base(path), Data: data}, nil
}

func (l *PDFFileLoader) waitStable(ctx context.Context, path string) (int64, error) {
	last := int64(-1)
	for {
		info, err := os.Stat(path)
		if err != nil {
			return 0, fmt.Errorf("stat %s: %w", path, err)
		}
		if info.IsDir() {
			return 0, entities.Validation("%s is a directory", path)
		}
		if info.Size() == last && last > 0 {
			return last, nil
		}
		last = info.Size()

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(l.settle):
		}
	}
}

// SupportedExtensions returns file extensions.
func (l *PDFFileLoader) SupportedExtensions() []string {
	return []string{".pdf"}
}

func (l *PDFFileLoader) supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range l.SupportedExtensions() {
		if ext == e {
			return true
		}
	}
	return false
}
