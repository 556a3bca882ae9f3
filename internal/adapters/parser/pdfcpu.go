// Package parser provides document parsing adapters.
// Adapter implementing ports.DocumentParser on top of pdfcpu.
package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
)

// pageFileRe matches the page number in files written by api.ExtractContentFile.
var pageFileRe = regexp.MustCompile(`(?i)page_(\d+)\.txt$`)

// PDFParser extracts page text from PDF bytes using pdfcpu.
type PDFParser struct {
	tempDir string
	logger  arbor.ILogger
}

// NewPDFParser creates a parser that stages work files under tempDir
// (os.TempDir when empty).
func NewPDFParser(tempDir string, logger arbor.ILogger) *PDFParser {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &PDFParser{tempDir: tempDir, logger: logger}
}

// Parse writes data to a scratch directory, extracts every page's content
// stream and decodes the text-showing operators. Pages come back in order,
// including pages with no text.
func (p *PDFParser) Parse(ctx context.Context, data []byte, filename string) ([]entities.Page, error) {
	if err := os.MkdirAll(p.tempDir, 0755); err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	workDir, err := os.MkdirTemp(p.tempDir, "pdfrag-parse-*")
	if err != nil {
		return nil, fmt.Errorf("creating work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	inFile := filepath.Join(workDir, "input.pdf")
	if err := os.WriteFile(inFile, data, 0644); err != nil {
		return nil, fmt.Errorf("writing temp PDF: %w", err)
	}

	pdfCtx, err := api.ReadContextFile(inFile)
	if err != nil {
		return nil, fmt.Errorf("reading PDF %s: %w", filename, err)
	}
	pageCount := pdfCtx.PageCount

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outDir := filepath.Join(workDir, "content")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("creating content dir: %w", err)
	}
	if err := api.ExtractContentFile(inFile, outDir, nil, model.NewDefaultConfiguration()); err != nil {
		return nil, fmt.Errorf("extracting content from %s: %w", filename, err)
	}

	files, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("reading content dir: %w", err)
	}

	texts := make(map[int]string, len(files))
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		m := pageFileRe.FindStringSubmatch(f.Name())
		if m == nil {
			continue
		}
		pageNum, _ := strconv.Atoi(m[1])
		raw, err := os.ReadFile(filepath.Join(outDir, f.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading page %d content: %w", pageNum, err)
		}
		texts[pageNum] = ExtractText(raw)
	}

	pages := make([]entities.Page, 0, pageCount)
	chars := 0
	for n := 1; n <= pageCount; n++ {
		text := strings.TrimSpace(texts[n])
		chars += len(text)
		pages = append(pages, entities.Page{Number: n, Text: text})
	}

	p.logger.Debug().
		Str("file", filename).
		Int("pages", pageCount).
		Int("chars", chars).
		Msg("PDF text extracted")

	return pages, nil
}

// SupportedFormats returns formats this parser handles.
func (p *PDFParser) SupportedFormats() []string {
	return []string{"pdf"}
}
