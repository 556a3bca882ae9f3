// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"bytes"
	"testing"

	"github.com/go-pdf/fpdf"
)

// BuildPDF renders one A4 page per entry using a core font and returns the
// PDF bytes. An empty entry produces a blank page.
func BuildPDF(t testing.TB, pages ...string) []byte {
	t.Helper()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("pdf-rag fixture", false)
	for _, text := range pages {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "", 12)
		if text != "" {
			pdf.MultiCell(0, 6, text, "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("rendering fixture PDF: %v", err)
	}
	return buf.Bytes()
}

// FrancePDF is the three-page fixture whose second page states the capital of France.
func FrancePDF(t testing.TB) []byte {
	t.Helper()
	return BuildPDF(t,
		"Chapter one describes the rivers and mountains of Europe.",
		"The capital of France is Paris.",
		"Chapter three covers the history of the printing press.",
	)
}
