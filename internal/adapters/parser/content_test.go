package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractText_SimpleTj(t *testing.T) {
	stream := "BT /F1 12 Tf 72 712 Td (Hello World) Tj ET"
	assert.Equal(t, "Hello World", ExtractText([]byte(stream)))
}

func TestExtractText_LinesFromTextMoves(t *testing.T) {
	stream := `BT /F1 12 Tf 72 712 Td (First line) Tj 0 -14 Td (Second line) Tj T* (Third) Tj ET`
	assert.Equal(t, "First line\nSecond line\nThird", ExtractText([]byte(stream)))
}

func TestExtractText_SeparateTextObjects(t *testing.T) {
	stream := "BT 31.19 794.57 Td (The capital) Tj ET\nBT 31.19 780.00 Td (of France) Tj ET"
	assert.Equal(t, "The capital\nof France", ExtractText([]byte(stream)))
}

func TestExtractText_TJKerningAndSpaces(t *testing.T) {
	stream := `BT [(Hel) -20 (lo) -300 (World)] TJ ET`
	assert.Equal(t, "Hello World", ExtractText([]byte(stream)))
}

func TestExtractText_Escapes(t *testing.T) {
	stream := `BT (a \(nested\) \\ b) Tj ( \101\102) Tj ET`
	assert.Equal(t, `a (nested) \ b AB`, ExtractText([]byte(stream)))
}

func TestExtractText_HexAndUTF16(t *testing.T) {
	stream := `BT <48656C6C6F> Tj T* <FEFF00500061007200690073> Tj ET`
	assert.Equal(t, "Hello\nParis", ExtractText([]byte(stream)))
}

func TestExtractText_WinAnsi(t *testing.T) {
	stream := []byte("BT (caf\xe9) Tj ET")
	assert.Equal(t, "café", ExtractText(stream))
}

func TestExtractText_QuoteOperators(t *testing.T) {
	stream := `BT (one) Tj (two) ' 1 2 (three) " ET`
	assert.Equal(t, "one\ntwo\nthree", ExtractText([]byte(stream)))
}

func TestExtractText_IgnoresGraphicsAndComments(t *testing.T) {
	stream := "% comment (not text) Tj\nq 1 0 0 1 0 0 cm /Im1 Do Q 0.5 g BT (kept) Tj ET"
	assert.Equal(t, "kept", ExtractText([]byte(stream)))
}

func TestExtractText_Empty(t *testing.T) {
	assert.Equal(t, "", ExtractText(nil))
}
