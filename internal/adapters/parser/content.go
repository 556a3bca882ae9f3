package parser

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Kerning adjustments in a TJ array beyond this (in thousandths of an em)
// are rendered as a word gap.
const tjSpaceThreshold = -250

type operandKind int

const (
	kindNumber operandKind = iota
	kindString
	kindName
	kindArray
	kindOther
)

type operand struct {
	kind operandKind
	num  float64
	str  []byte
	arr  []operand
}

// ExtractText decodes the text-showing operators (Tj, TJ, ', ") of a page
// content stream into plain text. Line breaks follow T*, ', " and vertical
// text moves; everything else in the stream is ignored.
func ExtractText(content []byte) string {
	lx := &lexer{buf: content}
	tw := &textWriter{}
	var stack []operand

	for {
		tok, ok := lx.next()
		if !ok {
			break
		}
		switch tok.typ {
		case tokOperand:
			stack = append(stack, tok.op)
			continue
		case tokOperator:
		}

		switch tok.word {
		case "Tj":
			if s, ok := lastOfKind(stack, kindString); ok {
				tw.write(decodeString(s.str))
			}
		case "'":
			tw.newline()
			if s, ok := lastOfKind(stack, kindString); ok {
				tw.write(decodeString(s.str))
			}
		case "\"":
			tw.newline()
			if s, ok := lastOfKind(stack, kindString); ok {
				tw.write(decodeString(s.str))
			}
		case "TJ":
			if a, ok := lastOfKind(stack, kindArray); ok {
				for _, el := range a.arr {
					switch el.kind {
					case kindString:
						tw.write(decodeString(el.str))
					case kindNumber:
						if el.num < tjSpaceThreshold {
							tw.space()
						}
					}
				}
			}
		case "T*":
			tw.newline()
		case "Td", "TD":
			if len(stack) >= 2 && stack[len(stack)-1].kind == kindNumber {
				if stack[len(stack)-1].num != 0 {
					tw.newline()
				} else {
					tw.space()
				}
			}
		case "Tm":
			tw.newline()
		case "ET":
			tw.space()
		case "BI":
			lx.skipInlineImage()
		}
		stack = stack[:0]
	}
	return tw.String()
}

func lastOfKind(stack []operand, kind operandKind) (operand, bool) {
	if len(stack) == 0 || stack[len(stack)-1].kind != kind {
		return operand{}, false
	}
	return stack[len(stack)-1], true
}

// decodeString maps raw PDF string bytes to UTF-8. UTF-16BE strings carry a
// BOM; valid UTF-8 passes through; anything else is treated as WinAnsi.
func decodeString(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		u := make([]uint16, 0, (len(b)-2)/2)
		for i := 2; i+1 < len(b); i += 2 {
			u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(u))
	}
	if utf8.Valid(b) {
		return string(b)
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// textWriter accumulates lines, collapsing redundant spaces and blank lines.
type textWriter struct {
	lines []string
	cur   strings.Builder
}

func (w *textWriter) write(s string) {
	if s == "" {
		return
	}
	w.cur.WriteString(s)
}

func (w *textWriter) space() {
	line := w.cur.String()
	if line == "" || strings.HasSuffix(line, " ") {
		return
	}
	w.cur.WriteByte(' ')
}

func (w *textWriter) newline() {
	line := strings.TrimSpace(w.cur.String())
	w.cur.Reset()
	if line != "" {
		w.lines = append(w.lines, line)
	}
}

func (w *textWriter) String() string {
	w.newline()
	return strings.Join(w.lines, "\n")
}

type tokenType int

const (
	tokOperand tokenType = iota
	tokOperator
)

type token struct {
	typ  tokenType
	op   operand
	word string
}

type lexer struct {
	buf []byte
	pos int
}

func isWhite(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isDelim(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func (lx *lexer) skipSpace() {
	for lx.pos < len(lx.buf) {
		c := lx.buf[lx.pos]
		if isWhite(c) {
			lx.pos++
			continue
		}
		if c == '%' {
			for lx.pos < len(lx.buf) && lx.buf[lx.pos] != '\n' && lx.buf[lx.pos] != '\r' {
				lx.pos++
			}
			continue
		}
		return
	}
}

func (lx *lexer) next() (token, bool) {
	for {
		lx.skipSpace()
		if lx.pos >= len(lx.buf) {
			return token{}, false
		}
		c := lx.buf[lx.pos]
		switch {
		case c == '(':
			return token{typ: tokOperand, op: operand{kind: kindString, str: lx.literal()}}, true
		case c == '<' && lx.peek(1) == '<':
			lx.pos += 2
			return token{typ: tokOperand, op: operand{kind: kindOther}}, true
		case c == '>' && lx.peek(1) == '>':
			lx.pos += 2
			return token{typ: tokOperand, op: operand{kind: kindOther}}, true
		case c == '<':
			return token{typ: tokOperand, op: operand{kind: kindString, str: lx.hex()}}, true
		case c == '[':
			lx.pos++
			return token{typ: tokOperand, op: operand{kind: kindArray, arr: lx.array()}}, true
		case c == ']' || c == '{' || c == '}' || c == ')' || c == '>':
			lx.pos++
			continue
		case c == '/':
			lx.pos++
			return token{typ: tokOperand, op: operand{kind: kindName, str: []byte(lx.word())}}, true
		default:
			w := lx.word()
			if w == "" {
				lx.pos++
				continue
			}
			if n, err := strconv.ParseFloat(w, 64); err == nil {
				return token{typ: tokOperand, op: operand{kind: kindNumber, num: n}}, true
			}
			if w == "true" || w == "false" || w == "null" {
				return token{typ: tokOperand, op: operand{kind: kindOther}}, true
			}
			return token{typ: tokOperator, word: w}, true
		}
	}
}

func (lx *lexer) peek(off int) byte {
	if lx.pos+off < len(lx.buf) {
		return lx.buf[lx.pos+off]
	}
	return 0
}

func (lx *lexer) word() string {
	start := lx.pos
	for lx.pos < len(lx.buf) {
		c := lx.buf[lx.pos]
		if isWhite(c) || isDelim(c) {
			break
		}
		lx.pos++
	}
	return string(lx.buf[start:lx.pos])
}

// literal reads a (...) string with balanced parentheses and escapes.
func (lx *lexer) literal() []byte {
	lx.pos++ // (
	var out []byte
	depth := 1
	for lx.pos < len(lx.buf) {
		c := lx.buf[lx.pos]
		lx.pos++
		switch c {
		case '\\':
			if lx.pos >= len(lx.buf) {
				return out
			}
			e := lx.buf[lx.pos]
			lx.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if lx.pos < len(lx.buf) && lx.buf[lx.pos] == '\n' {
					lx.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && lx.pos < len(lx.buf); i++ {
						d := lx.buf[lx.pos]
						if d < '0' || d > '7' {
							break
						}
						v = v*8 + int(d-'0')
						lx.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out
}

// hex reads a <...> string; an odd final digit is padded with 0.
func (lx *lexer) hex() []byte {
	lx.pos++ // <
	var out []byte
	var hi byte
	half := false
	for lx.pos < len(lx.buf) {
		c := lx.buf[lx.pos]
		lx.pos++
		if c == '>' {
			break
		}
		v, ok := hexVal(c)
		if !ok {
			continue
		}
		if !half {
			hi = v
			half = true
		} else {
			out = append(out, hi<<4|v)
			half = false
		}
	}
	if half {
		out = append(out, hi<<4)
	}
	return out
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func (lx *lexer) array() []operand {
	var items []operand
	for {
		lx.skipSpace()
		if lx.pos >= len(lx.buf) {
			return items
		}
		if lx.buf[lx.pos] == ']' {
			lx.pos++
			return items
		}
		tok, ok := lx.next()
		if !ok {
			return items
		}
		if tok.typ == tokOperand {
			items = append(items, tok.op)
		}
	}
}

// skipInlineImage jumps past binary inline image data up to the EI operator.
func (lx *lexer) skipInlineImage() {
	idx := strings.Index(string(lx.buf[lx.pos:]), "ID")
	if idx < 0 {
		lx.pos = len(lx.buf)
		return
	}
	lx.pos += idx + 2
	for lx.pos+2 <= len(lx.buf) {
		if lx.buf[lx.pos] == 'E' && lx.buf[lx.pos+1] == 'I' &&
			isWhite(lx.buf[lx.pos-1]) && (lx.pos+2 == len(lx.buf) || isWhite(lx.buf[lx.pos+2])) {
			lx.pos += 2
			return
		}
		lx.pos++
	}
	lx.pos = len(lx.buf)
}
