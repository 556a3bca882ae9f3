package usecases

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
	"github.com/prathap024-ctrl/pdf-rag/internal/domain/ports"
)

// mockEmbedder maps text to a 3-dim vector keyed on a few marker words.
type mockEmbedder struct {
	embedFn func(text string) ([]float32, error)
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	if m.embedFn != nil {
		return m.embedFn(text)
	}
	lower := strings.ToLower(text)
	v := []float32{0.1, 0.1, 0.1}
	if strings.Contains(lower, "paris") || strings.Contains(lower, "france") {
		v[0] = 1
	}
	if strings.Contains(lower, "river") {
		v[1] = 1
	}
	if strings.Contains(lower, "press") {
		v[2] = 1
	}
	return v, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i := range texts {
		emb, err := m.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		result[i] = emb
	}
	return result, nil
}

func (m *mockEmbedder) Dimensions() int   { return 3 }
func (m *mockEmbedder) ModelName() string { return "mock" }

// mockLLM records prompts and echoes a fixed answer.
type mockLLM struct {
	answer  string
	err     error
	prompts []string
}

func (m *mockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func (m *mockLLM) ModelName() string { return "mock-llm" }

// mockParser returns fixed pages.
type mockParser struct {
	pages []entities.Page
	err   error
}

func (m *mockParser) Parse(ctx context.Context, data []byte, filename string) ([]entities.Page, error) {
	return m.pages, m.err
}

func (m *mockParser) SupportedFormats() []string { return []string{"pdf"} }

// lineSplitter emits one span per line for predictable counts.
type lineSplitter struct{}

func (lineSplitter) Split(text string) []entities.Span {
	var spans []entities.Span
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		spans = append(spans, entities.Span{Text: strings.TrimSuffix(line, "\n"), Offset: offset})
		offset += len([]rune(line))
	}
	return spans
}

// memStore is an in-memory ports.MetadataStore with cascade semantics.
type memStore struct {
	mu      sync.Mutex
	nextDoc int64
	nextRec int64
	docs    []entities.Document
	records []entities.QARecord
	clock   time.Time
}

var _ ports.MetadataStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{clock: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (m *memStore) CreateDocument(ctx context.Context, doc entities.Document) (entities.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextDoc++
	m.clock = m.clock.Add(time.Second)
	doc.ID = m.nextDoc
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = m.clock
	}
	m.docs = append(m.docs, doc)
	return doc, nil
}

func (m *memStore) GetDocument(ctx context.Context, id int64) (entities.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.ID == id {
			return d, nil
		}
	}
	return entities.Document{}, entities.ErrDocumentNotFound
}

func (m *memStore) ListDocuments(ctx context.Context) ([]entities.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.docs)
	slices.Reverse(out)
	if out == nil {
		out = []entities.Document{}
	}
	return out, nil
}

func (m *memStore) LatestDocument(ctx context.Context) (entities.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.docs) == 0 {
		return entities.Document{}, entities.ErrDocumentNotFound
	}
	return m.docs[len(m.docs)-1], nil
}

func (m *memStore) DeleteDocument(ctx context.Context, id int64, beforeCommit func(context.Context, entities.Document) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := slices.IndexFunc(m.docs, func(d entities.Document) bool { return d.ID == id })
	if idx < 0 {
		return entities.ErrDocumentNotFound
	}
	if beforeCommit != nil {
		if err := beforeCommit(ctx, m.docs[idx]); err != nil {
			return err
		}
	}
	m.docs = slices.Delete(m.docs, idx, idx+1)
	m.records = slices.DeleteFunc(m.records, func(r entities.QARecord) bool { return r.DocumentID == id })
	return nil
}

func (m *memStore) InsertQARecord(ctx context.Context, rec entities.QARecord) (entities.QARecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.ContainsFunc(m.docs, func(d entities.Document) bool { return d.ID == rec.DocumentID }) {
		return entities.QARecord{}, entities.ErrDocumentNotFound
	}
	m.nextRec++
	rec.ID = m.nextRec
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *memStore) ListQARecords(ctx context.Context, documentID int64) ([]entities.QARecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []entities.QARecord{}
	for _, r := range m.records {
		if r.DocumentID == documentID {
			out = append(out, r)
		}
	}
	return out, nil
}

// failingIndex wraps an index and fails selected operations.
type failingIndex struct {
	ports.VectorIndex
	deleteErr error
	createErr error
}

func (f *failingIndex) DeleteCollection(ctx context.Context, name string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.VectorIndex.DeleteCollection(ctx, name)
}

func (f *failingIndex) CreateCollection(ctx context.Context, name string, dim int) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.VectorIndex.CreateCollection(ctx, name, dim)
}

var errBoom = errors.New("boom")
