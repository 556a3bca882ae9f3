package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
)

// QdrantConfig configures the Qdrant REST adapter.
type QdrantConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// QdrantStore implements ports.VectorIndex with one Qdrant collection per document.
type QdrantStore struct {
	url    string
	apiKey string
	client *http.Client
	logger arbor.ILogger

	mu   sync.RWMutex
	dims map[string]int // Collection dimension cache
}

// NewQdrantStore creates a Qdrant REST client.
func NewQdrantStore(cfg QdrantConfig, logger arbor.ILogger) *QdrantStore {
	if cfg.URL == "" {
		cfg.URL = "http://localhost:6333"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &QdrantStore{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		dims:   make(map[string]int),
	}
}

// qdrantStatusError carries the HTTP status of a failed call.
type qdrantStatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *qdrantStatusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

func (s *QdrantStore) collectionPath(name string, suffix string) string {
	return "/collections/" + url.PathEscape(name) + suffix
}

// CreateCollection creates a cosine-distance collection of the given size.
func (s *QdrantStore) CreateCollection(ctx context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d for collection %s", dimension, name)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := s.do(ctx, http.MethodPut, s.collectionPath(name, ""), body, nil); err != nil {
		return err
	}

	s.mu.Lock()
	s.dims[name] = dimension
	s.mu.Unlock()

	s.logger.Debug().Str("collection", name).Int("dimension", dimension).Msg("Qdrant collection created")
	return nil
}

// CollectionExists reports whether the collection exists.
func (s *QdrantStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	_, err := s.dimension(ctx, name, true)
	if errors.Is(err, entities.ErrCollectionNotFound) {
		return false, nil
	}
	return err == nil, err
}

// dimension returns the collection's vector size, from cache unless fresh is set.
func (s *QdrantStore) dimension(ctx context.Context, name string, fresh bool) (int, error) {
	if !fresh {
		s.mu.RLock()
		dim, ok := s.dims[name]
		s.mu.RUnlock()
		if ok {
			return dim, nil
		}
	}

	var resp struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, s.collectionPath(name, ""), nil, &resp); err != nil {
		if isNotFound(err) {
			s.forget(name)
			return 0, fmt.Errorf("%s: %w", name, entities.ErrCollectionNotFound)
		}
		return 0, err
	}

	dim := resp.Result.Config.Params.Vectors.Size
	s.mu.Lock()
	s.dims[name] = dim
	s.mu.Unlock()
	return dim, nil
}

func (s *QdrantStore) forget(name string) {
	s.mu.Lock()
	delete(s.dims, name)
	s.mu.Unlock()
}

// Upsert writes chunks as points with deterministic ids derived from position.
func (s *QdrantStore) Upsert(ctx context.Context, name string, chunks []entities.Chunk) error {
	dim, err := s.dimension(ctx, name, false)
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		if err := checkDimension(name, dim, chunk.Embedding); err != nil {
			return err
		}
	}

	next, err := s.Count(ctx, name)
	if err != nil {
		return err
	}

	points := make([]map[string]any, len(chunks))
	for i, chunk := range chunks {
		position := next + i
		points[i] = map[string]any{
			"id":     uuid.NewSHA1(uuid.NameSpaceURL, []byte(name+"/"+strconv.Itoa(position))).String(),
			"vector": chunk.Embedding,
			"payload": map[string]any{
				"text":     chunk.Text,
				"source":   chunk.Source,
				"page":     chunk.Page,
				"offset":   chunk.Offset,
				"position": position,
			},
		}
	}

	return s.do(ctx, http.MethodPut, s.collectionPath(name, "/points?wait=true"), map[string]any{"points": points}, nil)
}

// Query runs a nearest-neighbour search with payloads.
func (s *QdrantStore) Query(ctx context.Context, name string, embedding []float32, topK int) ([]entities.QueryResult, error) {
	dim, err := s.dimension(ctx, name, false)
	if err != nil {
		return nil, err
	}
	if err := checkDimension(name, dim, embedding); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 4
	}

	req := map[string]any{
		"vector":       embedding,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload struct {
				Text   string `json:"text"`
				Source string `json:"source"`
				Page   int    `json:"page"`
				Offset int    `json:"offset"`
			} `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionPath(name, "/points/search"), req, &resp); err != nil {
		if isNotFound(err) {
			s.forget(name)
			return nil, fmt.Errorf("%s: %w", name, entities.ErrCollectionNotFound)
		}
		return nil, err
	}

	results := make([]entities.QueryResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, entities.QueryResult{
			Chunk: entities.Chunk{
				Text:   r.Payload.Text,
				Source: r.Payload.Source,
				Page:   r.Payload.Page,
				Offset: r.Payload.Offset,
			},
			Score: r.Score,
		})
	}
	return results, nil
}

// DeleteCollection drops the collection. A missing collection is not an error.
func (s *QdrantStore) DeleteCollection(ctx context.Context, name string) error {
	s.forget(name)
	err := s.do(ctx, http.MethodDelete, s.collectionPath(name, ""), nil, nil)
	if isNotFound(err) {
		return nil
	}
	return err
}

// ListCollections returns all collection names.
func (s *QdrantStore) ListCollections(ctx context.Context) ([]string, error) {
	var resp struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, "/collections", nil, &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Result.Collections))
	for _, c := range resp.Result.Collections {
		names = append(names, c.Name)
	}
	return names, nil
}

// Count returns the exact number of points in a collection.
func (s *QdrantStore) Count(ctx context.Context, name string) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionPath(name, "/points/count"), map[string]any{"exact": true}, &resp); err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("%s: %w", name, entities.ErrCollectionNotFound)
		}
		return 0, err
	}
	return resp.Result.Count, nil
}

func (s *QdrantStore) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding qdrant request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return fmt.Errorf("creating qdrant request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling qdrant: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &qdrantStatusError{Method: method, Path: path, Status: resp.StatusCode, Body: string(msg)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding qdrant response: %w", err)
		}
	}
	return nil
}

func isNotFound(err error) bool {
	var se *qdrantStatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}
