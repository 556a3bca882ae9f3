package vectordb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
)

// SQLiteStore implements ports.VectorIndex with SQLite persistence and
// brute-force cosine search inside a single collection.
type SQLiteStore struct {
	mu       sync.RWMutex
	db       *sql.DB
	dataPath string
}

// NewSQLiteStore opens (or creates) dataPath/vectors.db.
func NewSQLiteStore(dataPath string) (*SQLiteStore, error) {
	if dataPath == "" {
		dataPath = "./data"
	}

	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataPath, "vectors.db")
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := &SQLiteStore{
		db:       db,
		dataPath: dataPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return store, nil
}

// initSchema creates the necessary tables.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		dimension INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS vectors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		collection TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		content TEXT NOT NULL,
		source TEXT,
		page INTEGER,
		char_offset INTEGER,
		embedding BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_vectors_collection ON vectors(collection);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateCollection registers an empty collection with a fixed dimension.
func (s *SQLiteStore) CreateCollection(ctx context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d for collection %s", dimension, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "INSERT INTO collections (name, dimension) VALUES (?, ?)", name, dimension)
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", name, err)
	}
	return nil
}

// CollectionExists reports whether the collection exists.
func (s *SQLiteStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	_, err := s.dimension(ctx, name)
	if errors.Is(err, entities.ErrCollectionNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLiteStore) dimension(ctx context.Context, name string) (int, error) {
	var dim int
	err := s.db.QueryRowContext(ctx, "SELECT dimension FROM collections WHERE name = ?", name).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", name, entities.ErrCollectionNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("reading collection %s: %w", name, err)
	}
	return dim, nil
}

// Upsert appends chunks to the collection in one transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, name string, chunks []entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dim, err := s.dimension(ctx, name)
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		if err := checkDimension(name, dim, chunk.Embedding); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(position) + 1, 0) FROM vectors WHERE collection = ?", name).Scan(&next); err != nil {
		return fmt.Errorf("reading next position: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (collection, position, content, source, page, char_offset, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, chunk := range chunks {
		embeddingJSON, err := json.Marshal(chunk.Embedding)
		if err != nil {
			return fmt.Errorf("encoding embedding: %w", err)
		}

		_, err = stmt.ExecContext(ctx,
			name,
			next+i,
			chunk.Text,
			chunk.Source,
			chunk.Page,
			chunk.Offset,
			embeddingJSON,
		)
		if err != nil {
			return fmt.Errorf("inserting chunk: %w", err)
		}
	}

	return tx.Commit()
}

// Query finds the most similar chunks to a query embedding within one collection.
func (s *SQLiteStore) Query(ctx context.Context, name string, embedding []float32, topK int) ([]entities.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dim, err := s.dimension(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := checkDimension(name, dim, embedding); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT position, content, source, page, char_offset, embedding
		FROM vectors
		WHERE collection = ?
	`, name)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []scored
	for rows.Next() {
		var (
			chunk         entities.Chunk
			position      int
			source        sql.NullString
			page, offset  sql.NullInt64
			embeddingJSON []byte
		)
		if err := rows.Scan(&position, &chunk.Text, &source, &page, &offset, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if err := json.Unmarshal(embeddingJSON, &chunk.Embedding); err != nil {
			return nil, fmt.Errorf("decoding embedding at position %d: %w", position, err)
		}
		chunk.Source = source.String
		chunk.Page = int(page.Int64)
		chunk.Offset = int(offset.Int64)

		results = append(results, scored{
			chunk:    chunk,
			score:    cosineSimilarity(embedding, chunk.Embedding),
			position: position,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return rankTopK(results, topK), nil
}

// DeleteCollection drops a collection; its vectors cascade.
func (s *SQLiteStore) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM collections WHERE name = ?", name)
	return err
}

// ListCollections returns all collection names.
func (s *SQLiteStore) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM collections ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Count returns the number of vectors in a collection.
func (s *SQLiteStore) Count(ctx context.Context, name string) (int, error) {
	if _, err := s.dimension(ctx, name); err != nil {
		return 0, err
	}
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vectors WHERE collection = ?", name).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
