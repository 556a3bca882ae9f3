// Package store persists documents and their question/answer history in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/prathap024-ctrl/pdf-rag/internal/adapters/store/migrations"
	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
	"github.com/prathap024-ctrl/pdf-rag/internal/domain/ports"
)

// SQLiteStore implements ports.MetadataStore.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ ports.MetadataStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) dataDir/metadata.db and migrates it.
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	if dataDir == "" {
		dataDir = "./data"
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{db: db, path: dbPath}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// migrate applies every NNN_name.up.sql newer than the recorded version.
func (s *SQLiteStore) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}
	return nil
}

// CreateDocument inserts a document row and returns it with its id.
func (s *SQLiteStore) CreateDocument(ctx context.Context, doc entities.Document) (entities.Document, error) {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO documents (filename, size, collection_id, created_at) VALUES (?, ?, ?, ?)",
		doc.Filename, doc.Size, doc.CollectionID, doc.CreatedAt,
	)
	if err != nil {
		return entities.Document{}, fmt.Errorf("inserting document: %w", err)
	}
	doc.ID, err = res.LastInsertId()
	if err != nil {
		return entities.Document{}, fmt.Errorf("reading document id: %w", err)
	}
	return doc, nil
}

const documentColumns = "id, filename, size, collection_id, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (entities.Document, error) {
	var doc entities.Document
	err := row.Scan(&doc.ID, &doc.Filename, &doc.Size, &doc.CollectionID, &doc.CreatedAt)
	return doc, err
}

// GetDocument loads one document. Unknown ids yield entities.ErrDocumentNotFound.
func (s *SQLiteStore) GetDocument(ctx context.Context, id int64) (entities.Document, error) {
	doc, err := scanDocument(s.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Document{}, fmt.Errorf("id %d: %w", id, entities.ErrDocumentNotFound)
	}
	if err != nil {
		return entities.Document{}, fmt.Errorf("loading document %d: %w", id, err)
	}
	return doc, nil
}

// ListDocuments returns all documents, newest first.
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]entities.Document, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+documentColumns+" FROM documents ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	docs := []entities.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// LatestDocument returns the most recently created document.
func (s *SQLiteStore) LatestDocument(ctx context.Context) (entities.Document, error) {
	doc, err := scanDocument(s.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents ORDER BY created_at DESC, id DESC LIMIT 1"))
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Document{}, fmt.Errorf("no documents: %w", entities.ErrDocumentNotFound)
	}
	if err != nil {
		return entities.Document{}, fmt.Errorf("loading latest document: %w", err)
	}
	return doc, nil
}

// DeleteDocument removes a document and, through the foreign key, its QA records.
// The row delete and beforeCommit share one transaction.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id int64, beforeCommit func(ctx context.Context, doc entities.Document) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	doc, err := scanDocument(tx.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("id %d: %w", id, entities.ErrDocumentNotFound)
	}
	if err != nil {
		return fmt.Errorf("loading document %d: %w", id, err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("id %d: %w", id, entities.ErrDocumentNotFound)
	}

	if beforeCommit != nil {
		if err := beforeCommit(ctx, doc); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete of document %d: %w", id, err)
	}
	return nil
}

// InsertQARecord appends a question/answer pair to a document's history.
func (s *SQLiteStore) InsertQARecord(ctx context.Context, rec entities.QARecord) (entities.QARecord, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO qa_records (document_id, question, answer, created_at) VALUES (?, ?, ?, ?)",
		rec.DocumentID, rec.Question, rec.Answer, rec.CreatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return entities.QARecord{}, fmt.Errorf("id %d: %w", rec.DocumentID, entities.ErrDocumentNotFound)
		}
		return entities.QARecord{}, fmt.Errorf("inserting qa record: %w", err)
	}
	rec.ID, err = res.LastInsertId()
	if err != nil {
		return entities.QARecord{}, fmt.Errorf("reading qa record id: %w", err)
	}
	return rec, nil
}

// ListQARecords returns a document's history, oldest first.
func (s *SQLiteStore) ListQARecords(ctx context.Context, documentID int64) ([]entities.QARecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, document_id, question, answer, created_at FROM qa_records WHERE document_id = ? ORDER BY id",
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing qa records: %w", err)
	}
	defer rows.Close()

	records := []entities.QARecord{}
	for rows.Next() {
		var rec entities.QARecord
		if err := rows.Scan(&rec.ID, &rec.DocumentID, &rec.Question, &rec.Answer, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning qa record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
