package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/petitpdf/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		location TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		learning_time INTEGER NOT NULL DEFAULT 0,
		num_pages INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);

	CREATE TABLE IF NOT EXISTS bookmarks (
		document_id TEXT NOT NULL,
		page INTEGER NOT NULL,
		bookmark_id TEXT NOT NULL,
		PRIMARY KEY (document_id, page),
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveDocument inserts or replaces a document and its bookmark mapping.
func (s *SQLiteStorage) SaveDocument(ctx context.Context, doc *models.Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, location, name, learning_time, num_pages, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   location = excluded.location,
		   name = excluded.name,
		   learning_time = excluded.learning_time,
		   num_pages = excluded.num_pages`,
		doc.ID, doc.Location, doc.Name, doc.LearningTime, doc.NumPages, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	if err := replaceBookmarks(ctx, tx, doc); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateDocument writes back learning time and bookmarks for an existing document.
func (s *SQLiteStorage) UpdateDocument(ctx context.Context, doc *models.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE documents SET name = ?, learning_time = ?, num_pages = ? WHERE id = ?`,
		doc.Name, doc.LearningTime, doc.NumPages, doc.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, doc.ID)
	}
	if err := replaceBookmarks(ctx, tx, doc); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceBookmarks(ctx context.Context, tx *sql.Tx, doc *models.Document) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM bookmarks WHERE document_id = ?`, doc.ID); err != nil {
		return fmt.Errorf("failed to clear bookmarks: %w", err)
	}
	if len(doc.Bookmarks) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO bookmarks (document_id, page, bookmark_id) VALUES (?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for page, id := range doc.Bookmarks {
		if _, err := stmt.ExecContext(ctx, doc.ID, page, id); err != nil {
			return fmt.Errorf("failed to store bookmark for page %d: %w", page, err)
		}
	}
	return nil
}

// GetDocument returns a document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return s.getDocument(ctx, `WHERE id = ?`, id)
}

// GetDocumentByLocation returns the document imported from location.
func (s *SQLiteStorage) GetDocumentByLocation(ctx context.Context, location string) (*models.Document, error) {
	return s.getDocument(ctx, `WHERE location = ?`, location)
}

func (s *SQLiteStorage) getDocument(ctx context.Context, where string, arg interface{}) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRowContext(ctx,
		`SELECT id, location, name, learning_time, num_pages, created_at
		 FROM documents `+where, arg,
	).Scan(&doc.ID, &doc.Location, &doc.Name, &doc.LearningTime, &doc.NumPages, &doc.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, arg)
	}
	if err != nil {
		return nil, err
	}

	bookmarks, err := s.bookmarksFor(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	doc.Bookmarks = bookmarks
	return &doc, nil
}

func (s *SQLiteStorage) bookmarksFor(ctx context.Context, docID string) (map[int]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT page, bookmark_id FROM bookmarks WHERE document_id = ?`, docID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookmarks := make(map[int]string)
	for rows.Next() {
		var page int
		var id string
		if err := rows.Scan(&page, &id); err != nil {
			return nil, err
		}
		bookmarks[page] = id
	}
	return bookmarks, rows.Err()
}

// DeleteDocument removes a document and its bookmarks.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ListDocuments returns all documents, most recently imported first.
func (s *SQLiteStorage) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, location, name, learning_time, num_pages, created_at
		 FROM documents ORDER BY created_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, err
	}
	var docs []*models.Document
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(&doc.ID, &doc.Location, &doc.Name, &doc.LearningTime, &doc.NumPages, &doc.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, doc := range docs {
		bookmarks, err := s.bookmarksFor(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		doc.Bookmarks = bookmarks
	}
	return docs, nil
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// CountBookmarks returns the total number of bookmarked pages.
func (s *SQLiteStorage) CountBookmarks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookmarks`).Scan(&count)
	return count, err
}

// TotalLearningTime returns the summed learning time in seconds across documents.
func (s *SQLiteStorage) TotalLearningTime(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(learning_time), 0) FROM documents`).Scan(&total)
	return total, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
