package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested document doesn't exist
	ErrNotFound = errors.New("not found")
)

// SQLiteStore implements the Store interface using SQLite with an FTS5
// full-text projection.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// WAL mode so searches are not blocked by index writes
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=memory",
		"PRAGMA cache_size=-10000",
		"PRAGMA mmap_size=268435456",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	// SQLite benefits from a single pooled connection: one writer, and an
	// in-memory database stays shared across all operations
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStore creates a new SQLite store and applies migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// IsBusy reports whether err is transient SQLite write-lock contention.
// Both drivers surface the condition as a "database is locked" / SQLITE_BUSY
// message rather than a typed error.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "sqlite_busy")
}

// UpsertDocument writes the metadata row and its full-text projection in one
// transaction. Reindexing the same filename overwrites in place.
func (s *SQLiteStore) UpsertDocument(ctx context.Context, doc *Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	query := `
		INSERT INTO documents (filename, content, candidate_name, file_size, indexed_at, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			content = excluded.content,
			candidate_name = excluded.candidate_name,
			file_size = excluded.file_size,
			indexed_at = excluded.indexed_at
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, query,
		doc.Filename, doc.Content, doc.CandidateName, doc.FileSize, now, now).Scan(&doc.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	// FTS5 has no unique constraints: delete-then-insert keeps exactly one
	// full-text row per filename
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents_fts WHERE filename = ?`, doc.Filename); err != nil {
		return fmt.Errorf("failed to clear full-text row: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents_fts (filename, content, candidate_name) VALUES (?, ?, ?)`,
		doc.Filename, doc.Content, doc.CandidateName)
	if err != nil {
		return fmt.Errorf("failed to insert full-text row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	doc.IndexedAt = now
	return nil
}

// GetDocument retrieves a document by filename.
func (s *SQLiteStore) GetDocument(ctx context.Context, filename string) (*Document, error) {
	query := `
		SELECT id, filename, content, candidate_name, file_size, indexed_at, last_accessed
		FROM documents
		WHERE filename = ?
	`
	var doc Document
	var content, candidateName sql.NullString
	var fileSize sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, filename).Scan(
		&doc.ID, &doc.Filename, &content, &candidateName,
		&fileSize, &doc.IndexedAt, &doc.LastAccessed,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc.Content = content.String
	doc.CandidateName = candidateName.String
	doc.FileSize = fileSize.Int64
	return &doc, nil
}

// ListFilenames returns every indexed filename.
func (s *SQLiteStore) ListFilenames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT filename FROM documents ORDER BY filename`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	filenames := make([]string, 0)
	for rows.Next() {
		var filename string
		if err := rows.Scan(&filename); err != nil {
			return nil, err
		}
		filenames = append(filenames, filename)
	}
	return filenames, rows.Err()
}

// DeleteByFilenames removes document rows and their full-text projections in
// a single transaction. Returns the number of metadata rows removed.
func (s *SQLiteStore) DeleteByFilenames(ctx context.Context, filenames []string) (int, error) {
	if len(filenames) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(filenames))
	args := make([]interface{}, len(filenames))
	for i, name := range filenames {
		placeholders[i] = "?"
		args[i] = name
	}
	in := strings.Join(placeholders, ",")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE filename IN (`+in+`)`, args...)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents_fts WHERE filename IN (`+in+`)`, args...); err != nil {
		return 0, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return int(rowsAffected), nil
}

// TouchAccess bumps the last_accessed timestamp for returned search hits.
func (s *SQLiteStore) TouchAccess(ctx context.Context, filenames []string) error {
	if len(filenames) == 0 {
		return nil
	}

	placeholders := make([]string, len(filenames))
	args := make([]interface{}, 0, len(filenames)+1)
	args = append(args, time.Now())
	for i, name := range filenames {
		placeholders[i] = "?"
		args = append(args, name)
	}

	query := `UPDATE documents SET last_accessed = ? WHERE filename IN (` + strings.Join(placeholders, ",") + `)`
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

// Stats returns aggregate counts and sizes for the index.
func (s *SQLiteStore) Stats(ctx context.Context) (*IndexStats, error) {
	stats := &IndexStats{}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&stats.TotalIndexedFiles); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents_fts").Scan(&stats.TotalFTSRows); err != nil {
		return nil, err
	}

	var totalSize sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT SUM(file_size) FROM documents").Scan(&totalSize); err != nil {
		return nil, err
	}
	stats.TotalSizeMB = float64(totalSize.Int64) / (1024 * 1024)

	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		stats.DBSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return stats, nil
}

// Optimize runs the SQLite optimizer and compacts the database file.
func (s *SQLiteStore) Optimize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("failed to optimize: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum: %w", err)
	}
	return nil
}
