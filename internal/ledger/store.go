package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vmunix/rotarr/internal/media"
	"github.com/vmunix/rotarr/internal/migrations"
)

const busyTimeoutMS = 5000

// Store is the SQLite-backed import ledger.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore wraps an already migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Open opens (creating if needed) the ledger at path and applies the schema.
// A file that is not a valid ledger yields ErrCorrupt.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	// One connection keeps :memory: databases coherent and serializes writes.
	db.SetMaxOpenConns(1)

	if err := checkIntegrity(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, migrations.InitialSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate ledger: %w", classifyOpenError(err))
	}
	return NewStore(db), nil
}

func dsn(path string) string {
	if path == ":memory:" {
		return path
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)",
		path, busyTimeoutMS)
}

func checkIntegrity(ctx context.Context, db *sql.DB) error {
	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("check ledger: %w", classifyOpenError(err))
	}
	if result != "ok" {
		return fmt.Errorf("check ledger: %w: %s", ErrCorrupt, result)
	}
	return nil
}

func classifyOpenError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "file is not a database") || strings.Contains(msg, "malformed") {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return err
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// mapSQLiteError converts SQLite errors to ledger error types.
func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	// modernc.org/sqlite wraps errors; check error message for constraint violations
	errStr := err.Error()
	if strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "PRIMARY KEY constraint failed") {
		return ErrDuplicate
	}
	if strings.Contains(errStr, "CHECK constraint failed") ||
		strings.Contains(errStr, "NOT NULL constraint failed") {
		return ErrConstraint
	}
	return err
}

// Contains reports whether externalID has been imported.
func (s *Store) Contains(ctx context.Context, externalID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM imported_media WHERE external_id = ?", externalID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", externalID, err)
	}
	return true, nil
}

// Insert records a new entry. ImportedAt is set when zero.
// Returns ErrDuplicate if the external id is already present; the existing row is left untouched.
func (s *Store) Insert(ctx context.Context, e *Entry) error {
	if e.ImportedAt.IsZero() {
		e.ImportedAt = s.now()
	}
	e.ImportedAt = e.ImportedAt.UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO imported_media (external_id, media_kind, title, source_list, imported_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ExternalID, e.Kind, e.Title, e.SourceList, e.ImportedAt,
	)
	if err != nil {
		return fmt.Errorf("insert %s: %w", e.ExternalID, mapSQLiteError(err))
	}
	return nil
}

const selectColumns = "SELECT external_id, media_kind, title, source_list, imported_at FROM imported_media "

func scanEntry(sc interface{ Scan(...any) error }) (*Entry, error) {
	e := &Entry{}
	if err := sc.Scan(&e.ExternalID, &e.Kind, &e.Title, &e.SourceList, &e.ImportedAt); err != nil {
		return nil, err
	}
	return e, nil
}

// Get returns the entry for externalID or ErrNotFound.
func (s *Store) Get(ctx context.Context, externalID string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+"WHERE external_id = ?", externalID)
	e, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", externalID, mapSQLiteError(err))
	}
	return e, nil
}

// Oldest returns up to n entries of kind, oldest first.
// Entries sharing an import time come back in insertion order.
func (s *Store) Oldest(ctx context.Context, kind media.Kind, n int) ([]*Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	return s.query(ctx, selectColumns+"WHERE media_kind = ? ORDER BY imported_at ASC, seq ASC LIMIT ?", kind, n)
}

// List returns entries matching the filter, oldest first.
func (s *Store) List(ctx context.Context, f Filter) ([]*Entry, error) {
	query := selectColumns
	var args []any
	if f.Kind != nil {
		query += "WHERE media_kind = ? "
		args = append(args, *f.Kind)
	}
	query += "ORDER BY imported_at ASC, seq ASC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	return s.query(ctx, query, args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return results, nil
}

// Remove deletes the entry for externalID.
// This operation is idempotent - no error is returned if the entry does not exist.
func (s *Store) Remove(ctx context.Context, externalID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM imported_media WHERE external_id = ?", externalID); err != nil {
		return fmt.Errorf("remove %s: %w", externalID, mapSQLiteError(err))
	}
	return nil
}

// Count returns the number of entries of kind.
func (s *Store) Count(ctx context.Context, kind media.Kind) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM imported_media WHERE media_kind = ?", kind,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", kind, err)
	}
	return n, nil
}
