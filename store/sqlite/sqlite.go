/*
Package sqlite provides a SQLite-backed implementation of generic.DocumentStore.

PURPOSE:
  Persists the bot's tagged documents (attendance days, off-log entries,
  quota adjustments, the schedule ledger) when running outside a chat host
  that supplies its own persistence.

KEY TABLES:
  documents:     One row per JSON document, id gives insertion order
  document_tags: (doc_id, tag) pairs, tag in "key:value" form

TAG MATCHING:
  A document matches when it carries every requested tag. The query groups
  the tag rows of each document and keeps those whose count of requested
  tags equals the number requested.

UPSERT:
  Runs inside one SQL transaction: the first matching document keeps its
  row (and therefore its position) and gets the new body and tags; further
  matches are deleted.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/timee.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - generic/store.go: Interface definition
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/timee/generic"
)

// Store implements generic.DocumentStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection, used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		body TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS document_tags (
		doc_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		tag TEXT NOT NULL,
		PRIMARY KEY (doc_id, tag)
	);

	CREATE INDEX IF NOT EXISTS idx_document_tags_tag
		ON document_tags(tag);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DOCUMENT STORE (generic.DocumentStore interface)
// =============================================================================

func (s *Store) Write(ctx context.Context, tags generic.Tags, doc json.RawMessage, upsert bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)

	var ids []int64
	if upsert {
		ids, err = matchingIDs(ctx, tx, tags)
		if err != nil {
			return err
		}
	}

	if len(ids) == 0 {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO documents (body, created_at, updated_at) VALUES (?, ?, ?)`,
			string(doc), now, now)
		if err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if err := insertTags(ctx, tx, id, tags); err != nil {
			return err
		}
		return tx.Commit()
	}

	keep := ids[0]
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET body = ?, updated_at = ? WHERE id = ?`,
		string(doc), now, keep); err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM document_tags WHERE doc_id = ?`, keep); err != nil {
		return err
	}
	if err := insertTags(ctx, tx, keep, tags); err != nil {
		return err
	}
	if err := deleteIDs(ctx, tx, ids[1:]); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Read(ctx context.Context, tags generic.Tags) ([]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query, args := matchQuery("d.id, d.body", tags)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var result []json.RawMessage
	for rows.Next() {
		var (
			id   int64
			body string
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		result = append(result, json.RawMessage(body))
	}
	return result, rows.Err()
}

func (s *Store) Remove(ctx context.Context, tags generic.Tags) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ids, err := matchingIDs(ctx, tx, tags)
	if err != nil {
		return 0, err
	}
	if err := deleteIDs(ctx, tx, ids); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// =============================================================================
// QUERY HELPERS
// =============================================================================

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// matchQuery selects documents carrying all tags, oldest first.
func matchQuery(columns string, tags generic.Tags) (string, []any) {
	want := uniqueTags(tags)
	if len(want) == 0 {
		return "SELECT " + columns + " FROM documents d ORDER BY d.id", nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(want)), ",")
	query := `SELECT ` + columns + ` FROM documents d
		JOIN document_tags t ON t.doc_id = d.id
		WHERE t.tag IN (` + placeholders + `)
		GROUP BY d.id
		HAVING COUNT(DISTINCT t.tag) = ?
		ORDER BY d.id`

	args := make([]any, 0, len(want)+1)
	for _, t := range want {
		args = append(args, t)
	}
	args = append(args, len(want))
	return query, args
}

func matchingIDs(ctx context.Context, q queryer, tags generic.Tags) ([]int64, error) {
	query, args := matchQuery("d.id", tags)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func insertTags(ctx context.Context, q queryer, id int64, tags generic.Tags) error {
	for _, t := range uniqueTags(tags) {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO document_tags (doc_id, tag) VALUES (?, ?)`, id, t); err != nil {
			return fmt.Errorf("failed to insert tag: %w", err)
		}
	}
	return nil
}

func deleteIDs(ctx context.Context, q queryer, ids []int64) error {
	for _, id := range ids {
		if _, err := q.ExecContext(ctx, `DELETE FROM document_tags WHERE doc_id = ?`, id); err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
	}
	return nil
}

func uniqueTags(tags generic.Tags) []string {
	var out []string
	for _, t := range tags.Strings() {
		if n := len(out); n > 0 && out[n-1] == t {
			continue
		}
		out = append(out, t)
	}
	return out
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"document_tags", "documents"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

var _ generic.DocumentStore = (*Store)(nil)
