// Package history keeps a sqlite log of analyzed command executions.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/timvw/pane-runner/internal/model"
)

// DefaultLimit caps Recent when the query sets no limit.
const DefaultLimit = 50

const schema = `
CREATE TABLE IF NOT EXISTS executions (
	id TEXT PRIMARY KEY,
	session TEXT NOT NULL,
	command TEXT NOT NULL,
	status TEXT NOT NULL,
	format TEXT NOT NULL,
	summary TEXT NOT NULL,
	finding_count INTEGER NOT NULL,
	critical_count INTEGER NOT NULL,
	line_count INTEGER NOT NULL,
	byte_count INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_executions_session ON executions(session);
CREATE INDEX IF NOT EXISTS idx_executions_created ON executions(created_at);
`

// Store persists executions in a sqlite database.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex // serializes writes
}

// Query filters Recent. Zero values match everything.
type Query struct {
	Session string
	Format  string
	Since   time.Time
	// OnlyCritical keeps executions with at least one critical finding.
	OnlyCritical bool
	Limit        int
}

// Open creates or opens the database at path. The path ":memory:" keeps
// everything in memory.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// ":memory:" databases exist per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one execution.
func (s *Store) Record(ctx context.Context, e model.Execution) error {
	if e.ID == "" {
		return fmt.Errorf("record execution: empty id")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions (id, session, command, status, format, summary,
			finding_count, critical_count, line_count, byte_count, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Session, e.Command, e.Status, e.Format, e.Summary,
		e.FindingCount, e.CriticalCount, e.LineCount, e.ByteCount, e.DurationMs,
		e.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record execution %s: %w", e.ID, err)
	}
	return nil
}

// Recent returns matching executions, newest first.
func (s *Store) Recent(ctx context.Context, q Query) ([]model.Execution, error) {
	var (
		where []string
		args  []any
	)
	if q.Session != "" {
		where = append(where, "session = ?")
		args = append(args, q.Session)
	}
	if q.Format != "" {
		where = append(where, "format = ?")
		args = append(args, q.Format)
	}
	if !q.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, q.Since.UTC().UnixMilli())
	}
	if q.OnlyCritical {
		where = append(where, "critical_count > 0")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `SELECT id, session, command, status, format, summary,
		finding_count, critical_count, line_count, byte_count, duration_ms, created_at
		FROM executions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := []model.Execution{}
	for rows.Next() {
		var (
			e       model.Execution
			created int64
		)
		if err := rows.Scan(&e.ID, &e.Session, &e.Command, &e.Status, &e.Format, &e.Summary,
			&e.FindingCount, &e.CriticalCount, &e.LineCount, &e.ByteCount, &e.DurationMs, &created); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return out, nil
}

// Prune deletes executions created before the cutoff and returns how many
// were removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM executions WHERE created_at < ?", before.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return n, nil
}
