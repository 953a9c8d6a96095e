// SQLite does not have a dedicated bulk-load API like Postgres COPY, but a
// prepared INSERT executed row by row inside one transaction keeps load
// rates acceptable for demo-sized volumes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// SQLite driver; replace with your preferred driver if desired.
	_ "modernc.org/sqlite" // alternative: github.com/mattn/go-sqlite3
)

// Sink is a SQLite-backed implementation of storage.Sink. A Sink owns one
// database handle and at most one open transaction at a time.
type Sink struct {
	db  *sql.DB
	cfg Config

	tx   *sql.Tx
	stmt *sql.Stmt
}

// NewSink opens a SQLite connection using the provided DSN.
//
// DSN is passed directly to database/sql; for example:
//
//	"file:ticks.db?cache=shared&_fk=1"
//	"ticks.db"
func NewSink(ctx context.Context, cfg Config) (*Sink, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	if cfg.Table == "" {
		return nil, fmt.Errorf("sqlite: table must not be empty")
	}
	if len(cfg.Columns) == 0 {
		return nil, fmt.Errorf("sqlite: columns must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// Apply a basic ping with context to fail fast on invalid DSNs.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	// Enable foreign keys by default; ignore error if driver doesn't support it.
	_, _ = db.ExecContext(ctx, "PRAGMA foreign_keys = ON;")

	return &Sink{db: db, cfg: cfg}, nil
}

// Begin opens the session transaction and prepares the insert statement on
// it. A Sink carries at most one transaction; calling Begin again without an
// intervening Commit is an error.
func (s *Sink) Begin(ctx context.Context) error {
	if s.tx != nil {
		return fmt.Errorf("sqlite: begin: transaction already open")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL(s.cfg.Table, s.cfg.Columns))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("sqlite: prepare insert: %w", err)
	}

	s.tx = tx
	s.stmt = stmt
	return nil
}

// InsertRow stages one row inside the open transaction. values must align
// with the configured columns.
func (s *Sink) InsertRow(ctx context.Context, values []any) error {
	if s.tx == nil {
		return fmt.Errorf("sqlite: insert: no open transaction")
	}
	if len(values) != len(s.cfg.Columns) {
		return fmt.Errorf("sqlite: insert: row length %d != columns length %d", len(values), len(s.cfg.Columns))
	}
	if _, err := s.stmt.ExecContext(ctx, values...); err != nil {
		return fmt.Errorf("sqlite: insert: %w", err)
	}
	return nil
}

// Commit makes all staged rows durable at once and ends the session
// transaction.
func (s *Sink) Commit(ctx context.Context) error {
	if s.tx == nil {
		return fmt.Errorf("sqlite: commit: no open transaction")
	}
	_ = s.stmt.Close()
	err := s.tx.Commit()
	s.tx = nil
	s.stmt = nil
	if err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Close rolls back any transaction that was never committed and closes the
// database, so staged-but-uncommitted rows vanish with the session.
func (s *Sink) Close() error {
	if s.tx != nil {
		_ = s.stmt.Close()
		_ = s.tx.Rollback()
		s.tx = nil
		s.stmt = nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sqlite: close: %w", err)
	}
	return nil
}

// insertSQL builds INSERT INTO <table> (<cols>) VALUES (?, ?, ...).
func insertSQL(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)
}
