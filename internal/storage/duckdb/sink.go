// Package duckdb implements a DuckDB-backed storage.Sink using database/sql.
// DuckDB is an embedded analytical database; tick loads go through a prepared
// INSERT executed row by row inside a single transaction, which DuckDB turns
// into one atomic append.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// DuckDB driver.
	_ "github.com/marcboeker/go-duckdb"
)

// Config holds DuckDB sink configuration derived from storage.Config.
type Config struct {
	// DSN is a DuckDB database file path, e.g. "sf.duckdb". Driver settings
	// may be appended query-style: "sf.duckdb?access_mode=read_write".
	DSN string

	// Table is the destination table for inserts, e.g. "demo_ticks".
	Table string

	// Columns is the ordered list of destination columns.
	Columns []string
}

// Sink is a DuckDB-backed implementation of storage.Sink. A Sink owns one
// database handle and at most one open transaction at a time.
type Sink struct {
	db  *sql.DB
	cfg Config

	tx   *sql.Tx
	stmt *sql.Stmt
}

// NewSink opens a DuckDB database using the provided DSN.
//
// DSN is passed directly to database/sql; for example:
//
//	"sf.duckdb"
//	"/data/demos/sf.duckdb?access_mode=read_write"
func NewSink(ctx context.Context, cfg Config) (*Sink, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("duckdb: DSN must not be empty")
	}
	if cfg.Table == "" {
		return nil, fmt.Errorf("duckdb: table must not be empty")
	}
	if len(cfg.Columns) == 0 {
		return nil, fmt.Errorf("duckdb: columns must not be empty")
	}

	db, err := sql.Open("duckdb", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("duckdb: open: %w", err)
	}

	// Apply a basic ping with context to fail fast on invalid DSNs.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("duckdb: ping: %w", err)
	}

	return &Sink{db: db, cfg: cfg}, nil
}

// Begin opens the session transaction and prepares the insert statement on
// it. A Sink carries at most one transaction; calling Begin again without an
// intervening Commit is an error.
func (s *Sink) Begin(ctx context.Context) error {
	if s.tx != nil {
		return fmt.Errorf("duckdb: begin: transaction already open")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("duckdb: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL(s.cfg.Table, s.cfg.Columns))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("duckdb: prepare insert: %w", err)
	}

	s.tx = tx
	s.stmt = stmt
	return nil
}

// InsertRow stages one row inside the open transaction. values must align
// with the configured columns.
func (s *Sink) InsertRow(ctx context.Context, values []any) error {
	if s.tx == nil {
		return fmt.Errorf("duckdb: insert: no open transaction")
	}
	if len(values) != len(s.cfg.Columns) {
		return fmt.Errorf("duckdb: insert: row length %d != columns length %d", len(values), len(s.cfg.Columns))
	}
	if _, err := s.stmt.ExecContext(ctx, values...); err != nil {
		return fmt.Errorf("duckdb: insert: %w", err)
	}
	return nil
}

// Commit makes all staged rows durable at once and ends the session
// transaction.
func (s *Sink) Commit(ctx context.Context) error {
	if s.tx == nil {
		return fmt.Errorf("duckdb: commit: no open transaction")
	}
	_ = s.stmt.Close()
	err := s.tx.Commit()
	s.tx = nil
	s.stmt = nil
	if err != nil {
		return fmt.Errorf("duckdb: commit: %w", err)
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
		return fmt.Errorf("duckdb: close: %w", err)
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
