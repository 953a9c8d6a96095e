// Package mssql implements the tick sink for Microsoft SQL Server using
// go-mssqldb. One sink session is one transaction: rows staged with
// InsertRow become visible only after Commit.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb" // register the sqlserver driver
	"github.com/microsoft/go-mssqldb/msdsn"
)

// Config holds the SQL Server sink configuration.
type Config struct {
	// DSN is a go-mssqldb connection string or URL.
	DSN string
	// Table may be schema-qualified, e.g. "dbo.demo_ticks".
	Table string
	// Columns is the destination column order; InsertRow values follow it.
	Columns []string
}

// Sink writes rows to one SQL Server table inside a single transaction.
// It is not safe for concurrent use.
type Sink struct {
	db   *sql.DB
	cfg  Config
	tx   *sql.Tx
	stmt *sql.Stmt
}

// NewSink validates the configuration, opens the database, and verifies
// connectivity.
func NewSink(ctx context.Context, cfg Config) (*Sink, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("mssql: dsn is required")
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, fmt.Errorf("mssql: table is required")
	}
	if len(cfg.Columns) == 0 {
		return nil, fmt.Errorf("mssql: columns are required")
	}
	// Validate the DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, fmt.Errorf("mssql: dsn: %w", err)
	}

	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mssql: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mssql: ping: %w", err)
	}

	return &Sink{db: db, cfg: cfg}, nil
}

// Begin opens the session transaction and prepares the insert statement.
func (s *Sink) Begin(ctx context.Context) error {
	if s.tx != nil {
		return fmt.Errorf("mssql: begin: transaction already open")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mssql: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL(s.cfg.Table, s.cfg.Columns))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("mssql: prepare insert: %w", err)
	}
	s.tx = tx
	s.stmt = stmt
	return nil
}

// InsertRow stages one row in the open transaction.
func (s *Sink) InsertRow(ctx context.Context, values []any) error {
	if s.tx == nil {
		return fmt.Errorf("mssql: insert: no open transaction")
	}
	if len(values) != len(s.cfg.Columns) {
		return fmt.Errorf("mssql: insert: row length %d != columns length %d", len(values), len(s.cfg.Columns))
	}
	if _, err := s.stmt.ExecContext(ctx, values...); err != nil {
		return fmt.Errorf("mssql: insert: %w", err)
	}
	return nil
}

// Commit makes the session's rows durable and ends the transaction.
func (s *Sink) Commit(ctx context.Context) error {
	if s.tx == nil {
		return fmt.Errorf("mssql: commit: no open transaction")
	}
	_ = s.stmt.Close()
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("mssql: commit: %w", err)
	}
	s.tx = nil
	s.stmt = nil
	return nil
}

// Close rolls back a still-open transaction and releases the connection.
func (s *Sink) Close() error {
	if s.tx != nil {
		_ = s.stmt.Close()
		_ = s.tx.Rollback()
		s.tx = nil
		s.stmt = nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("mssql: close: %w", err)
	}
	return nil
}

// insertSQL builds the positional insert for table with @pN placeholders.
func insertSQL(table string, columns []string) string {
	ph := make([]string, len(columns))
	for i := range columns {
		ph[i] = fmt.Sprintf("@p%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		msFQN(table),
		strings.Join(mapIdent(columns), ", "),
		strings.Join(ph, ", "),
	)
}

// msIdent safely quotes a SQL Server identifier using [brackets], escaping ].
func msIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// msFQN quotes a possibly schema-qualified name like "dbo.demo_ticks" to
// "[dbo].[demo_ticks]".
func msFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = msIdent(p)
	}
	return strings.Join(parts, ".")
}

// mapIdent maps a list of column names to their bracket-quoted forms.
func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = msIdent(c)
	}
	return out
}
