// Package mysql implements the tick sink for MySQL and MariaDB. One sink
// session is one transaction: rows staged with InsertRow become visible
// only after Commit.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // register the mysql driver
)

// Config holds the MySQL sink configuration.
type Config struct {
	// DSN is a go-sql-driver DSN, e.g. "user:pass@tcp(host:3306)/db".
	DSN string
	// Table may be database-qualified, e.g. "stats.demo_ticks".
	Table string
	// Columns is the destination column order; InsertRow values follow it.
	Columns []string
}

// Sink writes rows to one MySQL table inside a single transaction. It is
// not safe for concurrent use.
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
		return nil, fmt.Errorf("mysql: dsn is required")
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, fmt.Errorf("mysql: table is required")
	}
	if len(cfg.Columns) == 0 {
		return nil, fmt.Errorf("mysql: columns are required")
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}

	return &Sink{db: db, cfg: cfg}, nil
}

// Begin opens the session transaction and prepares the insert statement.
func (s *Sink) Begin(ctx context.Context) error {
	if s.tx != nil {
		return fmt.Errorf("mysql: begin: transaction already open")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mysql: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL(s.cfg.Table, s.cfg.Columns))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("mysql: prepare insert: %w", err)
	}
	s.tx = tx
	s.stmt = stmt
	return nil
}

// InsertRow stages one row in the open transaction.
func (s *Sink) InsertRow(ctx context.Context, values []any) error {
	if s.tx == nil {
		return fmt.Errorf("mysql: insert: no open transaction")
	}
	if len(values) != len(s.cfg.Columns) {
		return fmt.Errorf("mysql: insert: row length %d != columns length %d", len(values), len(s.cfg.Columns))
	}
	if _, err := s.stmt.ExecContext(ctx, values...); err != nil {
		return fmt.Errorf("mysql: insert: %w", err)
	}
	return nil
}

// Commit makes the session's rows durable and ends the transaction.
func (s *Sink) Commit(ctx context.Context) error {
	if s.tx == nil {
		return fmt.Errorf("mysql: commit: no open transaction")
	}
	_ = s.stmt.Close()
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("mysql: commit: %w", err)
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
		return fmt.Errorf("mysql: close: %w", err)
	}
	return nil
}

// insertSQL builds the positional insert for table.
func insertSQL(table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = myIdent(c)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		myFQN(table),
		strings.Join(quoted, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "),
	)
}

// myIdent quotes a MySQL identifier with backticks, escaping embedded ones.
func myIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

// myFQN quotes a possibly database-qualified name like "stats.demo_ticks".
func myFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = myIdent(p)
	}
	return strings.Join(parts, ".")
}
