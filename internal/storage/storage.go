// Package storage contains storage-agnostic contracts and utilities for
// persisting demo ticks. Concrete backends (DuckDB, SQLite, Postgres,
// MySQL, SQL Server) live in subpackages and register themselves with the
// factory in init; importing the storage/all package links every backend
// into a binary.
package storage

import "context"

// Sink is a destination table for tick rows. A Sink session spans exactly
// one database transaction: Begin opens it and prepares the insert
// statement, InsertRow stages one row inside it, Commit makes all staged
// rows durable at once. Close releases the connection and rolls back any
// transaction that was never committed, so abandoning a session after an
// error leaves the destination untouched.
//
// Implementations are not safe for concurrent use; the loader drives a
// session from a single goroutine.
type Sink interface {
	Begin(ctx context.Context) error
	InsertRow(ctx context.Context, values []any) error
	Commit(ctx context.Context) error
	Close() error
}

// Config holds everything a backend needs to open a Sink.
type Config struct {
	// Driver selects a registered backend, e.g. "duckdb" or "sqlite"; see
	// the all package for the built-in set.
	Driver string

	// DSN is the backend connection string or database file path.
	DSN string

	// Table is the destination table name, e.g. "demo_ticks".
	Table string

	// Columns is the ordered list of destination columns. Values passed to
	// InsertRow must align with this order.
	Columns []string
}
