// Package duckdb wires the DuckDB backend into the storage factory. It
// exposes a storage.Sink implementation without forcing callers to import
// this package directly; registration happens in init.
package duckdb

import (
	"context"

	"github.com/mwridgway/StratagemForge/internal/storage"
)

// newSink is a test hook that points to NewSink by default. Tests may
// replace this variable to avoid real DB connections.
var newSink = NewSink

// Ensure Sink satisfies the interface at compile time.
var _ storage.Sink = (*Sink)(nil)

func init() {
	storage.Register("duckdb", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		s, err := newSink(ctx, Config{
			DSN:     cfg.DSN,
			Table:   cfg.Table,
			Columns: cfg.Columns,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
