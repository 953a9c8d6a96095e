package mssql

import (
	"context"

	"github.com/mwridgway/StratagemForge/internal/storage"
)

// newSink is a test hook that points to NewSink by default. Tests may
// replace this variable to avoid real DB connections.
var newSink = NewSink

var _ storage.Sink = (*Sink)(nil)

// init registers the "mssql" driver with the storage factory.
func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		return newSink(ctx, Config{
			DSN:     cfg.DSN,
			Table:   cfg.Table,
			Columns: cfg.Columns,
		})
	})
}
