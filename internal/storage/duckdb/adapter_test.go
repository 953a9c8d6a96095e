package duckdb

import (
	"context"
	"testing"

	"github.com/mwridgway/StratagemForge/internal/storage"
)

// TestDuckDBStorageRegistrationUsesNewSinkHook verifies that the "duckdb"
// storage backend registered in init() uses the newSink hook and passes the
// configuration through unchanged.
func TestDuckDBStorageRegistrationUsesNewSinkHook(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	origNewSink := newSink
	defer func() { newSink = origNewSink }()

	var (
		called bool
		gotCfg Config

		fake = &Sink{}
	)

	newSink = func(ctx context.Context, cfg Config) (*Sink, error) {
		called = true
		gotCfg = cfg
		return fake, nil
	}

	cfg := storage.Config{
		Driver:  "duckdb",
		DSN:     "sf.duckdb",
		Table:   "demo_ticks",
		Columns: []string{"tick", "steam_id"},
	}

	sink, err := storage.New(ctx, cfg)
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}

	if !called {
		t.Fatalf("newSink hook was not called")
	}
	if gotCfg.DSN != cfg.DSN {
		t.Errorf("hook cfg.DSN = %q, want %q", gotCfg.DSN, cfg.DSN)
	}
	if gotCfg.Table != cfg.Table {
		t.Errorf("hook cfg.Table = %q, want %q", gotCfg.Table, cfg.Table)
	}
	if len(gotCfg.Columns) != len(cfg.Columns) {
		t.Errorf("hook cfg.Columns length = %d, want %d", len(gotCfg.Columns), len(cfg.Columns))
	}

	got, ok := sink.(*Sink)
	if !ok {
		t.Fatalf("storage.New() type = %T, want *Sink", sink)
	}
	if got != fake {
		t.Fatalf("storage.New() sink = %p, want %p", got, fake)
	}
}
