package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Factory is a backend-specific constructor that opens a Sink for the given
// configuration. Backends (duckdb, sqlite, postgres, mysql, mssql) register
// their implementation for a driver name at init time.
type Factory func(ctx context.Context, cfg Config) (Sink, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) a Factory for the given driver name. It
// is typically called from backend packages' init() functions.
func Register(driver string, fn Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[driver] = fn
}

// New locates the Factory for cfg.Driver and invokes it. Callers do not
// need to know which backend they are using; they simply pass the config.
//
// If no factory has been registered for the driver, an error is returned.
func New(ctx context.Context, cfg Config) (Sink, error) {
	regMu.RLock()
	fn, ok := factories[cfg.Driver]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.driver=%s", cfg.Driver)
	}
	return fn(ctx, cfg)
}

// ListDrivers returns a sorted snapshot of the registered driver names.
func ListDrivers() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
