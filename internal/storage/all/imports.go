// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) causes the init functions of each concrete storage backend to run,
// which in turn register their sink factories with the storage package.
//
// In other words, importing this package makes the following storage drivers
// available at runtime:
//
//   - "duckdb"   (internal/storage/duckdb)
//   - "sqlite"   (internal/storage/sqlite)
//   - "postgres" (internal/storage/postgres)
//   - "mysql"    (internal/storage/mysql)
//   - "mssql"    (internal/storage/mssql)
//
// Typical usage (in cmd/tickload/main.go or a similar wiring layer):
//
//	package main
//
//	import (
//	    "context"
//
//	    _ "github.com/mwridgway/StratagemForge/internal/storage/all" // enable all built-in backends
//
//	    "github.com/mwridgway/StratagemForge/internal/storage"
//	    "github.com/mwridgway/StratagemForge/ticks"
//	    // ... other imports ...
//	)
//
//	func main() {
//	    ctx := context.Background()
//
//	    sink, err := storage.New(ctx, storage.Config{
//	        Driver:  "duckdb",
//	        DSN:     "sf.duckdb",
//	        Table:   ticks.Table,
//	        Columns: ticks.Columns,
//	    })
//	    if err != nil {
//	        // handle error
//	    }
//	    defer sink.Close()
//
//	    // From this point on, the caller can remain fully backend-agnostic.
//	    // Loads go through the storage.Sink interface, regardless of which
//	    // backend the driver name selected.
//	}
//
// This pattern keeps backend-specific wiring in a single, small package and
// allows the rest of the application (ingest pipeline, CLI) to depend only on
// the storage abstraction rather than individual backends.
//
// Note: if you want a binary that supports only a subset of backends, you can
// define alternative wiring packages (e.g., storage/duckdbonly) that import
// only the required backends instead of this package.
package all

import (
	_ "github.com/mwridgway/StratagemForge/internal/storage/duckdb"
	_ "github.com/mwridgway/StratagemForge/internal/storage/mssql"
	_ "github.com/mwridgway/StratagemForge/internal/storage/mysql"
	_ "github.com/mwridgway/StratagemForge/internal/storage/postgres"
	_ "github.com/mwridgway/StratagemForge/internal/storage/sqlite"
)
