// Package sqlite implements a SQLite-backed storage.Sink.
package sqlite

// Config holds SQLite sink configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:ticks.db?cache=shared&_fk=1"
	//   "ticks.db" (interpreted by the driver)
	DSN string

	// Table is the target table name for inserts, e.g. "demo_ticks".
	// SQLite does not use schemas in the same way as Postgres; FQN values
	// such as "main.demo_ticks" are still accepted and passed through.
	Table string

	// Columns is the ordered list of destination columns.
	Columns []string
}
