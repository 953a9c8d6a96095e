package schema

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/mwridgway/StratagemForge/ticks"
)

func newTestDB(tb testing.TB) *sql.DB {
	tb.Helper()
	db, err := sql.Open("sqlite", filepath.Join(tb.TempDir(), "schema.db"))
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })
	return db
}

// testMigrations is a SQLite-compatible stand-in for the DuckDB production
// set, so the versioning machinery can run against a real database.
var testMigrations = []Migration{
	{
		Version:     1,
		Description: "create ticks table",
		SQL: `
CREATE TABLE lite_ticks (tick INTEGER, steam_id INTEGER);
CREATE INDEX idx_lite_ticks_tick ON lite_ticks(tick);
`,
	},
	{
		Version:     2,
		Description: "create demos table",
		SQL:         `CREATE TABLE lite_demos (filename TEXT UNIQUE NOT NULL);`,
	},
}

func tableExists(tb testing.TB, db *sql.DB, name string) bool {
	tb.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		tb.Fatalf("sqlite_master: %v", err)
	}
	return n > 0
}

// TestApplyFreshDatabase verifies all pending migrations run and are
// recorded with version, description, and checksum.
func TestApplyFreshDatabase(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	n, err := apply(ctx, db, testMigrations)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if n != 2 {
		t.Fatalf("applied = %d, want 2", n)
	}

	v, err := Version(ctx, db)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v != 2 {
		t.Fatalf("version = %d, want 2", v)
	}

	if !tableExists(t, db, "lite_ticks") || !tableExists(t, db, "lite_demos") {
		t.Fatalf("migrated tables missing")
	}

	var desc, sum string
	err = db.QueryRow(`SELECT description, checksum FROM schema_migrations WHERE version = 1`).Scan(&desc, &sum)
	if err != nil {
		t.Fatalf("read migration record: %v", err)
	}
	if desc != "create ticks table" {
		t.Fatalf("description = %q", desc)
	}
	if want := checksum(testMigrations[0].SQL); sum != want {
		t.Fatalf("checksum = %q, want %q", sum, want)
	}
}

// TestApplyIdempotent verifies a second run applies nothing.
func TestApplyIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	if _, err := apply(ctx, db, testMigrations); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	n, err := apply(ctx, db, testMigrations)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if n != 0 {
		t.Fatalf("second apply applied %d migrations, want 0", n)
	}
}

// TestApplyPartialUpgrade verifies only versions beyond the current one run.
func TestApplyPartialUpgrade(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	if _, err := apply(ctx, db, testMigrations[:1]); err != nil {
		t.Fatalf("apply v1: %v", err)
	}
	n, err := apply(ctx, db, testMigrations)
	if err != nil {
		t.Fatalf("apply rest: %v", err)
	}
	if n != 1 {
		t.Fatalf("applied = %d, want 1", n)
	}
	v, err := Version(ctx, db)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v != 2 {
		t.Fatalf("version = %d, want 2", v)
	}
}

// TestApplyFailureRollsBack verifies a broken migration leaves neither its
// tables nor its version record behind.
func TestApplyFailureRollsBack(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	bad := append(append([]Migration{}, testMigrations...), Migration{
		Version:     3,
		Description: "broken",
		SQL: `
CREATE TABLE lite_half (id INTEGER);
CREATE TABLE syntax error here;
`,
	})

	n, err := apply(ctx, db, bad)
	if err == nil {
		t.Fatalf("apply succeeded, want failure on migration 3")
	}
	if !strings.Contains(err.Error(), "exec migration 3") {
		t.Fatalf("error = %q, want mention of migration 3", err)
	}
	if n != 2 {
		t.Fatalf("applied = %d, want 2 before the failure", n)
	}

	v, err := Version(ctx, db)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v != 2 {
		t.Fatalf("version = %d, want 2 after rollback", v)
	}
	if tableExists(t, db, "lite_half") {
		t.Fatalf("partial migration table survived rollback")
	}
}

// TestMigrationsWellFormed checks ordering and that the production DDL
// defines every destination column the loader writes.
func TestMigrationsWellFormed(t *testing.T) {
	t.Parallel()

	ms := Migrations()
	if len(ms) == 0 {
		t.Fatalf("no migrations defined")
	}
	for i, m := range ms {
		if m.Version != i+1 {
			t.Fatalf("migration %d has version %d, want %d", i, m.Version, i+1)
		}
		if strings.TrimSpace(m.SQL) == "" {
			t.Fatalf("migration %d has empty SQL", m.Version)
		}
		if m.Description == "" {
			t.Fatalf("migration %d has empty description", m.Version)
		}
	}

	for _, col := range ticks.Columns {
		if !strings.Contains(createDemoTicks, col) {
			t.Fatalf("demo_ticks DDL missing column %q", col)
		}
	}
}

// TestChecksum pins the fingerprint format.
func TestChecksum(t *testing.T) {
	t.Parallel()

	a := checksum("CREATE TABLE a (id INTEGER)")
	b := checksum("CREATE TABLE b (id INTEGER)")
	if len(a) != 16 {
		t.Fatalf("checksum length = %d, want 16", len(a))
	}
	if a == b {
		t.Fatalf("distinct SQL produced identical checksums")
	}
	if a != checksum("CREATE TABLE a (id INTEGER)") {
		t.Fatalf("checksum not stable")
	}
}
