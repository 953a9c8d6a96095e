package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	// register database/sql drivers so -driver selects a backend by name.
	_ "github.com/mwridgway/StratagemForge/internal/storage/all"
)

// main summarizes what a tick database holds: table sizes, a per-demo
// breakdown, roster size, and weapon usage. Read-only; useful after a load
// to eyeball that the numbers line up.
func main() {
	var (
		dbPath string
		driver string
		topN   int
	)

	flag.StringVar(&dbPath, "db", "sf.duckdb", "database path or DSN")
	flag.StringVar(&driver, "driver", "duckdb", "storage driver (duckdb, sqlite, postgres, mysql, mssql)")
	flag.IntVar(&topN, "top", 5, "number of weapons to list by usage")
	flag.Parse()

	ctx := context.Background()

	db, err := sql.Open(sqlDriverName(driver), dbPath)
	if err != nil {
		fatalf("open %s: %v", dbPath, err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		fatalf("ping %s: %v", dbPath, err)
	}

	fmt.Println("== tables ==")
	for _, table := range []string{"demo_metadata", "players", "demo_ticks"} {
		var n int64
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			fmt.Printf("  %-16s unavailable: %v\n", table, err)
			continue
		}
		fmt.Printf("  %-16s %d rows\n", table, n)
	}

	fmt.Println("\n== demos ==")
	if err := printDemos(ctx, db); err != nil {
		fmt.Printf("  %v\n", err)
	}

	fmt.Println("\n== roster ==")
	if err := printRoster(ctx, db); err != nil {
		fmt.Printf("  %v\n", err)
	}

	fmt.Printf("\n== top %d weapons ==\n", topN)
	if err := printWeapons(ctx, db, topN); err != nil {
		fmt.Printf("  %v\n", err)
	}
}

func printDemos(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `SELECT demo_filename, map_name, COUNT(*), MIN(tick), MAX(tick)
FROM demo_ticks GROUP BY demo_filename, map_name ORDER BY COUNT(*) DESC`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			demo, mapName string
			n, lo, hi     int64
		)
		if err := rows.Scan(&demo, &mapName, &n, &lo, &hi); err != nil {
			return err
		}
		fmt.Printf("  %s map=%s rows=%d ticks=%d..%d\n", demo, mapName, n, lo, hi)
	}
	return rows.Err()
}

func printRoster(ctx context.Context, db *sql.DB) error {
	var distinct int64
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT steam_id) FROM demo_ticks WHERE steam_id <> 0").Scan(&distinct); err != nil {
		return err
	}
	fmt.Printf("  distinct players in ticks: %d\n", distinct)

	var known int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM players").Scan(&known); err == nil {
		fmt.Printf("  players in catalog:        %d\n", known)
	}
	return nil
}

func printWeapons(ctx context.Context, db *sql.DB, topN int) error {
	rows, err := db.QueryContext(ctx, `SELECT active_weapon, COUNT(*)
FROM demo_ticks WHERE active_weapon <> '' GROUP BY active_weapon ORDER BY COUNT(*) DESC`)
	if err != nil {
		return err
	}
	defer rows.Close()

	// Scan only the leading rows; LIMIT syntax differs across backends.
	for i := 0; i < topN && rows.Next(); i++ {
		var (
			weapon string
			n      int64
		)
		if err := rows.Scan(&weapon, &n); err != nil {
			return err
		}
		fmt.Printf("  %-20s %d\n", weapon, n)
	}
	return rows.Err()
}

// sqlDriverName maps a storage driver to its database/sql driver name.
func sqlDriverName(driver string) string {
	switch driver {
	case "postgres":
		return "pgx"
	case "mssql":
		return "sqlserver"
	}
	return driver
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
