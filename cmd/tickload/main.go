package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mwridgway/StratagemForge/ingest"
	"github.com/mwridgway/StratagemForge/internal/catalog"
	"github.com/mwridgway/StratagemForge/internal/export"
	"github.com/mwridgway/StratagemForge/internal/metrics"
	"github.com/mwridgway/StratagemForge/internal/metrics/datadog"
	"github.com/mwridgway/StratagemForge/internal/metrics/prompush"
	"github.com/mwridgway/StratagemForge/internal/schema"
	"github.com/mwridgway/StratagemForge/progress"
	"github.com/mwridgway/StratagemForge/ticks"

	// register database/sql drivers for the schema and catalog connections.
	_ "github.com/mwridgway/StratagemForge/internal/storage/all"
)

// main is the entry point for the tickload binary. It reads one demo parser
// export, optionally initializes metrics and the schema, bulk-loads the
// ticks in a single transaction, and records the demo in the catalog.
func main() {
	var (
		exportDir         string
		demoBase          string
		dbPath            string
		driver            string
		chunkSize         int
		initSchema        bool
		metricsBackendFlg string
		pushGatewayURLFlg string
		dogstatsdAddrFlg  string
		noProgress        bool
	)

	flag.StringVar(&exportDir, "export-dir", "go_parser_output", "demo parser export directory")
	flag.StringVar(&demoBase, "demo", "", "demo base name (the X of X_metadata.json); discovered when the directory holds one export")
	flag.StringVar(&dbPath, "db", "sf.duckdb", "database path or DSN")
	flag.StringVar(&driver, "driver", "duckdb", "storage driver (duckdb, sqlite, postgres, mysql, mssql)")
	flag.IntVar(&chunkSize, "chunk-size", ingest.DefaultChunkSize, "rows per progress batch; chunking has no transactional meaning")
	flag.BoolVar(&initSchema, "init-schema", false, "apply schema migrations before loading (duckdb only)")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend to use (pushgateway, datadog, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&dogstatsdAddrFlg, "dogstatsd-addr", "", "DogStatsD address (overrides env DOGSTATSD_ADDR)")
	flag.BoolVar(&noProgress, "no-progress", false, "disable the console progress bar")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	ctx := context.Background()

	base := demoBase
	if base == "" {
		var err error
		base, err = export.DiscoverBase(exportDir)
		if err != nil {
			fatalf("%v", err)
		}
	}

	meta, err := export.ReadMetadata(export.MetadataPath(exportDir, base))
	if err != nil {
		fatalf("%v", err)
	}
	demoFilename := meta.Filename
	if demoFilename == "" {
		demoFilename = base + ".dem"
	}

	records, err := export.ReadTicks(ctx, exportDir, base)
	if err != nil {
		fatalf("%v", err)
	}
	if *verbose {
		log.Printf("export: demo=%s map=%s records=%d", demoFilename, meta.MapName, len(records))
	}

	// Decide metrics backend: flag → env → default.
	backendName := metricsBackendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "pushgateway":
		// Decide Pushgateway URL: flag → env → default.
		gwURL := pushGatewayURLFlg
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}

		b, err := prompush.NewBackend(base, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
		} else {
			log.Printf("metrics: url=%v backend=%v job_name=%v", gwURL, backendName, base)
			metrics.SetBackend(b)
			defer flushMetrics()
		}

	case "datadog":
		// Decide DogStatsD address: flag → env → default.
		addr := dogstatsdAddrFlg
		if addr == "" {
			addr = os.Getenv("DOGSTATSD_ADDR")
		}
		if addr == "" {
			addr = "127.0.0.1:8125"
		}

		b, err := datadog.NewBackend(datadog.Config{
			Addr:       addr,
			Namespace:  "tickload.",
			GlobalTags: []string{"service:tickload"},
		})
		if err != nil {
			log.Printf("metrics: failed to init dogstatsd backend: %v; using nop", err)
		} else {
			log.Printf("metrics: addr=%v backend=%v", addr, backendName)
			metrics.SetBackend(b)
			defer flushMetrics()
		}

	case "", "none":
		// metrics disabled; nop backend remains
		if *verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	if initSchema {
		if driver != "duckdb" {
			log.Printf("schema: migrations are duckdb dialect; skipping for driver %s", driver)
		} else {
			db, err := sql.Open("duckdb", dbPath)
			if err != nil {
				fatalf("open %s: %v", dbPath, err)
			}
			n, err := schema.Apply(ctx, db)
			_ = db.Close()
			if err != nil {
				fatalf("apply schema: %v", err)
			}
			log.Printf("schema: %d migrations applied", n)
		}
	}

	var rep progress.Reporter
	if noProgress {
		rep = progress.Nop()
	}

	start := time.Now()
	total, err := ingest.InsertTicksBulkOptions(ctx, dbPath, records, demoFilename, meta.MapName, ingest.Options{
		Driver:    driver,
		ChunkSize: chunkSize,
		Progress:  rep,
	})
	if err != nil {
		log.Fatalf("%v", err)
	}
	elapsed := time.Since(start)

	db, err := sql.Open(sqlDriverName(driver), dbPath)
	if err != nil {
		log.Printf("catalog: open %s: %v", dbPath, err)
	} else {
		recordCatalog(ctx, db, demoFilename, meta, records)
		_ = db.Close()
	}

	rps := float64(0)
	if elapsed > 0 {
		rps = float64(total) / elapsed.Seconds()
	}
	log.Printf("summary: demo=%s map=%s rows=%d elapsed=%s rps=%.0f",
		demoFilename, meta.MapName, total, elapsed.Truncate(time.Millisecond), rps)
}

// recordCatalog stores demo provenance and the player roster. The tick load
// has already committed; catalog failures are logged, not fatal, since the
// catalog tables only exist after -init-schema.
func recordCatalog(ctx context.Context, db *sql.DB, demoFilename string, meta export.Metadata, records []ticks.Record) {
	d := catalog.Demo{
		Filename:        demoFilename,
		FilePath:        meta.FilePath,
		MapName:         meta.MapName,
		TotalRounds:     meta.TotalRounds,
		TotalTicks:      int64(meta.TotalTicks),
		Team1Score:      meta.Team1Score,
		Team2Score:      meta.Team2Score,
		DurationSeconds: meta.DurationSeconds,
	}
	if hash, size, err := catalog.FileHash(meta.FilePath); err == nil {
		d.FileHash = hash
		d.FileSizeBytes = size
	}

	if err := catalog.RecordDemo(ctx, db, d); err != nil {
		log.Printf("catalog: %v (run with -init-schema to create catalog tables)", err)
		return
	}
	roster := catalog.RosterFromRecords(records)
	if err := catalog.UpsertPlayers(ctx, db, roster); err != nil {
		log.Printf("catalog: %v", err)
		return
	}
	log.Printf("catalog: demo=%s players=%d recorded", demoFilename, len(roster))
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

func flushMetrics() {
	if err := metrics.Flush(); err != nil {
		log.Printf("metrics: flush error: %v", err)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
