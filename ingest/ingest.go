// Package ingest loads parsed demo ticks into a database in one
// all-or-nothing transaction.
//
// The entry point takes loosely typed records: every field is coerced to
// its destination column type, and absent or mistyped fields get documented
// defaults instead of failing the record, so sparse tick data still loads.
// The call commits exactly once; any failure before that leaves the
// database untouched and reports zero rows.
package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mwridgway/StratagemForge/internal/metrics"
	"github.com/mwridgway/StratagemForge/internal/storage"
	_ "github.com/mwridgway/StratagemForge/internal/storage/all" // register storage drivers
	"github.com/mwridgway/StratagemForge/progress"
	"github.com/mwridgway/StratagemForge/ticks"
)

// DefaultChunkSize is rows per progress batch when Options does not say
// otherwise.
const DefaultChunkSize = 10000

// Options tune a bulk insert. The zero value selects the DuckDB driver,
// 10,000-row chunks, and a console progress bar.
type Options struct {
	// Driver selects a registered storage backend ("duckdb", "sqlite",
	// "postgres", "mysql", "mssql"). Empty means "duckdb".
	Driver string
	// ChunkSize is rows per progress/log batch. Chunking has no
	// transactional meaning; the call is one transaction regardless.
	ChunkSize int
	// Progress receives absolute row positions. Nil means a console bar;
	// pass progress.Nop() to silence embedded use.
	Progress progress.Reporter
}

// InsertTicksBulk inserts records into the demo_ticks table of the database
// at dbPath and returns the number of rows committed. demoFilename and
// mapName are stamped onto every row; the records themselves never supply
// them. The count is all-or-nothing: N on success, 0 on any error.
func InsertTicksBulk(ctx context.Context, dbPath string, records []ticks.Record, demoFilename, mapName string) (int64, error) {
	return InsertTicksBulkOptions(ctx, dbPath, records, demoFilename, mapName, Options{})
}

// InsertTicksBulkOptions is InsertTicksBulk with explicit options.
func InsertTicksBulkOptions(ctx context.Context, dbPath string, records []ticks.Record, demoFilename, mapName string, opts Options) (int64, error) {
	driver := opts.Driver
	if driver == "" {
		driver = "duckdb"
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	// Normalize everything up front. A structural error here means no
	// connection is opened and no row is staged.
	start := time.Now()
	rows := make([][]any, len(records))
	onDefault := func(field string) { metrics.RecordDefaulted(demoFilename, field) }
	for i, rec := range records {
		if rec == nil {
			err := fmt.Errorf("record %d: not an object", i)
			metrics.RecordStep(demoFilename, "normalize", err, time.Since(start))
			return 0, err
		}
		rows[i] = ticks.NormalizeObserved(rec, demoFilename, mapName, onDefault).Values()
	}
	metrics.RecordStep(demoFilename, "normalize", nil, time.Since(start))
	metrics.RecordRows(demoFilename, "normalized", int64(len(rows)))

	log.Printf("ingest: inserting %d ticks", len(rows))

	rep := opts.Progress
	if rep == nil {
		rep = progress.NewBar(int64(len(rows)), "Inserting ticks")
	}

	sink, err := storage.New(ctx, storage.Config{
		Driver:  driver,
		DSN:     dbPath,
		Table:   ticks.Table,
		Columns: ticks.Columns,
	})
	if err != nil {
		return 0, err
	}
	defer func() { _ = sink.Close() }()

	start = time.Now()
	total, err := storage.Load(ctx, sink, rows, chunkSize, rep)
	metrics.RecordStep(demoFilename, "load", err, time.Since(start))
	if err != nil {
		return 0, err
	}
	metrics.RecordRows(demoFilename, "inserted", total)
	metrics.RecordBatches(demoFilename, int64((len(rows)+chunkSize-1)/chunkSize))

	rep.Finish("Complete")
	log.Printf("ingest: successfully inserted %d ticks", total)
	return total, nil
}
