// This file implements the batched tick loader. It walks materialized rows
// in insertion order, stages them on a Sink in chunks, and commits once at
// the end, so a failure anywhere leaves zero rows behind.
//
// Chunking only paces progress reporting and log output; it carries no
// transactional meaning. Every row of a call lands in the same transaction.
//
// Logging: after each chunk, a concise progress line is emitted with running
// totals and instantaneous rows/sec since the previous chunk.
package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/samber/lo"

	"github.com/mwridgway/StratagemForge/progress"
)

// Load stages all rows on the sink inside a single transaction and commits.
// It returns the number of rows committed: len(rows) on success, 0 on any
// error, since the transaction never commits. The caller remains responsible
// for closing the sink; Close after a failed Load rolls the transaction back.
//
// rep receives the absolute number of rows staged so far; pass nil to
// disable reporting.
func Load(ctx context.Context, sink Sink, rows [][]any, chunkSize int, rep progress.Reporter) (int64, error) {
	if chunkSize <= 0 {
		return 0, fmt.Errorf("chunkSize must be > 0")
	}
	if sink == nil {
		return 0, fmt.Errorf("sink must not be nil")
	}
	if rep == nil {
		rep = progress.Nop()
	}

	if err := sink.Begin(ctx); err != nil {
		return 0, err
	}
	log.Printf("loader: started with rows=%d chunk_size=%d", len(rows), chunkSize)

	var (
		inserted    int64
		batches     int64
		start       = time.Now()
		lastFlushTS = start
		lastTotal   int64
	)

	for _, chunk := range lo.Chunk(rows, chunkSize) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		for _, row := range chunk {
			if err := sink.InsertRow(ctx, row); err != nil {
				log.Printf("loader: insert failed at row=%d err=%v", inserted+1, err)

				return 0, fmt.Errorf("insert row %d: %w", inserted+1, err)
			}
			inserted++
			rep.Advance(inserted)
		}

		// Progress log per staged chunk.
		batches++
		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		insertedSinceLast := inserted - lastTotal
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(insertedSinceLast) / sinceLast.Seconds()
		}
		log.Printf(
			"batch #%d: rps=%.0f inserted=%d total_inserted=%d elapsed=%s since_last=%s",
			batches,
			rps,
			insertedSinceLast,
			inserted,
			now.Sub(start).Truncate(time.Millisecond),
			sinceLast.Truncate(time.Millisecond),
		)
		lastFlushTS = now
		lastTotal = inserted
	}

	if err := sink.Commit(ctx); err != nil {
		log.Printf("loader: commit failed staged=%d err=%v", inserted, err)

		return 0, err
	}
	log.Printf("loader: committed total_inserted=%d batches=%d elapsed=%s",
		inserted, batches, time.Since(start).Truncate(time.Millisecond))

	return inserted, nil
}
