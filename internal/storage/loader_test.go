package storage

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

// scriptSink records the session calls made by the loader and can be
// programmed to fail at specific points.
type scriptSink struct {
	beginErr  error
	commitErr error
	failAtRow int // 1-based row index that InsertRow rejects; 0 disables

	begun     int
	committed int
	rows      [][]any
}

func (s *scriptSink) Begin(ctx context.Context) error {
	s.begun++
	return s.beginErr
}

func (s *scriptSink) InsertRow(ctx context.Context, values []any) error {
	if s.failAtRow > 0 && len(s.rows)+1 == s.failAtRow {
		return errors.New("insert rejected")
	}
	s.rows = append(s.rows, values)
	return nil
}

func (s *scriptSink) Commit(ctx context.Context) error {
	s.committed++
	return s.commitErr
}

func (s *scriptSink) Close() error { return nil }

// recordingReporter captures progress callbacks for assertions.
type recordingReporter struct {
	positions []int64
	finished  string
}

func (r *recordingReporter) Advance(n int64)   { r.positions = append(r.positions, n) }
func (r *recordingReporter) Finish(msg string) { r.finished = msg }

func makeRows(n int) [][]any {
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{i, fmt.Sprintf("row-%d", i)}
	}
	return rows
}

// TestLoad_Basic verifies that all rows are staged in order inside a single
// begin/commit pair and that the total equals the input row count.
func TestLoad_Basic(t *testing.T) {
	t.Parallel()

	sink := &scriptSink{}
	rep := &recordingReporter{}
	rows := makeRows(7)

	total, err := Load(context.Background(), sink, rows, 3, rep)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if total != 7 {
		t.Fatalf("total rows %d, want 7", total)
	}
	if sink.begun != 1 || sink.committed != 1 {
		t.Fatalf("begin/commit = %d/%d, want 1/1", sink.begun, sink.committed)
	}
	if !reflect.DeepEqual(sink.rows, rows) {
		t.Fatalf("staged rows differ from input rows")
	}

	// Progress positions must be absolute and monotonically increasing up to
	// the total.
	if len(rep.positions) != 7 {
		t.Fatalf("progress callbacks %d, want 7", len(rep.positions))
	}
	for i, p := range rep.positions {
		if p != int64(i+1) {
			t.Fatalf("progress position[%d] = %d, want %d", i, p, i+1)
		}
	}
}

// TestLoad_ChunkSizeTransparency verifies that the chunk size changes only
// pacing, never the outcome: any chunk size yields the same staged rows and
// exactly one transaction.
func TestLoad_ChunkSizeTransparency(t *testing.T) {
	t.Parallel()

	rows := makeRows(10)

	for _, chunkSize := range []int{1, 3, 10, 10000} {
		sink := &scriptSink{}
		total, err := Load(context.Background(), sink, rows, chunkSize, nil)
		if err != nil {
			t.Fatalf("chunkSize=%d: Load error: %v", chunkSize, err)
		}
		if total != 10 {
			t.Fatalf("chunkSize=%d: total rows %d, want 10", chunkSize, total)
		}
		if sink.begun != 1 || sink.committed != 1 {
			t.Fatalf("chunkSize=%d: begin/commit = %d/%d, want 1/1", chunkSize, sink.begun, sink.committed)
		}
		if !reflect.DeepEqual(sink.rows, rows) {
			t.Fatalf("chunkSize=%d: staged rows differ from input rows", chunkSize)
		}
	}
}

// TestLoad_InsertError ensures a mid-stream insert failure reports zero
// committed rows and never commits the transaction.
func TestLoad_InsertError(t *testing.T) {
	t.Parallel()

	sink := &scriptSink{failAtRow: 4}
	rows := makeRows(6)

	total, err := Load(context.Background(), sink, rows, 2, nil)
	if err == nil {
		t.Fatalf("expected error from rejected row")
	}
	if !strings.Contains(err.Error(), "insert row 4") {
		t.Fatalf("error = %q, want mention of row 4", err)
	}
	if total != 0 {
		t.Fatalf("total rows %d, want 0 after failed insert", total)
	}
	if sink.committed != 0 {
		t.Fatalf("commit called %d times after failed insert, want 0", sink.committed)
	}
}

// TestLoad_CommitError ensures a commit failure reports zero committed rows.
func TestLoad_CommitError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("commit failed")
	sink := &scriptSink{commitErr: wantErr}

	total, err := Load(context.Background(), sink, makeRows(3), 10, nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("want error %v, got %v", wantErr, err)
	}
	if total != 0 {
		t.Fatalf("total rows %d, want 0 after failed commit", total)
	}
}

// TestLoad_BeginError ensures a begin failure stops the load before any row
// is staged.
func TestLoad_BeginError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("begin failed")
	sink := &scriptSink{beginErr: wantErr}

	total, err := Load(context.Background(), sink, makeRows(3), 10, nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("want error %v, got %v", wantErr, err)
	}
	if total != 0 {
		t.Fatalf("total rows %d, want 0 after failed begin", total)
	}
	if len(sink.rows) != 0 {
		t.Fatalf("rows staged after failed begin: %d", len(sink.rows))
	}
}

// TestLoad_EmptyRows verifies that an empty input still runs a full
// begin/commit cycle and reports zero rows.
func TestLoad_EmptyRows(t *testing.T) {
	t.Parallel()

	sink := &scriptSink{}
	total, err := Load(context.Background(), sink, nil, 10, nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if total != 0 {
		t.Fatalf("total rows %d, want 0", total)
	}
	if sink.begun != 1 || sink.committed != 1 {
		t.Fatalf("begin/commit = %d/%d, want 1/1", sink.begun, sink.committed)
	}
}

// TestLoad_InvalidChunkSize checks the chunk size guard.
func TestLoad_InvalidChunkSize(t *testing.T) {
	t.Parallel()

	sink := &scriptSink{}
	_, err := Load(context.Background(), sink, makeRows(1), 0, nil)
	if err == nil {
		t.Fatalf("expected error for chunkSize=0")
	}
	if sink.begun != 0 {
		t.Fatalf("begin called despite invalid chunk size")
	}
}

// TestLoad_ContextCancel checks the loader exits without committing when the
// context is canceled.
func TestLoad_ContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &scriptSink{}
	total, err := Load(ctx, sink, makeRows(5), 2, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if total != 0 {
		t.Fatalf("total rows %d, want 0 after cancellation", total)
	}
	if sink.committed != 0 {
		t.Fatalf("commit called %d times after cancellation, want 0", sink.committed)
	}
}
