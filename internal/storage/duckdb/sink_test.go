package duckdb

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

// newMockSink returns a Sink backed by a sqlmock database so session
// behavior can be asserted without a real DuckDB file.
func newMockSink(tb testing.TB) (*Sink, sqlmock.Sqlmock) {
	tb.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		tb.Fatalf("sqlmock.New: %v", err)
	}
	s := &Sink{
		db: db,
		cfg: Config{
			DSN:     "test.duckdb",
			Table:   "demo_ticks",
			Columns: []string{"tick", "steam_id", "hp"},
		},
	}
	return s, mock
}

func expectInsertPrepare(s *Sink, mock sqlmock.Sqlmock) *sqlmock.ExpectedPrepare {
	return mock.ExpectPrepare(regexp.QuoteMeta(insertSQL(s.cfg.Table, s.cfg.Columns)))
}

// TestInsertSQL pins the statement text built from table and column config.
func TestInsertSQL(t *testing.T) {
	t.Parallel()

	got := insertSQL("demo_ticks", []string{"tick", "steam_id", "hp"})
	want := "INSERT INTO demo_ticks (tick, steam_id, hp) VALUES (?, ?, ?)"
	if got != want {
		t.Fatalf("insertSQL = %q, want %q", got, want)
	}
}

// TestSessionLifecycle walks a full begin/insert/commit session and verifies
// every database interaction happens exactly once and in order.
func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	s, mock := newMockSink(t)
	ctx := context.Background()

	mock.ExpectBegin()
	prep := expectInsertPrepare(s, mock)
	prep.ExpectExec().
		WithArgs(1, int64(76561198012345678), 100).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs(2, int64(76561198012345678), 87).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := s.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := s.InsertRow(ctx, []any{1, int64(76561198012345678), 100}); err != nil {
		t.Fatalf("InsertRow #1: %v", err)
	}
	if err := s.InsertRow(ctx, []any{2, int64(76561198012345678), 87}); err != nil {
		t.Fatalf("InsertRow #2: %v", err)
	}
	if err := s.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// TestBeginTwice ensures a second Begin on an open session is rejected.
func TestBeginTwice(t *testing.T) {
	t.Parallel()

	s, mock := newMockSink(t)
	ctx := context.Background()

	mock.ExpectBegin()
	expectInsertPrepare(s, mock)

	if err := s.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := s.Begin(ctx); err == nil || !strings.Contains(err.Error(), "transaction already open") {
		t.Fatalf("second Begin error = %v, want 'transaction already open'", err)
	}
}

// TestInsertWithoutBegin ensures rows cannot be staged outside a session.
func TestInsertWithoutBegin(t *testing.T) {
	t.Parallel()

	s, _ := newMockSink(t)
	err := s.InsertRow(context.Background(), []any{1, int64(2), 3})
	if err == nil || !strings.Contains(err.Error(), "no open transaction") {
		t.Fatalf("InsertRow error = %v, want 'no open transaction'", err)
	}
}

// TestInsertRowArityMismatch ensures value slices must line up with columns.
func TestInsertRowArityMismatch(t *testing.T) {
	t.Parallel()

	s, mock := newMockSink(t)
	ctx := context.Background()

	mock.ExpectBegin()
	expectInsertPrepare(s, mock)

	if err := s.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	err := s.InsertRow(ctx, []any{1, int64(2)})
	if err == nil || !strings.Contains(err.Error(), "row length 2 != columns length 3") {
		t.Fatalf("InsertRow error = %v, want arity mismatch", err)
	}
}

// TestInsertRowExecError ensures driver errors surface with backend context.
func TestInsertRowExecError(t *testing.T) {
	t.Parallel()

	s, mock := newMockSink(t)
	ctx := context.Background()

	execErr := errors.New("constraint violation")
	mock.ExpectBegin()
	prep := expectInsertPrepare(s, mock)
	prep.ExpectExec().
		WithArgs(1, int64(2), 3).
		WillReturnError(execErr)

	if err := s.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	err := s.InsertRow(ctx, []any{1, int64(2), 3})
	if !errors.Is(err, execErr) {
		t.Fatalf("InsertRow error = %v, want wrapped %v", err, execErr)
	}
	if !strings.Contains(err.Error(), "duckdb: insert:") {
		t.Fatalf("InsertRow error = %q, want duckdb insert prefix", err)
	}
}

// TestCommitWithoutBegin ensures Commit outside a session is rejected.
func TestCommitWithoutBegin(t *testing.T) {
	t.Parallel()

	s, _ := newMockSink(t)
	err := s.Commit(context.Background())
	if err == nil || !strings.Contains(err.Error(), "no open transaction") {
		t.Fatalf("Commit error = %v, want 'no open transaction'", err)
	}
}

// TestCommitError ensures commit failures surface and end the session.
func TestCommitError(t *testing.T) {
	t.Parallel()

	s, mock := newMockSink(t)
	ctx := context.Background()

	commitErr := errors.New("disk full")
	mock.ExpectBegin()
	expectInsertPrepare(s, mock)
	mock.ExpectCommit().WillReturnError(commitErr)
	mock.ExpectClose()

	if err := s.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := s.Commit(ctx); !errors.Is(err, commitErr) {
		t.Fatalf("Commit error = %v, want wrapped %v", err, commitErr)
	}

	// The session is over; Close must not attempt another rollback.
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// TestCloseRollsBackOpenTransaction ensures an abandoned session discards
// its staged rows via rollback.
func TestCloseRollsBackOpenTransaction(t *testing.T) {
	t.Parallel()

	s, mock := newMockSink(t)
	ctx := context.Background()

	mock.ExpectBegin()
	prep := expectInsertPrepare(s, mock)
	prep.ExpectExec().
		WithArgs(1, int64(2), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()
	mock.ExpectClose()

	if err := s.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := s.InsertRow(ctx, []any{1, int64(2), 3}); err != nil {
		t.Fatalf("InsertRow: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// TestNewSinkValidation checks config validation before any DB is opened.
func TestNewSinkValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "empty DSN",
			cfg:  Config{Table: "demo_ticks", Columns: []string{"tick"}},
			want: "DSN must not be empty",
		},
		{
			name: "whitespace DSN",
			cfg:  Config{DSN: "   ", Table: "demo_ticks", Columns: []string{"tick"}},
			want: "DSN must not be empty",
		},
		{
			name: "empty table",
			cfg:  Config{DSN: "sf.duckdb", Columns: []string{"tick"}},
			want: "table must not be empty",
		},
		{
			name: "empty columns",
			cfg:  Config{DSN: "sf.duckdb", Table: "demo_ticks"},
			want: "columns must not be empty",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewSink(context.Background(), tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("NewSink error = %v, want %q", err, tt.want)
			}
		})
	}
}
