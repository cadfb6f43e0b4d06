package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Konsultn-Engineering/tagsql/connector"
	"github.com/Konsultn-Engineering/tagsql/database"
	"github.com/Konsultn-Engineering/tagsql/query"
)

// call is one statement seen by recordingDB.
type call struct {
	op   string
	sql  string
	args []any
}

// recordingDB records every statement and answers with canned rows.
type recordingDB struct {
	mu       sync.Mutex
	calls    []call
	columns  []string
	rows     [][]any
	err      error
	affected int64
	closed   bool
}

func (r *recordingDB) record(op, sql string, args []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{op: op, sql: sql, args: append([]any(nil), args...)})
}

func (r *recordingDB) last() call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

func (r *recordingDB) Query(_ context.Context, sql string, args ...any) (database.Rows, error) {
	r.record("query", sql, args)
	if r.err != nil {
		return nil, r.err
	}
	return &fakeRows{columns: r.columns, rows: r.rows, pos: -1}, nil
}

func (r *recordingDB) Exec(_ context.Context, sql string, args ...any) (database.Result, error) {
	r.record("exec", sql, args)
	if r.err != nil {
		return nil, r.err
	}
	return fakeResult(r.affected), nil
}

func (r *recordingDB) Prepare(_ context.Context, sql string) (database.Stmt, error) {
	r.record("prepare", sql, nil)
	if r.err != nil {
		return nil, r.err
	}
	return &fakeStmt{db: r, sql: sql}, nil
}

func (r *recordingDB) Ping(context.Context) error { return r.err }
func (r *recordingDB) Stats() database.Stats      { return database.Stats{} }

func (r *recordingDB) Close() error {
	r.closed = true
	return nil
}

type fakeStmt struct {
	db     *recordingDB
	sql    string
	closed int
}

func (s *fakeStmt) Query(_ context.Context, args ...any) (database.Rows, error) {
	s.db.record("stmt", s.sql, args)
	return &fakeRows{columns: s.db.columns, rows: s.db.rows, pos: -1}, nil
}

func (s *fakeStmt) Close() error {
	s.closed++
	return nil
}

type fakeRows struct {
	columns []string
	rows    [][]any
	pos     int
	err     error
}

func (f *fakeRows) Next() bool {
	f.pos++
	return f.pos < len(f.rows)
}

func (f *fakeRows) Columns() ([]string, error) { return f.columns, nil }
func (f *fakeRows) Values() ([]any, error)     { return f.rows[f.pos], nil }
func (f *fakeRows) Err() error                 { return f.err }
func (f *fakeRows) Close() error               { return nil }

type fakeResult int64

func (f fakeResult) RowsAffected() (int64, error) { return int64(f), nil }

var errBoom = errors.New("boom")

// newSQLiteEngine opens a fresh file database through the connector with the
// alunos table in place.
func newSQLiteEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()

	conn, err := connector.Open(context.Background(), connector.Config{
		Driver: "sqlite3",
		Path:   filepath.Join(t.TempDir(), "engine.db"),
	})
	require.NoError(t, err)

	e := New(conn.Database(), conn.Dialect(), opts...)
	t.Cleanup(func() { _ = e.Close() })

	_, err = e.Exec(context.Background(), query.Text(`CREATE TABLE alunos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		nome TEXT NOT NULL,
		idade INTEGER NOT NULL,
		email TEXT UNIQUE
	)`))
	require.NoError(t, err)
	return e
}
