package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Konsultn-Engineering/tagsql/database"
	"github.com/Konsultn-Engineering/tagsql/query"
	"github.com/Konsultn-Engineering/tagsql/schema"
)

// Statement is a server-side prepared statement holding its own connection
// until Close. Calls are serialized: concurrent callers queue on the statement
// instead of interleaving on the connection.
type Statement struct {
	engine *Engine
	sql    string
	keys   []string

	mu     sync.Mutex
	stmt   database.Stmt
	closed bool
}

// Prepare compiles tpl once on a dedicated connection. Every slot of tpl must
// be a named key (query.Template.Key); a template without slots prepares a
// fixed query. Invalid SQL fails here, not on first use.
func (e *Engine) Prepare(ctx context.Context, tpl *query.Template) (*Statement, error) {
	sql, keys, err := tpl.RenderKeyed(e.dialect)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	stmt, err := e.db.Prepare(ctx, sql)
	e.trace("prepare", sql, len(keys), start, err)
	if err != nil {
		return nil, fmt.Errorf("preparing statement: %w", err)
	}

	return &Statement{
		engine: e,
		sql:    sql,
		keys:   keys,
		stmt:   stmt,
	}, nil
}

// Keys returns the declared keys in bind order.
func (s *Statement) Keys() []string {
	return append([]string(nil), s.keys...)
}

// SQL returns the prepared query text.
func (s *Statement) SQL() string {
	return s.sql
}

// Run executes a statement prepared without keys.
func (s *Statement) Run(ctx context.Context) ([]Row, error) {
	return s.Query(ctx, nil)
}

// Query binds values in the order the keys were declared and executes the
// statement. A declared key absent from values fails with ErrMissingKey; a
// present key with a nil value binds NULL. Keys not declared are ignored.
func (s *Statement) Query(ctx context.Context, values Values) ([]Row, error) {
	args, err := s.bind(values)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStatementClosed
	}

	start := time.Now()
	rows, err := s.stmt.Query(ctx, args...)
	if err != nil {
		s.engine.trace("execute", s.sql, len(args), start, err)
		return nil, fmt.Errorf("executing prepared statement: %w", err)
	}

	out, err := collect(rows)
	s.engine.trace("execute", s.sql, len(args), start, err)
	if err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}
	return out, nil
}

func (s *Statement) bind(values Values) ([]any, error) {
	args := make([]any, len(s.keys))
	for i, key := range s.keys {
		v, ok := values[key]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingKey, key)
		}
		args[i] = v
	}
	return args, nil
}

// Close deallocates the statement and returns its connection to the pool.
// It is safe to call more than once.
func (s *Statement) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.stmt.Close()
}

// QueryStatement executes s with values and decodes each row into T.
func QueryStatement[T any](ctx context.Context, s *Statement, values Values) ([]T, error) {
	rows, err := s.Query(ctx, values)
	if err != nil {
		return nil, err
	}
	return schema.Decode[T](rows)
}
