package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// PgxDatabase implements Database for pgxpool.Pool. Ad-hoc queries go through
// pgx's per-connection statement cache, so they are prepared server-side and
// their arguments always travel as bound parameters.
type PgxDatabase struct {
	pool *pgxpool.Pool
}

// NewPgxDatabase creates a new PgxDatabase.
func NewPgxDatabase(pool *pgxpool.Pool) *PgxDatabase {
	return &PgxDatabase{pool: pool}
}

// Query executes a query that returns rows.
func (p *PgxDatabase) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &PgxRows{rows: rows}, nil
}

// Exec executes a query without returning rows.
func (p *PgxDatabase) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	cmdTag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &PgxResult{cmdTag: cmdTag}, nil
}

// Prepare acquires a connection from the pool and prepares a named statement on it.
func (p *PgxDatabase) Prepare(ctx context.Context, query string) (Stmt, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}

	name := "tagsql_" + strings.ToLower(ulid.Make().String())
	if _, err := conn.Conn().Prepare(ctx, name, query); err != nil {
		conn.Release()
		return nil, err
	}
	return &PgxStmt{conn: conn, name: name}, nil
}

// Ping verifies the connection to the database is alive.
func (p *PgxDatabase) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Stats returns connection pool statistics.
func (p *PgxDatabase) Stats() Stats {
	s := p.pool.Stat()
	return Stats{
		OpenConnections: int(s.TotalConns()),
		InUse:           int(s.AcquiredConns()),
		Idle:            int(s.IdleConns()),
	}
}

// Close closes the pool.
func (p *PgxDatabase) Close() error {
	p.pool.Close()
	return nil
}

// PgxStmt is a named prepared statement on an acquired pool connection.
type PgxStmt struct {
	conn *pgxpool.Conn
	name string
}

// Query executes the prepared statement by name.
func (s *PgxStmt) Query(ctx context.Context, args ...any) (Rows, error) {
	rows, err := s.conn.Query(ctx, s.name, args...)
	if err != nil {
		return nil, err
	}
	return &PgxRows{rows: rows}, nil
}

// Close deallocates the statement and returns the connection to the pool.
func (s *PgxStmt) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Conn().Deallocate(context.Background(), s.name)
	s.conn.Release()
	s.conn = nil
	return err
}

// PgxRows implements Rows for pgx.Rows.
type PgxRows struct {
	rows              pgx.Rows
	fieldDescriptions []pgconn.FieldDescription
}

// Next prepares the next result row for reading.
func (p *PgxRows) Next() bool { return p.rows.Next() }

// Values returns the values for the current row.
func (p *PgxRows) Values() ([]any, error) { return p.rows.Values() }

// Err returns the error, if any, that ended iteration.
func (p *PgxRows) Err() error { return p.rows.Err() }

// Close closes the rows iterator.
func (p *PgxRows) Close() error { p.rows.Close(); return p.rows.Err() }

// Columns returns the column names.
func (p *PgxRows) Columns() ([]string, error) {
	if p.fieldDescriptions == nil {
		p.fieldDescriptions = p.rows.FieldDescriptions()
	}
	columns := make([]string, len(p.fieldDescriptions))
	for i, fd := range p.fieldDescriptions {
		columns[i] = fd.Name
	}
	return columns, nil
}

// PgxResult implements Result for pgxpool command tags.
type PgxResult struct {
	cmdTag pgconn.CommandTag
}

// RowsAffected returns the number of rows affected by the command.
func (r *PgxResult) RowsAffected() (int64, error) {
	return r.cmdTag.RowsAffected(), nil
}

var (
	_ Database = (*PgxDatabase)(nil)
	_ Stmt     = (*PgxStmt)(nil)
	_ Rows     = (*PgxRows)(nil)
)
