package database

import (
	"context"
	"database/sql"
	"errors"
	"reflect"

	"github.com/Konsultn-Engineering/tagsql/cache"
	"github.com/Konsultn-Engineering/tagsql/utils"
)

// errStmtClosed is the unexported error database/sql returns from
// (*Stmt).connStmt in database/sql/sql.go once Stmt.Close has run. A cached
// statement hits it when the LRU evicts it between lookup and use.
const errStmtClosed = "sql: statement is closed"

func isStmtClosed(err error) bool {
	return err != nil && err.Error() == errStmtClosed
}

// SqlDatabase implements Database for *sql.DB. Ad-hoc queries are prepared
// once and kept in an LRU statement cache keyed by query fingerprint.
type SqlDatabase struct {
	db     *sql.DB
	driver string
	stmts  *cache.StatementCache
}

// NewSqlDatabase creates a new SqlDatabase.
func NewSqlDatabase(db *sql.DB, driver string, statementCacheSize int) *SqlDatabase {
	return &SqlDatabase{
		db:     db,
		driver: driver,
		stmts:  cache.NewStatementCache(statementCacheSize),
	}
}

// Query executes a query that returns rows.
func (s *SqlDatabase) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	key := utils.FingerprintQuery(s.driver, query)
	stmt, err := s.stmts.GetOrPrepare(ctx, key, s.db, query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, args...)
	if isStmtClosed(err) {
		s.stmts.RemoveIf(key, stmt)
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, err
	}
	return &SqlRows{rows: rows}, nil
}

// Exec executes a query without returning rows.
func (s *SqlDatabase) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	key := utils.FingerprintQuery(s.driver, query)
	stmt, err := s.stmts.GetOrPrepare(ctx, key, s.db, query)
	if err != nil {
		return nil, err
	}

	res, err := stmt.ExecContext(ctx, args...)
	if isStmtClosed(err) {
		s.stmts.RemoveIf(key, stmt)
		res, err = s.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return nil, err
	}
	return res, nil // database/sql.Result implements Result
}

// Prepare checks out a dedicated connection and prepares query on it.
func (s *SqlDatabase) Prepare(ctx context.Context, query string) (Stmt, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	stmt, err := conn.PrepareContext(ctx, query)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &SqlStmt{conn: conn, stmt: stmt}, nil
}

// Ping verifies the connection to the database is alive.
func (s *SqlDatabase) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Stats returns connection pool statistics.
func (s *SqlDatabase) Stats() Stats {
	st := s.db.Stats()
	return Stats{
		OpenConnections: st.OpenConnections,
		InUse:           st.InUse,
		Idle:            st.Idle,
	}
}

// Close closes cached statements and the database.
func (s *SqlDatabase) Close() error {
	return errors.Join(s.stmts.Close(), s.db.Close())
}

// SqlStmt is a prepared statement on a connection checked out of the pool.
type SqlStmt struct {
	conn *sql.Conn
	stmt *sql.Stmt
}

// Query executes the prepared statement.
func (s *SqlStmt) Query(ctx context.Context, args ...any) (Rows, error) {
	rows, err := s.stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	return &SqlRows{rows: rows}, nil
}

// Close closes the statement and returns the connection to the pool.
func (s *SqlStmt) Close() error {
	if s.conn == nil {
		return nil
	}
	stmtErr := s.stmt.Close()
	connErr := s.conn.Close()
	s.conn = nil
	if stmtErr != nil {
		return stmtErr
	}
	return connErr
}

// SqlRows implements Rows for *sql.Rows.
type SqlRows struct {
	rows     *sql.Rows
	textCols []bool
}

// Next prepares the next result row for reading.
func (s *SqlRows) Next() bool { return s.rows.Next() }

// Err returns the error, if any, that ended iteration.
func (s *SqlRows) Err() error { return s.rows.Err() }

// Close closes the rows iterator.
func (s *SqlRows) Close() error { return s.rows.Close() }

// Columns returns the column names.
func (s *SqlRows) Columns() ([]string, error) { return s.rows.Columns() }

// Values scans the current row into fresh interface values. Text columns that
// the driver hands back as []byte are returned as strings.
func (s *SqlRows) Values() ([]any, error) {
	if s.textCols == nil {
		types, err := s.rows.ColumnTypes()
		if err != nil {
			return nil, err
		}
		s.textCols = make([]bool, len(types))
		for i, ct := range types {
			s.textCols[i] = isTextScanType(ct.ScanType())
		}
	}

	values := make([]any, len(s.textCols))
	ptrs := make([]any, len(values))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := s.rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	for i, v := range values {
		if b, ok := v.([]byte); ok && s.textCols[i] {
			values[i] = string(b)
		}
	}
	return values, nil
}

var nullStringType = reflect.TypeOf(sql.NullString{})

func isTextScanType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	return t.Kind() == reflect.String || t == nullStringType
}

var (
	_ Database = (*SqlDatabase)(nil)
	_ Stmt     = (*SqlStmt)(nil)
	_ Rows     = (*SqlRows)(nil)
)
