package database

import "context"

// Database is a pool of connections to one database.
type Database interface {
	// Query runs query with args bound out of band and returns the rows.
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, query string, args ...any) (Result, error)
	// Prepare acquires a dedicated connection and prepares query on it. The
	// connection stays checked out until the returned Stmt is closed.
	Prepare(ctx context.Context, query string) (Stmt, error)
	Ping(ctx context.Context) error
	Stats() Stats
	Close() error
}

// Stmt is a server-side prepared statement pinned to one connection.
// It is not safe for concurrent use.
type Stmt interface {
	Query(ctx context.Context, args ...any) (Rows, error)
	Close() error
}

type Rows interface {
	Next() bool
	Columns() ([]string, error)
	// Values returns the current row decoded into Go values.
	Values() ([]any, error)
	Err() error
	Close() error
}

type Result interface {
	RowsAffected() (int64, error)
}
