package engine

import "errors"

var (
	ErrMissingKey      = errors.New("engine: missing value for key")
	ErrStatementClosed = errors.New("engine: statement is closed")
	ErrEmptyTable      = errors.New("engine: empty table name")
	ErrEmptyRecord     = errors.New("engine: empty record")
)
