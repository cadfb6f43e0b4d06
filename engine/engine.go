package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Konsultn-Engineering/tagsql/database"
	"github.com/Konsultn-Engineering/tagsql/dialect"
)

// Row is one result row keyed by column name. Values are whatever the driver
// decoded; use Decode or Query for typed results.
type Row map[string]any

// Values binds the keys of a prepared statement.
type Values map[string]any

// Engine runs templates against a pool. It is safe for concurrent use.
type Engine struct {
	db        database.Database
	dialect   dialect.Dialect
	log       zerolog.Logger
	slowQuery time.Duration
	id        uuid.UUID
}

type Option func(*Engine)

// WithLogger sets the logger used for statement tracing.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithSlowQuery logs statements slower than d at warn level.
func WithSlowQuery(d time.Duration) Option {
	return func(e *Engine) {
		e.slowQuery = d
	}
}

func New(db database.Database, d dialect.Dialect, opts ...Option) *Engine {
	e := &Engine{
		db:      db,
		dialect: d,
		log:     zerolog.Nop(),
		id:      uuid.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With().
		Str("component", "engine").
		Str("engine_id", e.id.String()).
		Str("dialect", d.Name()).
		Logger()
	return e
}

func (e *Engine) Dialect() dialect.Dialect {
	return e.dialect
}

func (e *Engine) Ping(ctx context.Context) error {
	return e.db.Ping(ctx)
}

func (e *Engine) Stats() database.Stats {
	return e.db.Stats()
}

// Close closes the pool. Statements must be closed first.
func (e *Engine) Close() error {
	return e.db.Close()
}

// trace logs a finished statement. Bound values are never logged.
func (e *Engine) trace(op, sql string, argc int, start time.Time, err error) {
	dur := time.Since(start)

	var ev *zerolog.Event
	switch {
	case err != nil:
		ev = e.log.Debug().Err(err)
	case e.slowQuery > 0 && dur >= e.slowQuery:
		ev = e.log.Warn().Bool("slow", true)
	default:
		ev = e.log.Debug()
	}
	ev.Str("op", op).
		Str("sql", sql).
		Int("argc", argc).
		Dur("duration", dur).
		Msg("statement")
}
