// Package tagsql runs SQL built from trusted text and bound values.
//
//	e, err := tagsql.Open(ctx, connector.Config{Driver: "sqlite3", Path: "escola.db"})
//	rows, err := e.Execute(ctx, tagsql.Text("SELECT * FROM alunos WHERE nome = ").Arg(nome))
//
// Text is written into the statement as is. Values only ever reach the
// database as bound parameters.
package tagsql

import (
	"context"
	"fmt"

	"github.com/Konsultn-Engineering/tagsql/connector"
	"github.com/Konsultn-Engineering/tagsql/engine"
	"github.com/Konsultn-Engineering/tagsql/query"
)

type (
	Engine    = engine.Engine
	Statement = engine.Statement
	Row       = engine.Row
	Values    = engine.Values
	Option    = engine.Option
	Template  = query.Template
	Config    = connector.Config
)

var (
	Text  = query.Text
	SQL   = query.SQL
	Named = query.Named

	WithLogger    = engine.WithLogger
	WithSlowQuery = engine.WithSlowQuery
)

// Open connects with the provider named by cfg.Driver and verifies the pool
// with a round trip before returning. A bad config or an unreachable server
// fails here rather than on the first query.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Engine, error) {
	conn, err := connector.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", cfg.Driver, err)
	}
	return engine.New(conn.Database(), conn.Dialect(), opts...), nil
}
