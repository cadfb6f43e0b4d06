package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/Konsultn-Engineering/tagsql/database"
	"github.com/Konsultn-Engineering/tagsql/query"
	"github.com/Konsultn-Engineering/tagsql/schema"
)

// Execute renders tpl with the engine's placeholders and runs it with the slot
// values bound as parameters. It returns an empty slice when nothing matches.
func (e *Engine) Execute(ctx context.Context, tpl *query.Template) ([]Row, error) {
	sql, args, err := tpl.Render(e.dialect)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := e.db.Query(ctx, sql, args...)
	if err != nil {
		e.trace("query", sql, len(args), start, err)
		return nil, fmt.Errorf("executing query: %w", err)
	}

	out, err := collect(rows)
	e.trace("query", sql, len(args), start, err)
	if err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}
	return out, nil
}

// Exec runs a template that returns no rows and reports the rows affected.
func (e *Engine) Exec(ctx context.Context, tpl *query.Template) (int64, error) {
	sql, args, err := tpl.Render(e.dialect)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	res, err := e.db.Exec(ctx, sql, args...)
	e.trace("exec", sql, len(args), start, err)
	if err != nil {
		return 0, fmt.Errorf("executing statement: %w", err)
	}
	return res.RowsAffected()
}

// Query runs tpl and decodes each row into T.
//
//	alunos, err := engine.Query[Aluno](ctx, e, query.Text("SELECT * FROM alunos WHERE idade > ").Arg(18))
func Query[T any](ctx context.Context, e *Engine, tpl *query.Template) ([]T, error) {
	rows, err := e.Execute(ctx, tpl)
	if err != nil {
		return nil, err
	}
	return schema.Decode[T](rows)
}

// Decode maps rows onto T; see schema.Decode.
func Decode[T any](rows []Row) ([]T, error) {
	return schema.Decode[T](rows)
}

func collect(rows database.Rows) ([]Row, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]Row, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
