package engine

import (
	"context"
	"sort"
	"strings"

	"github.com/Konsultn-Engineering/tagsql/query"
)

// Insert writes record into table with every value bound as a parameter.
// The table and column names are written into the statement verbatim and
// must come from trusted code, never from user input.
//
// Columns are emitted in sorted order so that records with the same shape
// share one cached statement.
func (e *Engine) Insert(ctx context.Context, table string, record map[string]any) error {
	tpl, err := insertTemplate(table, record)
	if err != nil {
		return err
	}
	_, err = e.Exec(ctx, tpl)
	return err
}

func insertTemplate(table string, record map[string]any) (*query.Template, error) {
	if table == "" {
		return nil, ErrEmptyTable
	}
	if len(record) == 0 {
		return nil, ErrEmptyRecord
	}

	columns := make([]string, 0, len(record))
	for col := range record {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	values := make([]any, len(columns))
	for i, col := range columns {
		values[i] = record[col]
	}

	tpl := query.Text("INSERT INTO " + table + " (" + strings.Join(columns, ", ") + ") VALUES (").
		Args(values...).
		Text(")")
	return tpl, nil
}
