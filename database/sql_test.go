package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konsultn-Engineering/tagsql/utils"
)

func newSQLiteDatabase(t *testing.T) *SqlDatabase {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "database.db"))
	require.NoError(t, err)

	sdb := NewSqlDatabase(db, "sqlite3", 8)
	t.Cleanup(func() { _ = sdb.Close() })

	_, err = sdb.Exec(context.Background(), `CREATE TABLE alunos (id INTEGER PRIMARY KEY, nome TEXT NOT NULL, foto BLOB)`)
	require.NoError(t, err)
	return sdb
}

func collect(t *testing.T, rows Rows) ([]string, [][]any) {
	t.Helper()
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)

	var out [][]any
	for rows.Next() {
		vals, err := rows.Values()
		require.NoError(t, err)
		out = append(out, vals)
	}
	require.NoError(t, rows.Err())
	return cols, out
}

func TestSqlDatabaseQueryBindsArguments(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDatabase(t)

	res, err := db.Exec(ctx, `INSERT INTO alunos (id, nome, foto) VALUES (?, ?, ?)`, 1, "O'Brien; DROP TABLE alunos", []byte{1, 2})
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	rows, err := db.Query(ctx, `SELECT id, nome, foto FROM alunos WHERE nome = ?`, "O'Brien; DROP TABLE alunos")
	require.NoError(t, err)
	cols, got := collect(t, rows)

	assert.Equal(t, []string{"id", "nome", "foto"}, cols)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0][0])
	assert.Equal(t, "O'Brien; DROP TABLE alunos", got[0][1])
	assert.Equal(t, []byte{1, 2}, got[0][2])
}

func TestSqlDatabaseCachesStatements(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDatabase(t)
	before := db.stmts.Len()

	for i := 0; i < 3; i++ {
		rows, err := db.Query(ctx, `SELECT nome FROM alunos WHERE id = ?`, i)
		require.NoError(t, err)
		_, got := collect(t, rows)
		assert.Empty(t, got)
	}
	assert.Equal(t, before+1, db.stmts.Len())
}

func TestSqlDatabaseSyntaxError(t *testing.T) {
	db := newSQLiteDatabase(t)

	_, err := db.Query(context.Background(), `SELEC * FROM alunos`)
	assert.Error(t, err)
}

func TestSqlDatabasePrepareHoldsConnection(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDatabase(t)

	_, err := db.Exec(ctx, `INSERT INTO alunos (id, nome) VALUES (?, ?)`, 7, "Ana")
	require.NoError(t, err)

	stmt, err := db.Prepare(ctx, `SELECT nome FROM alunos WHERE id = ?`)
	require.NoError(t, err)
	assert.Equal(t, 1, db.Stats().InUse)

	for i := 0; i < 2; i++ {
		rows, err := stmt.Query(ctx, 7)
		require.NoError(t, err)
		_, got := collect(t, rows)
		assert.Equal(t, [][]any{{"Ana"}}, got)
	}

	require.NoError(t, stmt.Close())
	require.NoError(t, stmt.Close())
	assert.Equal(t, 0, db.Stats().InUse)
}

func TestSqlDatabasePrepareInvalidReleasesConnection(t *testing.T) {
	db := newSQLiteDatabase(t)

	_, err := db.Prepare(context.Background(), `SELECT FROM WHERE`)
	require.Error(t, err)
	assert.Equal(t, 0, db.Stats().InUse)
}

func TestSqlDatabasePing(t *testing.T) {
	db := newSQLiteDatabase(t)
	assert.NoError(t, db.Ping(context.Background()))
}

func TestSqlDatabaseRecoversFromClosedCachedStatement(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDatabase(t)
	query := `SELECT nome FROM alunos WHERE id = ?`

	_, err := db.Exec(ctx, `INSERT INTO alunos (id, nome) VALUES (?, ?)`, 1, "Ana")
	require.NoError(t, err)

	rows, err := db.Query(ctx, query, 1)
	require.NoError(t, err)
	collect(t, rows)

	key := utils.FingerprintQuery("sqlite3", query)
	stale, ok := db.stmts.Get(key)
	require.True(t, ok)
	require.NoError(t, stale.Close())

	rows, err = db.Query(ctx, query, 1)
	require.NoError(t, err)
	_, got := collect(t, rows)
	assert.Equal(t, [][]any{{"Ana"}}, got)

	// The closed statement was dropped and the next call prepares a new one.
	_, ok = db.stmts.Get(key)
	assert.False(t, ok)
	rows, err = db.Query(ctx, query, 1)
	require.NoError(t, err)
	collect(t, rows)
	fresh, ok := db.stmts.Get(key)
	require.True(t, ok)
	assert.NotSame(t, stale, fresh)
}

func TestSqlDatabaseClosePurgesStatements(t *testing.T) {
	db := newSQLiteDatabase(t)
	rows, err := db.Query(context.Background(), `SELECT 1`)
	require.NoError(t, err)
	collect(t, rows)
	require.Positive(t, db.stmts.Len())

	require.NoError(t, db.Close())
	assert.Equal(t, 0, db.stmts.Len())
}
