package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konsultn-Engineering/tagsql"
)

// setup writes a config pointing at a fresh sqlite file with an alunos table.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "escola.db")

	e, err := tagsql.Open(context.Background(), tagsql.Config{Driver: "sqlite3", Path: dbPath})
	require.NoError(t, err)
	_, err = e.Exec(context.Background(), tagsql.Text("CREATE TABLE alunos (id INTEGER PRIMARY KEY, nome TEXT NOT NULL, idade INTEGER)"))
	require.NoError(t, err)
	require.NoError(t, e.Close())

	configPath := filepath.Join(dir, "config.yaml")
	content := "database:\n  driver: sqlite3\n  path: " + dbPath + "\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))
	return configPath
}

func TestRunInsertAndSelect(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	configPath := setup(t)

	var out bytes.Buffer
	require.NoError(t, run(ctx, []string{"-config", configPath, "insert", "alunos", "nome=Ana", "idade=20"}, &out))
	assert.Equal(t, "inserted 1 row\n", out.String())

	require.NoError(t, run(ctx, []string{"-config", configPath, "insert", "alunos", "nome=x'); DROP TABLE alunos;--", "idade=null"}, &out))

	out.Reset()
	require.NoError(t, run(ctx, []string{"-config", configPath, "select", "alunos", "nome=Ana"}, &out))

	var row map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &row))
	assert.Equal(t, "Ana", row["nome"])
	assert.EqualValues(t, 20, row["idade"])

	out.Reset()
	require.NoError(t, run(ctx, []string{"-config", configPath, "select", "alunos"}, &out))
	assert.Len(t, strings.Split(strings.TrimSpace(out.String()), "\n"), 2)
}

func TestRunPing(t *testing.T) {
	configPath := setup(t)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-config", configPath, "ping"}, &out))
	assert.True(t, strings.HasPrefix(out.String(), "ok sqlite3"))
}

func TestRunHoliday(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/feriados/v1/2024", r.URL.Path)
		_, _ = w.Write([]byte(`[{"date":"2024-12-25","name":"Natal","type":"national"}]`))
	}))
	defer srv.Close()
	t.Setenv("TAGSQL_HOLIDAYS_URL", srv.URL)
	configPath := setup(t)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-config", configPath, "holiday", "2024-12-25"}, &out))
	assert.Equal(t, "true\n", out.String())

	out.Reset()
	require.NoError(t, run(context.Background(), []string{"-config", configPath, "holiday", "2024-12-24"}, &out))
	assert.Equal(t, "false\n", out.String())
}

func TestRunFailsOnUnreachableDatabase(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := "database:\n  driver: postgres\n  host: 127.0.0.1\n  port: 1\n  connect_timeout: 2s\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))

	err := run(context.Background(), []string{"-config", configPath, "ping"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunInvalidConfig(t *testing.T) {
	err := run(context.Background(), []string{"-config", "/nonexistent/path/config.yaml", "ping"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunUsage(t *testing.T) {
	configPath := setup(t)

	for _, args := range [][]string{
		{},
		{"-config", configPath},
		{"-config", configPath, "drop"},
		{"-config", configPath, "insert", "alunos"},
		{"-config", configPath, "insert", "alunos", "nome"},
		{"-config", configPath, "holiday"},
	} {
		err := run(context.Background(), args, &bytes.Buffer{})
		assert.ErrorIs(t, err, errUsage, "args %v", args)
	}
}

func TestSplitAssignment(t *testing.T) {
	tests := []struct {
		in   string
		col  string
		want any
	}{
		{"idade=20", "idade", int64(20)},
		{"nota=7.5", "nota", 7.5},
		{"email=null", "email", nil},
		{"nome=Ana=Bia", "nome", "Ana=Bia"},
		{"nome=", "nome", ""},
	}
	for _, tt := range tests {
		col, got, err := splitAssignment(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.col, col)
		assert.Equal(t, tt.want, got)
	}
}
