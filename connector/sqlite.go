package connector

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/Konsultn-Engineering/tagsql/database"
	"github.com/Konsultn-Engineering/tagsql/dialect"
)

const (
	sqliteDirPermissions = 0750

	// sqliteBusyTimeoutMS is how long a connection waits on a locked database.
	sqliteBusyTimeoutMS = 5000
)

// SQLiteProvider opens a database file through mattn/go-sqlite3.
type SQLiteProvider struct{}

func init() {
	Register("sqlite3", &SQLiteProvider{})
}

func (p *SQLiteProvider) Connect(ctx context.Context, cfg Config) (Connection, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), sqliteDirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", buildSQLiteDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	applyPool(db, cfg.Pool)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("verifying sqlite connection: %w", err)
	}

	return &connection{
		db:      database.NewSqlDatabase(db, cfg.Driver, cfg.StatementCacheSize),
		dialect: p.Dialect(),
	}, nil
}

func (p *SQLiteProvider) Dialect() dialect.Dialect {
	return dialect.NewSQLiteDialect()
}

// See: https://github.com/mattn/go-sqlite3#connection-string
func buildSQLiteDSN(cfg Config) string {
	params := map[string]string{
		"_busy_timeout": fmt.Sprint(sqliteBusyTimeoutMS),
		"_foreign_keys": "on",
	}
	for k, v := range cfg.Params {
		params[k] = v
	}

	return "file:" + cfg.Path + "?" + NewDSNBuilder("file").Params(params).Query()
}
