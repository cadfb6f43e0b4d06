package connector

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"github.com/Konsultn-Engineering/tagsql/database"
	"github.com/Konsultn-Engineering/tagsql/dialect"
)

// MySQLProvider opens database/sql pools through go-sql-driver/mysql.
// TiDB is registered with the same provider and its own dialect.
type MySQLProvider struct {
	dialect dialect.Dialect
}

func init() {
	Register("mysql", &MySQLProvider{dialect: dialect.NewMySQLDialect()})
	Register("tidb", &MySQLProvider{dialect: dialect.NewTiDBDialect()})
}

func (p *MySQLProvider) Connect(ctx context.Context, cfg Config) (Connection, error) {
	mc, err := mysqlConfig(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("creating mysql connector: %w", err)
	}
	db := sql.OpenDB(conn)
	applyPool(db, cfg.Pool)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("verifying mysql connection: %w", err)
	}

	return &connection{
		db:      database.NewSqlDatabase(db, cfg.Driver, cfg.StatementCacheSize),
		dialect: p.dialect,
	}, nil
}

func (p *MySQLProvider) Dialect() dialect.Dialect {
	return p.dialect
}

func mysqlConfig(cfg Config) (*mysql.Config, error) {
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Timeout = cfg.ConnectTimeout
	mc.ReadTimeout = cfg.QueryTimeout
	mc.WriteTimeout = cfg.QueryTimeout
	mc.TLSConfig = mysqlTLS(cfg.SSLMode)
	for k, v := range cfg.Params {
		if mc.Params == nil {
			mc.Params = make(map[string]string, len(cfg.Params))
		}
		mc.Params[k] = v
	}

	// Round-trip through the DSN parser so invalid values fail here.
	parsed, err := mysql.ParseDSN(mc.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("parsing mysql config: %w", err)
	}
	return parsed, nil
}

// mysqlTLS maps postgres-style ssl modes onto the driver's tls parameter.
// Anything else is passed through as a registered TLS config name.
func mysqlTLS(mode string) string {
	switch mode {
	case "", "disable":
		return ""
	case "prefer", "preferred":
		return "preferred"
	case "allow", "skip-verify":
		return "skip-verify"
	case "require", "verify-ca", "verify-full", "true":
		return "true"
	}
	return mode
}

func applyPool(db *sql.DB, cfg PoolConfig) {
	pool := cfg.withDefaults()
	idle := pool.MaxIdle
	if cfg.MaxIdle == 0 {
		// database/sql keeps two idle connections unless told otherwise.
		idle = min(2, pool.MaxOpen)
	}
	db.SetMaxOpenConns(pool.MaxOpen)
	db.SetMaxIdleConns(idle)
	db.SetConnMaxLifetime(pool.MaxLifetime)
	db.SetConnMaxIdleTime(pool.MaxIdleTime)
}
