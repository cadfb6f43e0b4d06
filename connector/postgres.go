package connector

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Konsultn-Engineering/tagsql/database"
	"github.com/Konsultn-Engineering/tagsql/dialect"
)

// PostgresProvider opens pgx pools.
type PostgresProvider struct{}

func init() {
	Register("postgres", &PostgresProvider{})
}

// Connect builds the pool and pings it; pgxpool itself connects lazily.
func (p *PostgresProvider) Connect(ctx context.Context, cfg Config) (Connection, error) {
	poolCfg, err := postgresPoolConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("verifying postgres connection: %w", err)
	}

	return &connection{db: database.NewPgxDatabase(pool), dialect: p.Dialect()}, nil
}

func (p *PostgresProvider) Dialect() dialect.Dialect {
	return dialect.NewPostgresDialect()
}

// buildPostgresDSN creates a PostgreSQL connection string.
func buildPostgresDSN(cfg Config) (string, error) {
	b := NewDSNBuilder("postgres").
		Auth(cfg.Username, cfg.Password).
		Host(cfg.Host, cfg.Port).
		Database(cfg.Database).
		WithPostgresDefaults().
		Param("sslmode", cfg.SSLMode)
	if cfg.ConnectTimeout > 0 {
		b.Param("connect_timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	}
	if err := b.Validate(); err != nil {
		return "", err
	}
	return b.Params(cfg.Params).Build(), nil
}

func postgresPoolConfig(cfg Config) (*pgxpool.Config, error) {
	dsn, err := buildPostgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool := cfg.Pool.withDefaults()
	poolCfg.MaxConns = int32(pool.MaxOpen)
	poolCfg.MinConns = int32(pool.MaxIdle)
	poolCfg.MaxConnLifetime = pool.MaxLifetime
	poolCfg.MaxConnIdleTime = pool.MaxIdleTime
	if pool.HealthCheckFreq > 0 {
		poolCfg.HealthCheckPeriod = pool.HealthCheckFreq
	}

	if cfg.StatementCacheSize > 0 {
		poolCfg.ConnConfig.StatementCacheCapacity = cfg.StatementCacheSize
	}
	if cfg.QueryTimeout > 0 {
		poolCfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.QueryTimeout.Milliseconds(), 10)
	}
	return poolCfg, nil
}
