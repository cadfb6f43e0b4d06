package connector

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidConfig = errors.New("invalid database config")

// Config represents database connection configuration.
type Config struct {
	Driver             string            `json:"driver" yaml:"driver"`
	Host               string            `json:"host" yaml:"host"`
	Port               int               `json:"port" yaml:"port"`
	Database           string            `json:"database" yaml:"database"`
	Username           string            `json:"username" yaml:"username"`
	Password           string            `json:"password" yaml:"password"`
	SSLMode            string            `json:"ssl_mode" yaml:"ssl_mode"`
	Path               string            `json:"path" yaml:"path"` // sqlite3 only
	Params             map[string]string `json:"params" yaml:"params"`
	Pool               PoolConfig        `json:"pool" yaml:"pool"`
	ConnectTimeout     time.Duration     `json:"connect_timeout" yaml:"connect_timeout"`
	QueryTimeout       time.Duration     `json:"query_timeout" yaml:"query_timeout"`
	StatementCacheSize int               `json:"statement_cache_size" yaml:"statement_cache_size"`
}

// PoolConfig defines connection pool settings.
type PoolConfig struct {
	MaxOpen         int           `json:"max_open" yaml:"max_open"`
	MaxIdle         int           `json:"max_idle" yaml:"max_idle"`
	MaxLifetime     time.Duration `json:"max_lifetime" yaml:"max_lifetime"`
	MaxIdleTime     time.Duration `json:"max_idle_time" yaml:"max_idle_time"`
	HealthCheckFreq time.Duration `json:"health_check_freq" yaml:"health_check_freq"`
}

// Validate reports the first problem that would make the pool unusable.
func (c *Config) Validate() error {
	if c.Driver == "" {
		return fmt.Errorf("%w: driver is required", ErrInvalidConfig)
	}
	if !Registered(c.Driver) {
		return fmt.Errorf("%w: %w: %s", ErrInvalidConfig, ErrProviderNotRegistered, c.Driver)
	}

	if c.Driver == "sqlite3" {
		if c.Path == "" {
			return fmt.Errorf("%w: path is required for sqlite3", ErrInvalidConfig)
		}
	} else {
		if c.Host == "" {
			return fmt.Errorf("%w: host is required", ErrInvalidConfig)
		}
		if c.Port <= 0 || c.Port > 65535 {
			return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
		}
	}

	if c.Pool.MaxOpen < 0 {
		return fmt.Errorf("%w: pool.max_open must not be negative", ErrInvalidConfig)
	}
	if c.Pool.MaxOpen > 0 && c.Pool.MaxIdle > c.Pool.MaxOpen {
		return fmt.Errorf("%w: pool.max_idle (%d) exceeds pool.max_open (%d)", ErrInvalidConfig, c.Pool.MaxIdle, c.Pool.MaxOpen)
	}
	if c.StatementCacheSize < 0 {
		return fmt.Errorf("%w: statement_cache_size must not be negative", ErrInvalidConfig)
	}
	return nil
}

// withDefaults returns a copy of the pool settings with zero values filled in.
func (p PoolConfig) withDefaults() PoolConfig {
	if p.MaxOpen <= 0 {
		p.MaxOpen = 10
	}
	if p.MaxIdle < 0 {
		p.MaxIdle = 0
	}
	if p.MaxLifetime == 0 {
		p.MaxLifetime = time.Hour
	}
	if p.MaxIdleTime == 0 {
		p.MaxIdleTime = 30 * time.Minute
	}
	return p
}
