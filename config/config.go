// Package config loads tagsql settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Konsultn-Engineering/tagsql/connector"
)

// Config is the root configuration.
type Config struct {
	Database connector.Config `yaml:"database"`
	Logging  LoggingConfig    `yaml:"logging"`
	Holidays HolidaysConfig   `yaml:"holidays"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	Output string `yaml:"output"` // stdout, stderr

	// SlowQuery logs statements at warn level once they take at least this
	// long. Zero disables it.
	SlowQuery time.Duration `yaml:"slow_query"`
}

// HolidaysConfig points the holiday cache at its upstream source.
type HolidaysConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Database: connector.Config{
			Driver:             "sqlite3",
			Path:               "./data/tagsql.db",
			SSLMode:            "disable",
			ConnectTimeout:     5 * time.Second,
			StatementCacheSize: 256,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "json",
			Output:    "stderr",
			SlowQuery: 200 * time.Millisecond,
		},
		Holidays: HolidaysConfig{
			BaseURL: "https://brasilapi.com.br",
			Timeout: 10 * time.Second,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("TAGSQL_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("TAGSQL_DATABASE_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("TAGSQL_DATABASE_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("TAGSQL_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Logging
	if v := os.Getenv("TAGSQL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Holidays
	if v := os.Getenv("TAGSQL_HOLIDAYS_URL"); v != "" {
		cfg.Holidays.BaseURL = v
	}
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unknown format %q", c.Logging.Format))
	}
	if c.Logging.SlowQuery < 0 {
		errs = append(errs, errors.New("logging.slow_query must not be negative"))
	}

	if c.Holidays.BaseURL == "" {
		errs = append(errs, errors.New("holidays.base_url is required"))
	}
	if c.Holidays.Timeout <= 0 {
		errs = append(errs, errors.New("holidays.timeout must be positive"))
	}

	return errors.Join(errs...)
}
