// Command tagsql runs parameterized statements against the configured
// database and answers holiday lookups.
//
//	tagsql [-config path] ping
//	tagsql [-config path] holiday 2024-12-25
//	tagsql [-config path] insert alunos nome=Ana idade=20
//	tagsql [-config path] select alunos [nome=Ana]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Konsultn-Engineering/tagsql"
	"github.com/Konsultn-Engineering/tagsql/config"
	"github.com/Konsultn-Engineering/tagsql/holiday"
	"github.com/Konsultn-Engineering/tagsql/logging"
)

// Set at build time via -ldflags "-X main.version=1.0.0".
var version = "dev"

var errUsage = errors.New("usage: tagsql [-config path] ping | holiday YYYY-MM-DD | insert <table> col=value... | select <table> [col=value]")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("tagsql", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", os.Getenv("TAGSQL_CONFIG"), "path to the YAML config file")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	log := logging.Default()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error().Err(err).Str("path", *configPath).Msg("loading config")
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	if cmd == "holiday" {
		return runHoliday(ctx, cfg, log, rest, stdout)
	}

	switch cmd {
	case "ping", "insert", "select":
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	e, err := tagsql.Open(ctx, cfg.Database,
		tagsql.WithLogger(log),
		tagsql.WithSlowQuery(cfg.Logging.SlowQuery),
	)
	if err != nil {
		log.Error().Err(err).Str("driver", cfg.Database.Driver).Msg("database unavailable")
		return err
	}
	defer func() {
		if closeErr := e.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("closing database")
		}
	}()
	log.Debug().Str("driver", cfg.Database.Driver).Msg("database connected")

	if cfg.Database.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Database.QueryTimeout)
		defer cancel()
	}

	switch cmd {
	case "ping":
		return runPing(ctx, e, stdout)
	case "insert":
		return runInsert(ctx, e, rest, stdout)
	default:
		return runSelect(ctx, e, rest, stdout)
	}
}

func runPing(ctx context.Context, e *tagsql.Engine, stdout io.Writer) error {
	start := time.Now()
	if err := e.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	st := e.Stats()
	_, err := fmt.Fprintf(stdout, "ok %s open=%d in_use=%d idle=%d latency=%s\n",
		e.Dialect().Name(), st.OpenConnections, st.InUse, st.Idle, time.Since(start).Round(time.Microsecond))
	return err
}

func runHoliday(ctx context.Context, cfg *config.Config, log zerolog.Logger, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	date, err := time.ParseInLocation(holiday.DateLayout, args[0], time.Local)
	if err != nil {
		return fmt.Errorf("parsing date: %w", err)
	}

	cache := holiday.NewCache(holiday.NewBrasilAPI(cfg.Holidays.BaseURL, cfg.Holidays.Timeout), log)
	ok, err := cache.IsHoliday(ctx, date)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, ok)
	return err
}

func runInsert(ctx context.Context, e *tagsql.Engine, args []string, stdout io.Writer) error {
	if len(args) < 2 {
		return errUsage
	}
	d := e.Dialect()

	record := make(map[string]any, len(args)-1)
	for _, arg := range args[1:] {
		col, value, err := splitAssignment(arg)
		if err != nil {
			return err
		}
		record[d.QuoteIdentifier(col)] = value
	}

	if err := e.Insert(ctx, d.QuoteIdentifier(args[0]), record); err != nil {
		return err
	}
	_, err := fmt.Fprintln(stdout, "inserted 1 row")
	return err
}

func runSelect(ctx context.Context, e *tagsql.Engine, args []string, stdout io.Writer) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}
	d := e.Dialect()

	tpl := tagsql.Text("SELECT * FROM " + d.QuoteIdentifier(args[0]))
	if len(args) == 2 {
		col, value, err := splitAssignment(args[1])
		if err != nil {
			return err
		}
		tpl.Text(" WHERE " + d.QuoteIdentifier(col) + " = ").Arg(value)
	}

	rows, err := e.Execute(ctx, tpl)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}

// splitAssignment parses col=value. Integers, floats and the word null are
// bound as such; anything else is bound as text.
func splitAssignment(arg string) (string, any, error) {
	col, raw, ok := strings.Cut(arg, "=")
	if !ok || col == "" {
		return "", nil, fmt.Errorf("%w: expected col=value, got %q", errUsage, arg)
	}
	if raw == "null" {
		return col, nil, nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return col, n, nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return col, f, nil
	}
	return col, raw, nil
}
