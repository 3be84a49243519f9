// Command migrate управляет схемой хранилища сохранённых представлений в PostgreSQL.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/vladislavdragonenkov/ordersconsole/internal/storage/postgres"
)

const (
	defaultTimeout = 30 * time.Second
	envDSN         = "CONSOLE_POSTGRES_DSN"
)

var errDSNRequired = errors.New(envDSN + " (or --dsn) is required")

type options struct {
	direction string
	steps     int
	dsn       string
}

func parseArgs(args []string, lookup func(string) (string, bool)) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	fs.StringVar(&opts.direction, "direction", "up", "migration direction: up|down|status")
	fs.IntVar(&opts.steps, "steps", 0, "number of migrations to apply/rollback (0=all for up, 1 for down)")
	fs.StringVar(&opts.dsn, "dsn", "", "PostgreSQL DSN (fallback: "+envDSN+")")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts.direction = strings.ToLower(strings.TrimSpace(opts.direction))
	switch opts.direction {
	case "up", "down", "status":
	default:
		return options{}, fmt.Errorf("unsupported direction: %s (use up|down|status)", opts.direction)
	}
	if opts.steps < 0 {
		return options{}, fmt.Errorf("steps must not be negative: %d", opts.steps)
	}

	opts.dsn = strings.TrimSpace(opts.dsn)
	if opts.dsn == "" {
		v, _ := lookup(envDSN)
		opts.dsn = strings.TrimSpace(v)
	}
	if opts.dsn == "" {
		return options{}, errDSNRequired
	}
	return opts, nil
}

func run(ctx context.Context, opts options, out io.Writer) error {
	store, err := postgres.Open(ctx, opts.dsn)
	if err != nil {
		return fmt.Errorf("open postgres store: %w", err)
	}
	defer store.Close()

	var done int
	switch opts.direction {
	case "up":
		if done, err = store.MigrateUp(ctx, opts.steps); err != nil {
			return fmt.Errorf("migrate up failed: %w", err)
		}
	case "down":
		if done, err = store.MigrateDown(ctx, opts.steps); err != nil {
			return fmt.Errorf("migrate down failed: %w", err)
		}
	}

	status, err := store.Status(ctx)
	if err != nil {
		return fmt.Errorf("migration status failed: %w", err)
	}
	if opts.direction == "status" {
		_, _ = fmt.Fprintf(out, "migration status: version=%d applied=%d pending=%d\n", status.Version, status.Applied, len(status.Pending))
		for _, name := range status.Pending {
			_, _ = fmt.Fprintf(out, "  pending %s\n", name)
		}
		return nil
	}
	_, _ = fmt.Fprintf(out, "migrate %s ok: changed=%d version=%d applied=%d\n", opts.direction, done, status.Version, status.Applied)
	return nil
}

func main() {
	opts, err := parseArgs(os.Args[1:], os.LookupEnv)
	if err != nil {
		fail("%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fail("%v", err)
	}
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
