// Command querysh: интерактивная оболочка над Query API: строит состояние поиска
// командами и показывает канонический URL консоли и страницу результатов.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/vladislavdragonenkov/ordersconsole/internal/client/queryapi"
	"github.com/vladislavdragonenkov/ordersconsole/internal/domain"
	"github.com/vladislavdragonenkov/ordersconsole/internal/service/catalog"
)

const prompt = "querysh> "

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.WarnLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "querysh:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("querysh", pflag.ContinueOnError)
	var (
		entity  = fs.String("entity", string(domain.EntityCustomers), "entity to query: customers|orders")
		query   = fs.String("query", "", "initial search state as a query string")
		baseURL = fs.String("base-url", envOr("CONSOLE_API_BASE_URL", queryapi.DefaultBaseURL), "Query API base URL")
		timeout = fs.Duration("timeout", 10*time.Second, "upstream request timeout")
		once    = fs.Bool("once", false, "run the initial query, print it and exit")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	api := queryapi.New(*baseURL, *timeout, queryapi.WithLogger(log.WithField("component", "querysh")))
	sh, err := newShell(catalog.NewService(api), out)
	if err != nil {
		return err
	}
	if err := sh.switchEntity(*entity, *query); err != nil {
		return err
	}

	if *once {
		return sh.show(ctx)
	}
	return sh.repl(ctx)
}

// repl читает команды через liner до quit, EOF или Ctrl+C.
func (s *shell) repl(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completer)

	history := historyFile()
	if f, err := os.Open(history); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if history == "" {
			return
		}
		if f, err := os.Create(history); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
	}()

	_, _ = fmt.Fprintln(s.out, "Type 'help' for available commands.")
	for {
		input, err := line.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		quit, err := s.exec(ctx, input)
		if err != nil {
			_, _ = fmt.Fprintln(s.out, "error:", err)
		}
		if quit || ctx.Err() != nil {
			return nil
		}
	}
}

func completer(line string) []string {
	var out []string
	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			out = append(out, cmd)
		}
	}
	return out
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".querysh_history")
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}
