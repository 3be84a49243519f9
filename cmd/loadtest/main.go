// Command loadtest нагружает HTTP-консоль набором запросов списков и сводит
// задержки и долю ответов из кэша.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

var defaultPaths = []string{
	"/api/customers",
	"/api/customers?country=Germany",
	"/api/customers?countryStartsWith=S&orderBy=companyName",
	"/api/orders",
	"/api/orders?shipCountry=France&take=20",
	"/api/orders?customerId=ALFKI",
}

type config struct {
	target      string
	paths       []string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	timeout     time.Duration
	token       string
	outputPath  string
}

func parseConfig(args []string) (config, error) {
	var cfg config
	fs := pflag.NewFlagSet("loadtest", pflag.ContinueOnError)
	fs.StringVar(&cfg.target, "target", "http://localhost:8080", "console base URL")
	fs.StringSliceVar(&cfg.paths, "path", defaultPaths, "request paths, rotated round-robin (repeatable)")
	fs.IntVar(&cfg.total, "total", 400, "total requests in count mode; in duration mode only used when explicitly set")
	fs.DurationVar(&cfg.duration, "duration", 0, "run for a fixed time instead of a fixed count")
	fs.IntVar(&cfg.concurrency, "concurrency", 8, "parallel workers")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-request timeout")
	fs.StringVar(&cfg.token, "token", "", "operator bearer token when the console requires auth")
	fs.StringVar(&cfg.outputPath, "output", "", "write the JSON report to this file")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	cfg.totalSet = fs.Changed("total")

	cfg.target = strings.TrimRight(strings.TrimSpace(cfg.target), "/")
	switch {
	case cfg.target == "":
		return config{}, errors.New("target is required")
	case len(cfg.paths) == 0:
		return config{}, errors.New("at least one path is required")
	case cfg.concurrency <= 0:
		return config{}, fmt.Errorf("concurrency must be positive: %d", cfg.concurrency)
	case cfg.total <= 0 && (cfg.duration <= 0 || cfg.totalSet):
		return config{}, fmt.Errorf("total must be positive: %d", cfg.total)
	case cfg.duration < 0:
		return config{}, fmt.Errorf("duration must not be negative: %s", cfg.duration)
	case cfg.timeout <= 0:
		return config{}, fmt.Errorf("timeout must be positive: %s", cfg.timeout)
	}
	for i, p := range cfg.paths {
		if !strings.HasPrefix(p, "/") {
			cfg.paths[i] = "/" + p
		}
	}
	return cfg, nil
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := run(ctx, cfg)
	printReport(os.Stdout, result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}
	if result.Failed > 0 {
		os.Exit(1)
	}
}

// run раздаёт задания воркерам и собирает отчёт.
func run(ctx context.Context, cfg config) report {
	client := resty.New().
		SetBaseURL(cfg.target).
		SetTimeout(cfg.timeout).
		SetHeader("Accept", "application/json")
	if cfg.token != "" {
		client.SetAuthToken(cfg.token)
	}

	startedAt := time.Now()
	col := newCollector()
	jobs := make(chan int, cfg.concurrency*2)

	g, gctx := errgroup.WithContext(ctx)
	for range cfg.concurrency {
		g.Go(func() error {
			for id := range jobs {
				hit(gctx, client, cfg.paths[id%len(cfg.paths)], col)
			}
			return nil
		})
	}

	dispatchJobs(ctx, jobs, cfg)
	_ = g.Wait()

	return col.buildReport(startedAt, time.Since(startedAt))
}

func hit(ctx context.Context, client *resty.Client, path string, col *collector) {
	started := time.Now()
	resp, err := client.R().SetContext(ctx).Get(path)
	if err != nil {
		col.record(path, time.Since(started), 0, false)
		return
	}
	col.record(path, time.Since(started), resp.StatusCode(), cachedFlag(resp.Body()))
}

// cachedFlag читает признак cached из JSON-ответа /api; для HTML-страниц false.
func cachedFlag(body []byte) bool {
	var payload struct {
		Cached bool `json:"cached"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false
	}
	return payload.Cached
}

func dispatchJobs(ctx context.Context, jobs chan<- int, cfg config) {
	defer close(jobs)

	var deadline <-chan time.Time
	if cfg.duration > 0 {
		timer := time.NewTimer(cfg.duration)
		defer timer.Stop()
		deadline = timer.C
	}

	for i := 0; ; i++ {
		if (cfg.duration <= 0 || cfg.totalSet) && i >= cfg.total {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case jobs <- i:
		}
	}
}
