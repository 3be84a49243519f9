package querycache

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultSweepInterval = time.Minute

// Sweeper: кэш, из которого можно удалить устаревшие записи.
type Sweeper interface {
	Name() string
	Sweep(now time.Time) int
}

// RunObserver учитывает проходы очистки.
type RunObserver interface {
	JanitorRun(status string)
}

type nopRunObserver struct{}

func (nopRunObserver) JanitorRun(string) {}

// JanitorOptions задаёт параметры очистки.
type JanitorOptions struct {
	Logger   *log.Entry
	Interval time.Duration
	Observer RunObserver
}

// JanitorOption настраивает Janitor.
type JanitorOption func(*JanitorOptions)

// WithJanitorLogger задаёт логгер.
func WithJanitorLogger(logger *log.Entry) JanitorOption {
	return func(opts *JanitorOptions) { opts.Logger = logger }
}

// WithInterval задаёт интервал между проходами.
func WithInterval(interval time.Duration) JanitorOption {
	return func(opts *JanitorOptions) { opts.Interval = interval }
}

// WithRunObserver задаёт приёмник метрик проходов.
func WithRunObserver(o RunObserver) JanitorOption {
	return func(opts *JanitorOptions) { opts.Observer = o }
}

// Janitor периодически удаляет записи с истёкшим TTL.
type Janitor struct {
	sweepers []Sweeper
	logger   *log.Entry
	interval time.Duration
	observer RunObserver
}

// NewJanitor создаёт очистку для набора кэшей.
func NewJanitor(sweepers []Sweeper, options ...JanitorOption) *Janitor {
	opts := JanitorOptions{Interval: defaultSweepInterval}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "query-cache-janitor")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultSweepInterval
	}
	if opts.Observer == nil {
		opts.Observer = nopRunObserver{}
	}

	return &Janitor{
		sweepers: sweepers,
		logger:   logger,
		interval: opts.Interval,
		observer: opts.Observer,
	}
}

// Run запускает периодическую очистку до отмены ctx.
func (j *Janitor) Run(ctx context.Context) {
	if len(j.sweepers) == 0 {
		j.logger.Warn("query cache janitor is disabled: no caches")
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.SweepAll(time.Now())
		}
	}
}

// SweepAll проходит по всем кэшам и возвращает число удалённых записей.
func (j *Janitor) SweepAll(now time.Time) int {
	total := 0
	for _, s := range j.sweepers {
		removed := s.Sweep(now)
		total += removed
		if removed > 0 {
			j.logger.WithFields(log.Fields{
				"cache":   s.Name(),
				"evicted": removed,
			}).Info("query cache sweep completed")
		}
	}
	j.observer.JanitorRun("ok")
	return total
}
