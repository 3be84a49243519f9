package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConsoleMetrics содержит метрики кэша запросов, upstream и HTTP-слоя консоли.
type ConsoleMetrics struct {
	// Кэш запросов
	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	cacheShared   *prometheus.CounterVec
	cacheFailures *prometheus.CounterVec
	cacheEvicted  *prometheus.CounterVec
	cacheEntries  *prometheus.GaugeVec

	// Очистка кэша
	janitorRuns *prometheus.CounterVec

	// Upstream Query API
	upstreamDuration *prometheus.HistogramVec

	// HTTP
	httpDuration *prometheus.HistogramVec

	// Kafka
	auditPublished     *prometheus.CounterVec
	invalidationsTotal *prometheus.CounterVec
}

// NewConsoleMetrics регистрирует метрики в глобальном реестре.
func NewConsoleMetrics() *ConsoleMetrics {
	return NewConsoleMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewConsoleMetricsWithRegisterer регистрирует метрики в указанном реестре.
func NewConsoleMetricsWithRegisterer(registerer prometheus.Registerer) *ConsoleMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ConsoleMetrics{
		cacheHits: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_query_cache_hits_total",
			Help: "Total number of query cache hits",
		}, []string{"cache"})),
		cacheMisses: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_query_cache_misses_total",
			Help: "Total number of query cache misses that triggered an upstream load",
		}, []string{"cache"})),
		cacheShared: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_query_cache_shared_total",
			Help: "Total number of callers served by a load shared with concurrent callers",
		}, []string{"cache"})),
		cacheFailures: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_query_cache_load_failures_total",
			Help: "Total number of failed loads (never memoized)",
		}, []string{"cache"})),
		cacheEvicted: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_query_cache_evicted_total",
			Help: "Total number of evicted cache entries",
		}, []string{"cache", "reason"})),
		cacheEntries: register(registerer, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "console_query_cache_entries",
			Help: "Current number of cached query results",
		}, []string{"cache"})),
		janitorRuns: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_query_cache_janitor_runs_total",
			Help: "Total number of cache janitor sweeps by status",
		}, []string{"status"})),
		upstreamDuration: register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_upstream_request_duration_seconds",
			Help:    "Duration of Query API requests in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"entity", "outcome"})),
		httpDuration: register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_http_request_duration_seconds",
			Help:    "Duration of console HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"})),
		auditPublished: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_audit_events_total",
			Help: "Total number of audit events by delivery result",
		}, []string{"type", "result"})),
		invalidationsTotal: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_cache_invalidations_total",
			Help: "Total number of cache invalidations by source",
		}, []string{"source"})),
	}
}

func register[C prometheus.Collector](registerer prometheus.Registerer, collector C) C {
	if err := registerer.Register(collector); err != nil {
		var alreadyRegistered prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegistered) {
			existing, ok := alreadyRegistered.ExistingCollector.(C)
			if !ok {
				panic(fmt.Sprintf("collector already registered with unexpected type %T", alreadyRegistered.ExistingCollector))
			}
			return existing
		}
		panic(fmt.Sprintf("register collector: %v", err))
	}
	return collector
}

// CacheHit учитывает попадание в кэш.
func (m *ConsoleMetrics) CacheHit(cache string) { m.cacheHits.WithLabelValues(cache).Inc() }

// CacheMiss учитывает промах, приведший к загрузке.
func (m *ConsoleMetrics) CacheMiss(cache string) { m.cacheMisses.WithLabelValues(cache).Inc() }

// CacheShared учитывает вызов, присоединившийся к загрузке в полёте.
func (m *ConsoleMetrics) CacheShared(cache string) { m.cacheShared.WithLabelValues(cache).Inc() }

// CacheLoadFailed учитывает неудачную загрузку.
func (m *ConsoleMetrics) CacheLoadFailed(cache string) { m.cacheFailures.WithLabelValues(cache).Inc() }

// CacheEntries выставляет текущий размер кэша.
func (m *ConsoleMetrics) CacheEntries(cache string, n int) {
	m.cacheEntries.WithLabelValues(cache).Set(float64(n))
}

// CacheEvicted учитывает вытеснение записей.
func (m *ConsoleMetrics) CacheEvicted(cache, reason string, n int) {
	if n <= 0 {
		return
	}
	m.cacheEvicted.WithLabelValues(cache, reason).Add(float64(n))
}

// JanitorRun учитывает проход очистки кэша.
func (m *ConsoleMetrics) JanitorRun(status string) { m.janitorRuns.WithLabelValues(status).Inc() }

// ObserveUpstream записывает длительность запроса к Query API.
func (m *ConsoleMetrics) ObserveUpstream(entity, outcome string, d time.Duration) {
	m.upstreamDuration.WithLabelValues(entity, outcome).Observe(d.Seconds())
}

// ObserveHTTP записывает длительность HTTP-запроса к консоли.
func (m *ConsoleMetrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	m.httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}

// AuditPublished учитывает результат публикации события аудита.
func (m *ConsoleMetrics) AuditPublished(eventType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.auditPublished.WithLabelValues(eventType, result).Inc()
}

// Invalidated учитывает инвалидацию кэша (source: http, kafka).
func (m *ConsoleMetrics) Invalidated(source string) {
	m.invalidationsTotal.WithLabelValues(source).Inc()
}
