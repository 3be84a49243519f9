package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/atomic"
)

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type pathReport struct {
	Calls         int64            `json:"calls"`
	Success       int64            `json:"success"`
	Failed        int64            `json:"failed"`
	ErrorRate     float64          `json:"error_rate"`
	CacheHits     int64            `json:"cache_hits"`
	CacheHitRatio float64          `json:"cache_hit_ratio"`
	Codes         map[string]int64 `json:"codes"`
	LatencyMs     latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt       time.Time             `json:"started_at"`
	DurationSeconds float64               `json:"duration_seconds"`
	TotalRequests   int64                 `json:"total_requests"`
	Failed          int64                 `json:"failed"`
	ErrorRate       float64               `json:"error_rate"`
	RPS             float64               `json:"rps"`
	LatencyMs       latencySummary        `json:"latency_ms"`
	Paths           map[string]pathReport `json:"paths"`
}

type pathStats struct {
	calls     int64
	success   int64
	failed    int64
	cacheHits int64
	codes     map[string]int64
	latencies []float64
}

type collector struct {
	mu    sync.Mutex
	paths map[string]*pathStats
}

func newCollector() *collector {
	return &collector{paths: make(map[string]*pathStats)}
}

// record учитывает один запрос; code=0: транспортная ошибка.
func (c *collector) record(path string, latency time.Duration, code int, cached bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.paths[path]
	if !ok {
		stats = &pathStats{codes: make(map[string]int64)}
		c.paths[path] = stats
	}

	stats.calls++
	if code >= 200 && code < 400 {
		stats.success++
	} else {
		stats.failed++
	}
	if cached {
		stats.cacheHits++
	}
	label := "transport_error"
	if code > 0 {
		label = fmt.Sprintf("%d", code)
	}
	stats.codes[label]++
	stats.latencies = append(stats.latencies, float64(latency)/float64(time.Millisecond))
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Paths:           make(map[string]pathReport, len(c.paths)),
	}

	var all []float64
	for path, stats := range c.paths {
		codesCopy := make(map[string]int64, len(stats.codes))
		for code, count := range stats.codes {
			codesCopy[code] = count
		}
		result.Paths[path] = pathReport{
			Calls:         stats.calls,
			Success:       stats.success,
			Failed:        stats.failed,
			ErrorRate:     ratio(stats.failed, stats.calls),
			CacheHits:     stats.cacheHits,
			CacheHitRatio: ratio(stats.cacheHits, stats.calls),
			Codes:         codesCopy,
			LatencyMs:     buildLatencySummary(stats.latencies),
		}
		result.TotalRequests += stats.calls
		result.Failed += stats.failed
		all = append(all, stats.latencies...)
	}
	result.ErrorRate = ratio(result.Failed, result.TotalRequests)
	result.LatencyMs = buildLatencySummary(all)
	if duration > 0 {
		result.RPS = float64(result.TotalRequests) / duration.Seconds()
	}
	return result
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(cleanPath, strings.NewReader(string(data)+"\n"))
}

func printReport(out io.Writer, result report, cfg config) {
	_, _ = fmt.Fprintln(out, "Load test summary")
	_, _ = fmt.Fprintf(out, "target=%s run=%s total=%d failed=%d error_rate=%.4f\n",
		cfg.target, runTarget(cfg), result.TotalRequests, result.Failed, result.ErrorRate)
	_, _ = fmt.Fprintf(out, "duration=%.2fs rps=%.2f\n", result.DurationSeconds, result.RPS)
	_, _ = fmt.Fprintf(out, "latency ms: min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		result.LatencyMs.Min, result.LatencyMs.Avg, result.LatencyMs.P50,
		result.LatencyMs.P95, result.LatencyMs.P99, result.LatencyMs.Max)

	paths := make([]string, 0, len(result.Paths))
	for path := range result.Paths {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		stats := result.Paths[path]
		_, _ = fmt.Fprintf(out, "%s: calls=%d failed=%d cache_hit_ratio=%.2f p95=%.2fms\n",
			path, stats.Calls, stats.Failed, stats.CacheHitRatio, stats.LatencyMs.P95)
	}
}

func runTarget(cfg config) string {
	if cfg.duration <= 0 {
		return fmt.Sprintf("count:%d", cfg.total)
	}
	if cfg.totalSet {
		return fmt.Sprintf("duration:%s,max-total:%d", cfg.duration, cfg.total)
	}
	return fmt.Sprintf("duration:%s", cfg.duration)
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, value := range sorted {
		sum += value
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

// percentile: линейная интерполяция по отсортированной выборке.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

func ratio(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total)
}
