// Package querycache мемоизирует результаты запросов к Query API по ключу набора
// параметров: одинаковые запросы в полёте объединяются, успешные результаты
// хранятся до явной инвалидации (или TTL), ошибки не кэшируются.
package querycache

import (
	"context"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Причины вытеснения.
const (
	EvictTTL        = "ttl"
	EvictCapacity   = "capacity"
	EvictInvalidate = "invalidate"
)

// Observer принимает метрики кэша.
type Observer interface {
	CacheHit(cache string)
	CacheMiss(cache string)
	CacheShared(cache string)
	CacheLoadFailed(cache string)
	CacheEntries(cache string, n int)
	CacheEvicted(cache, reason string, n int)
}

type nopObserver struct{}

func (nopObserver) CacheHit(string)                  {}
func (nopObserver) CacheMiss(string)                 {}
func (nopObserver) CacheShared(string)               {}
func (nopObserver) CacheLoadFailed(string)           {}
func (nopObserver) CacheEntries(string, int)         {}
func (nopObserver) CacheEvicted(string, string, int) {}

// LoadFunc загружает значение при промахе.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Options задаёт параметры кэша.
type Options struct {
	Logger *log.Entry
	// TTL: срок жизни записи; ноль: записи не устаревают.
	TTL time.Duration
	// MaxEntries: предел числа записей; ноль: без ограничения.
	MaxEntries int
	Observer   Observer
	Now        func() time.Time
}

// Option настраивает Cache.
type Option func(*Options)

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) { opts.Logger = logger }
}

// WithTTL задаёт срок жизни записей.
func WithTTL(ttl time.Duration) Option {
	return func(opts *Options) { opts.TTL = ttl }
}

// WithMaxEntries ограничивает размер кэша; при переполнении вытесняется самая старая запись.
func WithMaxEntries(n int) Option {
	return func(opts *Options) { opts.MaxEntries = n }
}

// WithObserver задаёт приёмник метрик.
func WithObserver(o Observer) Option {
	return func(opts *Options) { opts.Observer = o }
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(opts *Options) { opts.Now = now }
}

type entry[T any] struct {
	value    T
	storedAt time.Time
}

// Cache: потокобезопасный мемоизирующий кэш.
type Cache[T any] struct {
	name       string
	logger     *log.Entry
	ttl        time.Duration
	maxEntries int
	observer   Observer
	now        func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]entry[T]
	// loads: ключи с загрузкой в полёте; stale=true, если ключ инвалидирован во время загрузки.
	loads map[string]*loadState
}

type loadState struct {
	stale bool
}

// New создаёт кэш с именем name (используется в метриках и логах).
func New[T any](name string, options ...Option) *Cache[T] {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "query-cache")
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TTL < 0 {
		opts.TTL = 0
	}
	if opts.MaxEntries < 0 {
		opts.MaxEntries = 0
	}

	return &Cache[T]{
		name:       name,
		logger:     opts.Logger.WithField("cache", name),
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		observer:   opts.Observer,
		now:        opts.Now,
		entries:    make(map[string]entry[T]),
		loads:      make(map[string]*loadState),
	}
}

// Name возвращает имя кэша.
func (c *Cache[T]) Name() string { return c.name }

// Get возвращает значение по ключу. При промахе вызывает load ровно один раз для всех
// одновременных вызовов с тем же ключом. Второй результат сообщает, взято ли значение из кэша.
// Загрузка не отменяется вместе с ctx вызывающего: её ограничивает таймаут клиента.
func (c *Cache[T]) Get(ctx context.Context, key string, load LoadFunc[T]) (T, bool, error) {
	var zero T
	if v, ok := c.lookup(key); ok {
		c.observer.CacheHit(c.name)
		return v, true, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		c.observer.CacheMiss(c.name)
		c.beginLoad(key)
		v, err := load(loadCtx)
		if err != nil {
			c.endLoad(key)
			c.observer.CacheLoadFailed(c.name)
			c.logger.WithError(err).WithField("key", key).Debug("query load failed, result not cached")
			return nil, err
		}
		c.store(key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.observer.CacheShared(c.name)
		}
		if res.Err != nil {
			return zero, false, res.Err
		}
		return res.Val.(T), false, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

// Peek возвращает значение без загрузки и учёта метрик.
func (c *Cache[T]) Peek(key string) (T, bool) {
	return c.lookup(key)
}

// Len возвращает число записей.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Invalidate удаляет запись по ключу. Загрузка этого ключа в полёте остаётся общей
// для ожидающих, но её результат не сохраняется.
func (c *Cache[T]) Invalidate(key string) bool {
	c.mu.Lock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	if st, loading := c.loads[key]; loading {
		st.stale = true
	}
	n := len(c.entries)
	c.mu.Unlock()

	if ok {
		c.observer.CacheEvicted(c.name, EvictInvalidate, 1)
	}
	c.observer.CacheEntries(c.name, n)
	return ok
}

// InvalidatePrefix удаляет все записи, ключ которых начинается с prefix.
func (c *Cache[T]) InvalidatePrefix(prefix string) int {
	return c.evict(EvictInvalidate, func(key string, _ entry[T]) bool {
		return strings.HasPrefix(key, prefix)
	})
}

// Purge удаляет все записи.
func (c *Cache[T]) Purge() int {
	return c.evict(EvictInvalidate, func(string, entry[T]) bool { return true })
}

// Sweep удаляет записи старше TTL. Без TTL ничего не делает.
func (c *Cache[T]) Sweep(now time.Time) int {
	if c.ttl <= 0 {
		return 0
	}
	return c.evict(EvictTTL, func(_ string, e entry[T]) bool {
		return now.Sub(e.storedAt) >= c.ttl
	})
}

func (c *Cache[T]) evict(reason string, match func(string, entry[T]) bool) int {
	c.mu.Lock()
	removed := 0
	for key, e := range c.entries {
		if match(key, e) {
			delete(c.entries, key)
			removed++
		}
	}
	if reason == EvictInvalidate {
		for key, st := range c.loads {
			if match(key, entry[T]{}) {
				st.stale = true
			}
		}
	}
	n := len(c.entries)
	c.mu.Unlock()

	c.observer.CacheEvicted(c.name, reason, removed)
	c.observer.CacheEntries(c.name, n)
	return removed
}

func (c *Cache[T]) lookup(key string) (T, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		var zero T
		return zero, false
	}
	if c.ttl > 0 && c.now().Sub(e.storedAt) >= c.ttl {
		var zero T
		return zero, false
	}
	return e.value, true
}

func (c *Cache[T]) beginLoad(key string) {
	c.mu.Lock()
	c.loads[key] = &loadState{}
	c.mu.Unlock()
}

func (c *Cache[T]) endLoad(key string) {
	c.mu.Lock()
	delete(c.loads, key)
	c.mu.Unlock()
}

// store сохраняет результат, если ключ не инвалидировали, пока шла загрузка.
func (c *Cache[T]) store(key string, v T) {
	c.mu.Lock()
	st := c.loads[key]
	delete(c.loads, key)
	if st != nil && st.stale {
		c.mu.Unlock()
		c.logger.WithField("key", key).Debug("cache invalidated during load, result dropped")
		return
	}
	evicted := 0
	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 {
		for len(c.entries) >= c.maxEntries {
			c.evictOldestLocked()
			evicted++
		}
	}
	c.entries[key] = entry[T]{value: v, storedAt: c.now()}
	n := len(c.entries)
	c.mu.Unlock()

	c.observer.CacheEvicted(c.name, EvictCapacity, evicted)
	c.observer.CacheEntries(c.name, n)
}

func (c *Cache[T]) evictOldestLocked() {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for key, e := range c.entries {
		if !found || e.storedAt.Before(oldestAt) {
			oldestKey, oldestAt, found = key, e.storedAt, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}
