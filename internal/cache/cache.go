// Package cache is a TTL cache with in-flight request de-duplication.
//
// Entries older than their TTL are ignored on read but stay in place until
// overwritten, deleted or evicted by the capacity bound. Concurrent Fetch
// calls for the same key share a single producer call.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"inkbook/internal/common/logger"
	"inkbook/internal/common/metrics"

	"golang.org/x/sync/singleflight"
)

type entry struct {
	value    any
	storedAt time.Time
	ttl      time.Duration
}

func (e *entry) fresh(now time.Time) bool {
	return now.Sub(e.storedAt) <= e.ttl
}

// flight tracks one running producer. A doomed flight still answers its
// waiters but does not commit its result.
type flight struct {
	doomed bool
}

// Stats is a point-in-time snapshot.
type Stats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Entries  int   `json:"entries"`
	InFlight int   `json:"inFlight"`
}

type Cache struct {
	name       string
	now        func() time.Time
	maxEntries int
	defaultTTL time.Duration
	log        logger.Logger

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*entry
	flights map[string]*flight
	hits    int64
	misses  int64
}

type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithMaxEntries bounds the entry count; 0 means unbounded.
func WithMaxEntries(n int) Option {
	return func(c *Cache) { c.maxEntries = n }
}

// WithDefaultTTL applies when Set is given a non-positive TTL. Non-positive
// values here keep the five minute default.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// WithName sets the metrics label.
func WithName(name string) Option {
	return func(c *Cache) { c.name = name }
}

func New(opts ...Option) *Cache {
	c := &Cache{
		name:       "default",
		now:        time.Now,
		defaultTTL: 5 * time.Minute,
		entries:    make(map[string]*entry),
		flights:    make(map[string]*flight),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.ForComponent(c.log, "cache")
	return c
}

// Get returns a fresh value for key. Absent and stale entries count as misses.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !e.fresh(c.now()) {
		c.misses++
		metrics.CacheMisses.WithLabelValues(c.name).Inc()
		return nil, false
	}
	c.hits++
	metrics.CacheHits.WithLabelValues(c.name).Inc()
	return e.value, true
}

// peek is Get without touching the counters.
func (c *Cache) peek(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.fresh(c.now()) {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key. A non-positive ttl uses the default TTL.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value, ttl)
}

func (c *Cache) setLocked(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = &entry{value: value, storedAt: c.now(), ttl: ttl}
}

func (c *Cache) evictOldestLocked() {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for k, e := range c.entries {
		if !found || e.storedAt.Before(oldestAt) {
			oldestKey, oldestAt, found = k, e.storedAt, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
		c.log.Debug("evicted cache entry", map[string]interface{}{"key": oldestKey})
	}
}

// Del removes key and detaches any running producer for it.
func (c *Cache) Del(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.forgetFlightLocked(key)
}

// DeletePrefix removes every entry and running producer whose key starts
// with prefix and returns the number of entries removed.
func (c *Cache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			removed++
		}
	}
	for k := range c.flights {
		if strings.HasPrefix(k, prefix) {
			c.forgetFlightLocked(k)
		}
	}
	return removed
}

// ClearAll drops every entry and every in-flight record. Producers already
// running finish for their own waiters, but their results are not cached.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	for k := range c.flights {
		c.forgetFlightLocked(k)
	}
	c.log.Info("cache cleared", nil)
}

func (c *Cache) forgetFlightLocked(key string) {
	f, ok := c.flights[key]
	if !ok {
		return
	}
	f.doomed = true
	delete(c.flights, key)
	c.group.Forget(key)
}

// Stats never changes cache state.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:     c.hits,
		Misses:   c.misses,
		Entries:  len(c.entries),
		InFlight: len(c.flights),
	}
}

// Fetch returns the fresh cached value for key or runs producer to obtain
// it. Concurrent callers for the same key share one producer call. A
// successful result is cached for ttl; an error is returned to every waiter
// and nothing is cached.
//
// The producer runs detached from ctx cancellation so that a caller giving up
// does not fail the other waiters; that caller gets ctx.Err() immediately and
// the result is still cached.
func Fetch[T any](ctx context.Context, c *Cache, key string, producer func(context.Context) (T, error), ttl time.Duration) (T, error) {
	var zero T

	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	produceCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if v, ok := c.peek(key); ok {
			if typed, ok := v.(T); ok {
				return typed, nil
			}
		}

		f := &flight{}
		c.mu.Lock()
		c.flights[key] = f
		c.mu.Unlock()
		metrics.CacheProducerCalls.WithLabelValues(c.name).Inc()

		v, err := safeProduce(produceCtx, producer)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.flights[key] == f {
			delete(c.flights, key)
		}
		if err != nil {
			return nil, err
		}
		if !f.doomed {
			c.setLocked(key, v, ttl)
		}
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		typed, _ := res.Val.(T)
		return typed, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func safeProduce[T any](ctx context.Context, producer func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cache producer panicked: %v", r)
		}
	}()
	return producer(ctx)
}
