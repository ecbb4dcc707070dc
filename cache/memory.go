package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryCache is a process-local [Cache]. It is safe for concurrent use.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// MemoryOption configures a [MemoryCache].
type MemoryOption func(*MemoryCache)

// WithClock replaces the wall clock, which lets tests move across window boundaries.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// lookup returns the live entry for key. Expired entries are removed.
// Callers must hold c.mu.
func (c *MemoryCache) lookup(key string, now time.Time) (memoryEntry, bool) {
	e, ok := c.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if e.expired(now) {
		delete(c.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (c *MemoryCache) Get(_ context.Context, key, def string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key, c.now())
	if !ok {
		return def, nil
	}
	return e.value, nil
}

func (c *MemoryCache) Put(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}

func (c *MemoryCache) Forget(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// Attempt holds the cache mutex across read, compare and write, which makes
// it atomic with respect to every other call on the same cache.
func (c *MemoryCache) Attempt(_ context.Context, key string, max int64, window time.Duration) (int64, bool, error) {
	if max <= 0 {
		return 0, false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	e, ok := c.lookup(key, now)

	var current int64
	if ok {
		n, err := strconv.ParseInt(e.value, 10, 64)
		if err == nil && n > 0 {
			current = n
		}
	}

	if current >= max {
		return current, false, nil
	}

	current++
	if !ok || e.expiresAt.IsZero() {
		e.expiresAt = now.Add(window)
	}
	e.value = strconv.FormatInt(current, 10)
	c.entries[key] = e

	return current, true, nil
}

// Len reports the number of live entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			continue
		}
		n++
	}
	return n
}
