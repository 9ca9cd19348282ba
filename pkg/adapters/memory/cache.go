// Package memory provides in-process implementations of the cache and lock ports.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/hanconv/pkg/ports"
)

type entry struct {
	output  string
	expires time.Time
	stored  uint64
}

// Cache implements ports.ResultCache in memory.
// Safe for concurrent use. When full, the oldest entry is evicted.
type Cache struct {
	data       map[string]entry
	mu         sync.RWMutex
	ttl        time.Duration
	maxEntries int
	seq        uint64
	now        func() time.Time
}

// CacheOption configures the cache.
type CacheOption func(*Cache)

// WithTTL sets the lifetime of entries. Zero keeps them forever.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithMaxEntries bounds the number of entries. Zero means unbounded.
func WithMaxEntries(n int) CacheOption {
	return func(c *Cache) {
		c.maxEntries = n
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates a new in-memory result cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		data: make(map[string]entry),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached output or ports.ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	c.mu.RLock()
	e, ok := c.data[key]
	c.mu.RUnlock()

	if !ok {
		return "", ports.ErrCacheMiss
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		c.mu.Lock()
		if cur, ok := c.data[key]; ok && cur.stored == e.stored {
			delete(c.data, key)
		}
		c.mu.Unlock()
		return "", ports.ErrCacheMiss
	}
	return e.output, nil
}

// Set stores an output, evicting the oldest entry when the cache is full.
func (c *Cache) Set(ctx context.Context, key string, output string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	e := entry{output: output, stored: c.seq}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}

	if _, exists := c.data[key]; !exists && c.maxEntries > 0 && len(c.data) >= c.maxEntries {
		c.evictOldest()
	}
	c.data[key] = e
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func (c *Cache) evictOldest() {
	var (
		oldestKey string
		oldest    uint64
	)
	for k, e := range c.data {
		if oldestKey == "" || e.stored < oldest {
			oldestKey, oldest = k, e.stored
		}
	}
	delete(c.data, oldestKey)
}
