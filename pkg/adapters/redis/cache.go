// Package redis provides Redis-backed implementations of the cache and lock
// ports, for hosts that share results or provisioning across machines.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/hanconv/pkg/ports"
)

// Cache implements ports.ResultCache using Redis strings.
type Cache struct {
	client backend.UniversalClient
	prefix string
	ttl    time.Duration
}

// Option configures the Redis cache.
type Option func(*Cache)

// WithTTL sets the expiration of cached outputs. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithPrefix sets the key prefix (default "hanconv:").
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// NewFromClient creates a cache using an existing client.
func NewFromClient(client backend.UniversalClient, opts ...Option) *Cache {
	c := &Cache{
		client: client,
		prefix: "hanconv:",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// New creates a cache connected to addr.
func New(addr, password string, db int, opts ...Option) *Cache {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

func (c *Cache) key(k string) string {
	return c.prefix + "result:" + k
}

// Get returns the cached output or ports.ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, backend.Nil) {
		return "", ports.ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

// Set stores an output with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, output string) error {
	if err := c.client.Set(ctx, c.key(key), output, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (c *Cache) Client() backend.UniversalClient {
	return c.client
}
