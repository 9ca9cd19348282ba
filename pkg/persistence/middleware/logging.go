package middleware

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/hanconv/pkg/ports"
)

type loggingMiddleware struct {
	next   ports.ResultCache
	logger *slog.Logger
}

// NewLoggingMiddleware logs cache traffic at debug level and backend
// failures at warn. Misses are not failures.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next ports.ResultCache) ports.ResultCache {
		return &loggingMiddleware{next: next, logger: logger}
	}
}

func (m *loggingMiddleware) Get(ctx context.Context, key string) (string, error) {
	out, err := m.next.Get(ctx, key)
	switch {
	case err == nil:
		m.logger.DebugContext(ctx, "cache hit", "key", short(key))
	case errors.Is(err, ports.ErrCacheMiss):
		m.logger.DebugContext(ctx, "cache miss", "key", short(key))
	default:
		m.logger.WarnContext(ctx, "cache get failed", "key", short(key), "error", err)
	}
	return out, err
}

func (m *loggingMiddleware) Set(ctx context.Context, key, output string) error {
	err := m.next.Set(ctx, key, output)
	if err != nil {
		m.logger.WarnContext(ctx, "cache set failed", "key", short(key), "error", err)
		return err
	}
	m.logger.DebugContext(ctx, "cache set", "key", short(key), "bytes", len(output))
	return nil
}

func short(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
