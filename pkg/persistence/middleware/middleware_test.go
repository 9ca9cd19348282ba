package middleware_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/hanconv/pkg/adapters/memory"
	"github.com/aretw0/hanconv/pkg/domain"
	"github.com/aretw0/hanconv/pkg/persistence/middleware"
	"github.com/aretw0/hanconv/pkg/ports"
)

func domainRequest(text string) domain.ConversionRequest {
	return domain.ConversionRequest{Text: text, Action: domain.ActionSimplify}
}

func TestChain_ContractHolds(t *testing.T) {
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: bytes.Repeat([]byte{7}, 32)})
	require.NoError(t, err)

	ports.RunResultCacheContract(t, middleware.Chain(memory.NewCache(),
		middleware.NewLoggingMiddleware(slog.New(slog.DiscardHandler)),
		enc,
	))
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cache := middleware.NewLoggingMiddleware(logger)(memory.NewCache())
	ctx := context.Background()
	key := ports.CacheKey(domainRequest("簡體字"))

	_, err := cache.Get(ctx, key)
	assert.ErrorIs(t, err, ports.ErrCacheMiss)
	require.NoError(t, cache.Set(ctx, key, "简体字"))
	out, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "简体字", out)

	logs := buf.String()
	assert.Contains(t, logs, "cache miss")
	assert.Contains(t, logs, "cache set")
	assert.Contains(t, logs, "cache hit")
	assert.Contains(t, logs, "key="+key[:12])
	assert.NotContains(t, logs, key, "full keys are not logged")
}
