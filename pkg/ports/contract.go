package ports

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/hanconv/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunResultCacheContract runs a suite of tests to verify that a ResultCache
// implementation adheres to the interface contract.
func RunResultCacheContract(t *testing.T, cache ResultCache) {
	ctx := context.Background()
	req := domain.ConversionRequest{Text: "簡體字轉換測試 " + time.Now().Format(time.RFC3339Nano), Action: domain.ActionSimplify}
	key := CacheKey(req)

	t.Run("Miss", func(t *testing.T) {
		_, err := cache.Get(ctx, "missing-"+key)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("Set and Get", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, key, "简体字转换测试"))

		got, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "简体字转换测试", got)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, key, "second"))

		got, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "second", got)
	})

	t.Run("Preserves Whitespace", func(t *testing.T) {
		k := key + "-ws"
		require.NoError(t, cache.Set(ctx, k, "  padded\n"))

		got, err := cache.Get(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, "  padded\n", got)
	})
}

// RunLockerContract verifies mutual exclusion and release for a Locker.
func RunLockerContract(t *testing.T, locker Locker) {
	ctx := context.Background()
	key := "contract-" + time.Now().Format("20060102150405.000000000")

	t.Run("Lock and Unlock", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, key, time.Second)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))
	})

	t.Run("Second Lock Waits", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, key, 5*time.Second)
		require.NoError(t, err)

		short, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(short, key, time.Second)
		assert.Error(t, err, "lock must not be granted twice")

		require.NoError(t, unlock(ctx))

		again, err := locker.Lock(ctx, key, time.Second)
		require.NoError(t, err, "lock must be free after unlock")
		require.NoError(t, again(ctx))
	})

	t.Run("Concurrent Holders Are Serialised", func(t *testing.T) {
		var (
			mu      sync.Mutex
			holders int
			maxSeen int
			wg      sync.WaitGroup
		)
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, err := locker.Lock(ctx, key+"-c", 5*time.Second)
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				holders++
				if holders > maxSeen {
					maxSeen = holders
				}
				mu.Unlock()

				time.Sleep(10 * time.Millisecond)

				mu.Lock()
				holders--
				mu.Unlock()
				assert.NoError(t, unlock(ctx))
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, maxSeen)
	})
}
