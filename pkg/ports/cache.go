package ports

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/aretw0/hanconv/pkg/domain"
)

// ErrCacheMiss is returned by ResultCache.Get when no entry exists.
var ErrCacheMiss = errors.New("cache miss")

// ResultCache stores successful conversion outputs keyed by request.
type ResultCache interface {
	// Get returns the cached output or ErrCacheMiss.
	Get(ctx context.Context, key string) (string, error)

	// Set stores an output.
	Set(ctx context.Context, key string, output string) error
}

// CacheKey derives a stable key for a request.
func CacheKey(req domain.ConversionRequest) string {
	h := sha256.New()
	h.Write([]byte(req.Action))
	h.Write([]byte{0})
	h.Write([]byte(req.Text))
	return hex.EncodeToString(h.Sum(nil))
}
