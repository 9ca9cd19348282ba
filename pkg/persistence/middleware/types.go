// Package middleware decorates a ports.ResultCache, e.g. to encrypt
// converted text before it reaches a shared backend.
package middleware

import "github.com/aretw0/hanconv/pkg/ports"

// Middleware allows wrapping a ResultCache to add behavior.
type Middleware func(ports.ResultCache) ports.ResultCache

// Chain applies mws so that the first one is the outermost.
func Chain(cache ports.ResultCache, mws ...Middleware) ports.ResultCache {
	for i := len(mws) - 1; i >= 0; i-- {
		cache = mws[i](cache)
	}
	return cache
}
