// Package cache implements the pluggable cache backend abstraction (C2):
// a uniform read/write contract shared by an unbounded in-memory map, a
// bounded LRU, and a Redis-backed store, each applying the reorg-aware
// write-back policy from internal/cachevalue internally so callers never
// duplicate that decision.
package cache

import (
	"context"
	"errors"
	"fmt"

	"stormlightlabs.org/cachedrpc/internal/cachevalue"
)

// ErrUnavailable is returned by Read/Write when the backend's underlying
// store could not be reached (I/O failure, deserialization failure). The
// pipeline treats this as an "uncacheable miss", per spec.md §4.2 and §7.
var ErrUnavailable = errors.New("cache: backend unavailable")

// Result is the outcome of a Read: either a Hit carrying a fresh or stale
// envelope, or a Miss.
type Result struct {
	FullKey  string
	Envelope *cachevalue.Envelope // nil on Miss
	Hit      bool
}

// Backend is the contract shared by every concrete cache store (spec.md
// §4.2). Implementations apply the §4.1 write-back policy inside Write so
// that callers pass only the freshly-fetched envelope and, if known, the
// previously-stored (expired) one.
type Backend interface {
	// GetReorgTTL returns the backend's configured baseline reorg TTL in
	// seconds.
	GetReorgTTL() int64

	// Read looks up the entry for method+paramsKey. It never fails
	// silently: an I/O or deserialization error is returned as a non-nil
	// error wrapping ErrUnavailable.
	Read(ctx context.Context, method, paramsKey string) (Result, error)

	// Write stores newEnvelope for method+paramsKey, applying the write-back
	// policy using prior (which may be nil for a true miss).
	Write(ctx context.Context, method, paramsKey string, newEnvelope *cachevalue.Envelope, prior *cachevalue.Envelope) error

	// Close releases any resources held by the backend (connection pools,
	// background goroutines).
	Close() error
}

// LocalKey formats the key used by process-local backends (spec.md §4.2):
// "{method}:{params_key}".
func LocalKey(method, paramsKey string) string {
	return fmt.Sprintf("%s:%s", method, paramsKey)
}

// RedisKey formats the key used by the Redis backend, chain-prefixed to
// avoid cross-chain collision in a shared store: "{chain_id}:{method}:{params_key}".
func RedisKey(chainID, method, paramsKey string) string {
	return fmt.Sprintf("%s:%s:%s", chainID, method, paramsKey)
}
