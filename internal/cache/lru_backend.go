package cache

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"stormlightlabs.org/cachedrpc/internal/cachevalue"
)

// LRUBackend is the bounded, capacity-limited cache backend (spec.md §4.2):
// a single mutex guards a hashicorp/golang-lru order-tracked map. Eviction
// is least-recently-used on both read and write; capacity is configured
// once and immutable thereafter.
type LRUBackend struct {
	mu       sync.Mutex
	cache    *lru.Cache[string, *cachevalue.Envelope]
	reorgTTL int64
}

// NewLRUBackend constructs an LRUBackend with the given item capacity and
// baseline reorg TTL in seconds.
func NewLRUBackend(maxItems int, reorgTTL int64) (*LRUBackend, error) {
	if maxItems <= 0 {
		maxItems = 1
	}
	c, err := lru.New[string, *cachevalue.Envelope](maxItems)
	if err != nil {
		return nil, err
	}
	return &LRUBackend{cache: c, reorgTTL: reorgTTL}, nil
}

// GetReorgTTL implements Backend.
func (b *LRUBackend) GetReorgTTL() int64 { return b.reorgTTL }

// Read implements Backend.
func (b *LRUBackend) Read(_ context.Context, method, paramsKey string) (Result, error) {
	key := LocalKey(method, paramsKey)

	b.mu.Lock()
	env, ok := b.cache.Get(key)
	b.mu.Unlock()

	if !ok {
		return Result{FullKey: key}, nil
	}
	cloned := *env
	return Result{FullKey: key, Envelope: &cloned, Hit: true}, nil
}

// Write implements Backend.
func (b *LRUBackend) Write(_ context.Context, method, paramsKey string, newEnvelope *cachevalue.Envelope, prior *cachevalue.Envelope) error {
	key := LocalKey(method, paramsKey)
	cachevalue.ApplyWriteBackPolicy(newEnvelope, b.reorgTTL, prior)

	b.mu.Lock()
	b.cache.Add(key, newEnvelope)
	b.mu.Unlock()
	return nil
}

// Close implements Backend. LRUBackend holds no external resources.
func (b *LRUBackend) Close() error { return nil }

// Len reports the current number of cached entries; used by tests to
// confirm the capacity bound is enforced.
func (b *LRUBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cache.Len()
}

var _ Backend = (*LRUBackend)(nil)
