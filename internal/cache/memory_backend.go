package cache

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"sync"
	"time"

	"stormlightlabs.org/cachedrpc/internal/cachevalue"
)

// shardCount is the number of independent lock+map shards in MemoryBackend.
// A power of two so that masking the hash is a single AND.
const shardCount = 32

type memoryShard struct {
	mu    sync.RWMutex
	items map[string]*cachevalue.Envelope
}

// MemoryBackend is the unbounded in-memory cache backend (spec.md §4.2): a
// concurrent hash map protected by fine-grained sharded locks, suitable
// when the working set fits in RAM and no persistence is needed.
type MemoryBackend struct {
	shards   [shardCount]*memoryShard
	reorgTTL int64
}

// NewMemoryBackend constructs a MemoryBackend with the given baseline
// reorg TTL in seconds.
func NewMemoryBackend(reorgTTL int64) *MemoryBackend {
	b := &MemoryBackend{reorgTTL: reorgTTL}
	for i := range b.shards {
		b.shards[i] = &memoryShard{items: make(map[string]*cachevalue.Envelope)}
	}
	return b
}

func (b *MemoryBackend) shardFor(key string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return b.shards[h.Sum32()&(shardCount-1)]
}

// GetReorgTTL implements Backend.
func (b *MemoryBackend) GetReorgTTL() int64 { return b.reorgTTL }

// Read implements Backend.
func (b *MemoryBackend) Read(_ context.Context, method, paramsKey string) (Result, error) {
	key := LocalKey(method, paramsKey)
	shard := b.shardFor(key)

	shard.mu.RLock()
	env, ok := shard.items[key]
	shard.mu.RUnlock()

	if !ok {
		return Result{FullKey: key}, nil
	}
	cloned := *env
	return Result{FullKey: key, Envelope: &cloned, Hit: true}, nil
}

// Write implements Backend.
func (b *MemoryBackend) Write(_ context.Context, method, paramsKey string, newEnvelope *cachevalue.Envelope, prior *cachevalue.Envelope) error {
	key := LocalKey(method, paramsKey)
	cachevalue.ApplyWriteBackPolicy(newEnvelope, b.reorgTTL, prior)

	shard := b.shardFor(key)
	shard.mu.Lock()
	shard.items[key] = newEnvelope
	shard.mu.Unlock()
	return nil
}

// Close implements Backend. MemoryBackend holds no external resources.
func (b *MemoryBackend) Close() error { return nil }

// deleteExpiredOlderThan is a test/maintenance hook; the memory backend does
// not run a background janitor since entries are only ever superseded or
// read, never actively evicted by wall-clock alone (freshness is judged at
// read time by the caller via Envelope.IsFresh).
func (b *MemoryBackend) deleteExpiredOlderThan(now time.Time, maxAge time.Duration) int {
	removed := 0
	cutoff := now.Add(-maxAge).Unix()
	for _, shard := range b.shards {
		shard.mu.Lock()
		for key, env := range shard.items {
			if env.LastModified < cutoff {
				delete(shard.items, key)
				removed++
			}
		}
		shard.mu.Unlock()
	}
	return removed
}

var _ Backend = (*MemoryBackend)(nil)

// marshalEnvelope is used by the Redis backend, whose wire form remains
// JSON, per spec.md §9.
func marshalEnvelope(env *cachevalue.Envelope) ([]byte, error) {
	return json.Marshal(env)
}

func unmarshalEnvelope(data []byte) (*cachevalue.Envelope, error) {
	var env cachevalue.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
