package cache_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stormlightlabs.org/cachedrpc/internal/cache"
	"stormlightlabs.org/cachedrpc/internal/cachevalue"
)

func TestMemoryBackendMissThenWriteThenHit(t *testing.T) {
	b := cache.NewMemoryBackend(30)
	ctx := context.Background()

	res, err := b.Read(ctx, "eth_chainId", "static")
	require.NoError(t, err)
	assert.False(t, res.Hit)

	env := cachevalue.New(json.RawMessage(`"0x1"`), 30, 0)
	require.NoError(t, b.Write(ctx, "eth_chainId", "static", env, nil))

	res, err = b.Read(ctx, "eth_chainId", "static")
	require.NoError(t, err)
	require.True(t, res.Hit)
	assert.Equal(t, json.RawMessage(`"0x1"`), res.Envelope.Data)
}

func TestMemoryBackendKeysAreMethodScoped(t *testing.T) {
	b := cache.NewMemoryBackend(30)
	ctx := context.Background()

	env := cachevalue.New(json.RawMessage(`"a"`), 30, 0)
	require.NoError(t, b.Write(ctx, "eth_getBalance", "x", env, nil))

	res, err := b.Read(ctx, "eth_getCode", "x")
	require.NoError(t, err)
	assert.False(t, res.Hit)
}

func TestMemoryBackendWriteAppliesBaselinePolicy(t *testing.T) {
	b := cache.NewMemoryBackend(42)
	ctx := context.Background()

	env := cachevalue.New(json.RawMessage(`"a"`), 999, 0)
	require.NoError(t, b.Write(ctx, "m", "k", env, nil))

	res, err := b.Read(ctx, "m", "k")
	require.NoError(t, err)
	assert.Equal(t, int64(42), res.Envelope.ReorgTTL)
}
