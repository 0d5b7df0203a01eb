package cache_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stormlightlabs.org/cachedrpc/internal/cache"
	"stormlightlabs.org/cachedrpc/internal/cachevalue"
)

func TestLRUBackendEvictsOldestBeyondCapacity(t *testing.T) {
	b, err := cache.NewLRUBackend(2, 30)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		env := cachevalue.New(json.RawMessage(`"v"`), 30, 0)
		require.NoError(t, b.Write(ctx, "m", fmt.Sprintf("k%d", i), env, nil))
	}

	assert.Equal(t, 2, b.Len())

	res, err := b.Read(ctx, "m", "k0")
	require.NoError(t, err)
	assert.False(t, res.Hit, "oldest key should have been evicted")

	res, err = b.Read(ctx, "m", "k2")
	require.NoError(t, err)
	assert.True(t, res.Hit)
}

func TestLRUBackendReadRefreshesRecency(t *testing.T) {
	b, err := cache.NewLRUBackend(2, 30)
	require.NoError(t, err)
	ctx := context.Background()

	env0 := cachevalue.New(json.RawMessage(`"v0"`), 30, 0)
	require.NoError(t, b.Write(ctx, "m", "k0", env0, nil))
	env1 := cachevalue.New(json.RawMessage(`"v1"`), 30, 0)
	require.NoError(t, b.Write(ctx, "m", "k1", env1, nil))

	_, err = b.Read(ctx, "m", "k0")
	require.NoError(t, err)

	env2 := cachevalue.New(json.RawMessage(`"v2"`), 30, 0)
	require.NoError(t, b.Write(ctx, "m", "k2", env2, nil))

	res, err := b.Read(ctx, "m", "k1")
	require.NoError(t, err)
	assert.False(t, res.Hit, "k1 should be evicted as least recently used")

	res, err = b.Read(ctx, "m", "k0")
	require.NoError(t, err)
	assert.True(t, res.Hit)
}
