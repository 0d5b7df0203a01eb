package provider_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stormlightlabs.org/cachedrpc/internal/provider"
)

func TestNextProviderRoundRobins(t *testing.T) {
	g := provider.NewGroup([]string{"a", "b", "c"}, time.Second)

	u1, ok := g.NextProvider()
	require.True(t, ok)
	u2, ok := g.NextProvider()
	require.True(t, ok)
	u3, ok := g.NextProvider()
	require.True(t, ok)
	u4, ok := g.NextProvider()
	require.True(t, ok)

	assert.Equal(t, []string{"a", "b", "c", "a"}, []string{u1, u2, u3, u4})
}

func TestNextProviderSkipsInactive(t *testing.T) {
	g := provider.NewGroup([]string{"a", "b"}, time.Minute)
	g.SetInactive("a")

	u, ok := g.NextProvider()
	require.True(t, ok)
	assert.Equal(t, "b", u)

	u, ok = g.NextProvider()
	require.True(t, ok)
	assert.Equal(t, "b", u)
}

func TestNextProviderAllInactiveReturnsFalse(t *testing.T) {
	g := provider.NewGroup([]string{"a", "b"}, time.Minute)
	g.SetInactive("a")
	g.SetInactive("b")

	_, ok := g.NextProvider()
	assert.False(t, ok)
}

func TestSetActiveClearsCooldown(t *testing.T) {
	g := provider.NewGroup([]string{"a"}, time.Minute)
	g.SetInactive("a")

	_, ok := g.NextProvider()
	assert.False(t, ok)

	g.SetActive("a")
	u, ok := g.NextProvider()
	require.True(t, ok)
	assert.Equal(t, "a", u)
}

func TestRetryTimeoutElapsedReactivates(t *testing.T) {
	g := provider.NewGroup([]string{"a"}, 10*time.Millisecond)
	g.SetInactive("a")

	time.Sleep(20 * time.Millisecond)

	u, ok := g.NextProvider()
	require.True(t, ok)
	assert.Equal(t, "a", u)
}

func TestChainIDRoundTrip(t *testing.T) {
	g := provider.NewGroup([]string{"a"}, time.Second)
	g.SetChainID("1")
	assert.Equal(t, "1", g.ChainID())
}
