// Package testutils provides testcontainers setup shared by integration tests.
package testutils

import (
	"context"
	"fmt"
	"testing"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisContainer wraps a testcontainers Redis instance with its connection URL.
type RedisContainer struct {
	Container *tcredis.RedisContainer
	URL       string
}

// NewRedisContainer starts a Redis testcontainer and returns its connection URL.
func NewRedisContainer(ctx context.Context) (*RedisContainer, error) {
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return nil, fmt.Errorf("failed to start redis container: %w", err)
	}

	url, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &RedisContainer{Container: container, URL: url}, nil
}

// Terminate stops and removes the container.
func (c *RedisContainer) Terminate(ctx context.Context) error {
	if c.Container != nil {
		return c.Container.Terminate(ctx)
	}
	return nil
}

// SetupTestRedis starts a Redis testcontainer and returns its URL with a
// cleanup function, skipping the calling test in short mode.
func SetupTestRedis(t *testing.T) (string, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx := context.Background()
	rc, err := NewRedisContainer(ctx)
	if err != nil {
		t.Fatalf("failed to create redis container: %v", err)
	}

	cleanup := func() {
		if err := rc.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	}

	return rc.URL, cleanup
}
