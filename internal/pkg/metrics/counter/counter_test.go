package counter

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/TrackFox/internal/pkg/env"
)

const isolatedCounterTestRedisDB = 13

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := fmt.Sprintf("%s:%s", env.GetEnv("CACHE_HOST", "localhost"), env.GetEnv("CACHE_PORT", "6379"))
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       isolatedCounterTestRedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Skipping Redis-dependent test: %s unreachable (%v)", addr, err)
	}
	require.NoError(t, client.FlushDB(context.Background()).Err())
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}

func TestIncrAndSnapshot(t *testing.T) {
	c := New(newTestClient(t))
	ctx := context.Background()

	require.NoError(t, c.Incr(ctx, "platform_a", "accepted"))
	require.NoError(t, c.Incr(ctx, "platform_a", "accepted"))
	require.NoError(t, c.Incr(ctx, "platform_a", "invalid_signature"))
	require.NoError(t, c.Incr(ctx, "platform_c", "duplicate"))

	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]int64{
		"platform_a": {"accepted": 2, "invalid_signature": 1},
		"platform_c": {"duplicate": 1},
	}, snap)

	require.NoError(t, c.Reset(ctx))
	snap, err = c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestNilCounterIsNoop(t *testing.T) {
	var c *Counter
	ctx := context.Background()

	assert.NoError(t, c.Incr(ctx, "platform_a", "accepted"))
	snap, err := c.Snapshot(ctx)
	assert.NoError(t, err)
	assert.Empty(t, snap)
	assert.NoError(t, New(nil).Reset(ctx))
}
