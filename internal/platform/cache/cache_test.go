package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyIsStable(t *testing.T) {
	assert.Equal(t, Key("Pune", "3000-5000", ""), Key(" pune", "3000-5000 ", ""))
	assert.NotEqual(t, Key("Pune", "", ""), Key("", "Pune", ""))
	assert.Contains(t, Key("x"), keyPrefix)
}

func TestListingCacheAgainstRedis(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	c := New(client, time.Minute, nil)
	key := Key("coep", "", "")

	c.Set(ctx, key, []byte(`[]`))
	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, `[]`, string(got))

	require.NoError(t, c.Invalidate(ctx))
	_, ok = c.Get(ctx, key)
	assert.False(t, ok)
}
