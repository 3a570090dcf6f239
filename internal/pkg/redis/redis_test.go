package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestGetMissingKey(t *testing.T) {
	c, _ := newTestClient(t)
	v, err := c.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestIncrWindow(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		n, err := c.IncrWindow(ctx, "rl:a", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}
	assert.InDelta(t, time.Minute.Seconds(), mr.TTL("rl:a").Seconds(), 1)

	mr.FastForward(2 * time.Minute)
	n, err := c.IncrWindow(ctx, "rl:a", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
