package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheSetGetDelete(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	defer c.Close()
	ctx := context.Background()

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)

	value := []byte("hello")
	require.NoError(t, c.Set(ctx, "a", value, time.Minute))
	value[0] = 'j'

	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	require.NoError(t, c.Delete(ctx, "a"))
	_, err = c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("x"), -time.Second))
	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)

	c.removeExpired()
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCacheGetOrSet(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	defer c.Close()
	ctx := context.Background()

	calls := 0
	fill := func() ([]byte, error) {
		calls++
		return []byte("v"), nil
	}

	for i := 0; i < 3; i++ {
		got, err := c.GetOrSet(ctx, "k", time.Minute, fill)
		require.NoError(t, err)
		assert.Equal(t, "v", string(got))
	}
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	_, err := c.GetOrSet(ctx, "other", time.Minute, func() ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, c.Len())
}

func TestRedisCacheKeyPrefix(t *testing.T) {
	c := newRedisCache(nil, "")
	assert.Equal(t, "roulette:inventory:42", c.key("42"))

	c = newRedisCache(nil, "custom")
	assert.Equal(t, "custom:42", c.key("42"))
}

func TestMemoryCachePing(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	defer c.Close()
	assert.NoError(t, c.Ping(context.Background()))
}
