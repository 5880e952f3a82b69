package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestCacheNilPassesThrough(t *testing.T) {
	var c *Cache
	calls := 0
	got, err := c.ActiveList(context.Background(), zerolog.Nop(), "uk", func(context.Context) ([]Product, error) {
		calls++
		return []Product{{ID: "1"}}, nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 1, calls)
	require.NoError(t, c.Forget(context.Background(), "uk"))
}

func TestCacheReloadsCorruptEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, mr.Set(activeListKey("uk"), "{not json"))

	c := NewCache(client, time.Minute)
	got, err := c.ActiveList(context.Background(), zerolog.Nop(), "uk", func(context.Context) ([]Product, error) {
		return []Product{{ID: "7", Name: "Tea"}}, nil
	})
	require.NoError(t, err)
	require.Equal(t, "7", got[0].ID)

	raw, err := mr.Get(activeListKey("uk"))
	require.NoError(t, err)
	require.Contains(t, raw, `"Tea"`)
}

func TestCacheDoesNotStoreLoadErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewCache(client, time.Minute)
	_, err := c.ActiveList(context.Background(), zerolog.Nop(), "eu", func(context.Context) ([]Product, error) {
		return nil, errors.New("store down")
	})
	require.EqualError(t, err, "store down")
	require.False(t, mr.Exists(activeListKey("eu")))
}

func TestCacheForgetBumpsGeneration(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewCache(client, time.Minute)
	require.NoError(t, c.Forget(context.Background(), "uk", "eu"))
	require.NoError(t, c.Forget(context.Background(), "uk"))

	gen, err := mr.Get(generationKey("uk"))
	require.NoError(t, err)
	require.Equal(t, "2", gen)
	gen, err = mr.Get(generationKey("eu"))
	require.NoError(t, err)
	require.Equal(t, "1", gen)
}
