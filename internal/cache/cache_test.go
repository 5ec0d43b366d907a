package cache_test

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powdertracker/powdertracker/internal/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type payload struct {
	Value    int       `json:"value"`
	CachedAt time.Time `json:"cachedAt"`
}

type failingStore struct {
	err error
}

func (s failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, s.err
}

func (s failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return s.err
}

func newTestCache(clock *fakeClock) (*cache.Cache, *cache.MemoryStore) {
	store := cache.NewMemoryStore(cache.MemoryStoreConfig{Now: clock.Now})
	return cache.New(cache.Config{Store: store, Logger: zerolog.Nop()}), store
}

func TestWithCache_HitWithinTTL(t *testing.T) {
	clock := newFakeClock()
	c, _ := newTestCache(clock)

	calls := 0
	produce := func(context.Context) (payload, error) {
		calls++
		return payload{Value: calls, CachedAt: clock.Now()}, nil
	}

	first, err := cache.WithCache(context.Background(), c, "batch", 300*time.Second, produce)
	require.NoError(t, err)

	clock.Advance(299 * time.Second)

	second, err := cache.WithCache(context.Background(), c, "batch", 300*time.Second, produce)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first.Value, second.Value)
	assert.True(t, first.CachedAt.Equal(second.CachedAt))
}

func TestWithCache_MissAfterTTL(t *testing.T) {
	clock := newFakeClock()
	c, _ := newTestCache(clock)

	calls := 0
	produce := func(context.Context) (payload, error) {
		calls++
		return payload{Value: calls, CachedAt: clock.Now()}, nil
	}

	first, err := cache.WithCache(context.Background(), c, "batch", 300*time.Second, produce)
	require.NoError(t, err)

	clock.Advance(300 * time.Second)

	second, err := cache.WithCache(context.Background(), c, "batch", 300*time.Second, produce)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.True(t, second.CachedAt.After(first.CachedAt))
}

func TestWithCache_ProducerErrorNotCached(t *testing.T) {
	clock := newFakeClock()
	c, store := newTestCache(clock)

	errRegistry := errors.New("registry unavailable")
	_, err := cache.WithCache(context.Background(), c, "batch", time.Minute, func(context.Context) (payload, error) {
		return payload{}, errRegistry
	})
	require.ErrorIs(t, err, errRegistry)
	assert.Equal(t, 0, store.Len())

	got, err := cache.WithCache(context.Background(), c, "batch", time.Minute, func(context.Context) (payload, error) {
		return payload{Value: 7}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got.Value)
}

func TestWithCache_KeysAreIndependent(t *testing.T) {
	clock := newFakeClock()
	c, _ := newTestCache(clock)

	a, err := cache.WithCache(context.Background(), c, "a", time.Minute, func(context.Context) (payload, error) {
		return payload{Value: 1}, nil
	})
	require.NoError(t, err)

	b, err := cache.WithCache(context.Background(), c, "b", time.Minute, func(context.Context) (payload, error) {
		return payload{Value: 2}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, 1, a.Value)
	assert.Equal(t, 2, b.Value)
}

func TestWithCache_StoreErrorPropagates(t *testing.T) {
	errStore := errors.New("connection refused")
	c := cache.New(cache.Config{Store: failingStore{err: errStore}, Logger: zerolog.Nop()})

	called := false
	_, err := cache.WithCache(context.Background(), c, "batch", time.Minute, func(context.Context) (payload, error) {
		called = true
		return payload{}, nil
	})

	require.ErrorIs(t, err, errStore)
	assert.False(t, called)
}

func TestMemoryStore_Expiry(t *testing.T) {
	clock := newFakeClock()
	store := cache.NewMemoryStore(cache.MemoryStoreConfig{Now: clock.Now})
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 10*time.Second))

	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), value)

	clock.Advance(10 * time.Second)

	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_CleanupRemovesExpired(t *testing.T) {
	clock := newFakeClock()
	store := cache.NewMemoryStore(cache.MemoryStoreConfig{
		Now:             clock.Now,
		CleanupInterval: time.Minute,
	})
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "old", []byte("1"), time.Second))
	clock.Advance(2 * time.Minute)
	require.NoError(t, store.Set(ctx, "new", []byte("2"), time.Hour))

	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_ReturnsCopy(t *testing.T) {
	store := cache.NewMemoryStore(cache.MemoryStoreConfig{})
	ctx := context.Background()

	original := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", original, time.Minute))
	original[0] = 'z'

	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), value)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	store, err := cache.NewRedisStore(ctx, cache.RedisStoreConfig{
		Addr:   addr,
		Prefix: "powdertracker-test:" + strconv.FormatInt(time.Now().UnixNano(), 10) + ":",
	})
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", []byte(`{"value":1}`), time.Minute))

	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"value":1}`, string(value))
}

func TestPut_ReplacesLiveEntry(t *testing.T) {
	clock := newFakeClock()
	c, _ := newTestCache(clock)
	ctx := context.Background()

	produce := func(context.Context) (payload, error) {
		return payload{Value: 1}, nil
	}

	_, err := cache.WithCache(ctx, c, "batch", time.Minute, produce)
	require.NoError(t, err)

	require.NoError(t, cache.Put(ctx, c, "batch", time.Minute, payload{Value: 2}))

	got, err := cache.WithCache(ctx, c, "batch", time.Minute, produce)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Value)
}
