package conditions_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powdertracker/powdertracker/internal/cache"
	"github.com/powdertracker/powdertracker/internal/conditions"
	"github.com/powdertracker/powdertracker/internal/mountain"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// flakyRegistry fails List while failing is set.
type flakyRegistry struct {
	mountain.Registry
	failing bool
}

func (r *flakyRegistry) List(ctx context.Context) ([]mountain.Mountain, error) {
	if r.failing {
		return nil, errors.New("registry offline")
	}
	return r.Registry.List(ctx)
}

func newTestService(t *testing.T, registry mountain.Registry) (*conditions.Service, *testClock, testSources) {
	t.Helper()

	clock := &testClock{now: fixedNow()}
	sources := testSources{
		telemetry: newMockTelemetry(),
		grid:      newMockGrid(),
		fallback:  newMockFallback(),
	}

	agg := conditions.NewAggregator(conditions.AggregatorConfig{
		Registry:  registry,
		Telemetry: sources.telemetry,
		Grid:      sources.grid,
		Fallback:  sources.fallback,
		Logger:    zerolog.Nop(),
		Now:       clock.Now,
	})

	store := cache.NewMemoryStore(cache.MemoryStoreConfig{Now: clock.Now})

	svc := conditions.NewService(conditions.ServiceConfig{
		Aggregator: agg,
		Cache:      cache.New(cache.Config{Store: store, Logger: zerolog.Nop()}),
		Now:        clock.Now,
		Logger:     zerolog.Nop(),
	})

	return svc, clock, sources
}

func staticRegistry(t *testing.T) mountain.Registry {
	t.Helper()
	registry, err := mountain.NewStaticRegistry([]mountain.Mountain{
		gridMountain("baker", "909:WA:SNTL"),
		fallbackMountain("missionridge", ""),
	})
	require.NoError(t, err)
	return registry
}

func TestService_BatchConditionsCachedWithinTTL(t *testing.T) {
	svc, clock, src := newTestService(t, staticRegistry(t))
	ctx := context.Background()

	first, err := svc.GetBatchConditions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Count)
	assert.Len(t, first.Data, 2)
	assert.True(t, first.CachedAt.Equal(fixedNow()))

	clock.Advance(4 * time.Minute)

	second, err := svc.GetBatchConditions(ctx)
	require.NoError(t, err)
	assert.True(t, second.CachedAt.Equal(first.CachedAt))
	assert.Equal(t, 1, src.grid.calls())

	clock.Advance(time.Minute)

	third, err := svc.GetBatchConditions(ctx)
	require.NoError(t, err)
	assert.True(t, third.CachedAt.After(first.CachedAt))
	assert.Equal(t, 2, src.grid.calls())
}

func TestService_BatchPowderScoresCachedWithinTTL(t *testing.T) {
	svc, clock, _ := newTestService(t, staticRegistry(t))
	ctx := context.Background()

	first, err := svc.GetBatchPowderScores(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Count)
	assert.Len(t, first.Scores, 2)

	clock.Advance(299 * time.Second)
	second, err := svc.GetBatchPowderScores(ctx)
	require.NoError(t, err)
	assert.True(t, second.CachedAt.Equal(first.CachedAt))

	clock.Advance(time.Second)
	third, err := svc.GetBatchPowderScores(ctx)
	require.NoError(t, err)
	assert.True(t, third.CachedAt.After(first.CachedAt))
}

func TestService_EndpointsCacheIndependently(t *testing.T) {
	svc, clock, _ := newTestService(t, staticRegistry(t))
	ctx := context.Background()

	conds, err := svc.GetBatchConditions(ctx)
	require.NoError(t, err)

	clock.Advance(time.Minute)

	scores, err := svc.GetBatchPowderScores(ctx)
	require.NoError(t, err)

	assert.True(t, scores.CachedAt.After(conds.CachedAt))
}

func TestService_RegistryFailureIsNotCached(t *testing.T) {
	registry := &flakyRegistry{Registry: staticRegistry(t), failing: true}
	svc, _, _ := newTestService(t, registry)
	ctx := context.Background()

	_, err := svc.GetBatchConditions(ctx)
	require.Error(t, err)

	registry.failing = false

	batch, err := svc.GetBatchConditions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Count)
}

func TestService_PreservesRegistryOrder(t *testing.T) {
	ids := []string{"e", "d", "c", "b", "a"}
	mountains := make([]mountain.Mountain, 0, len(ids))
	for _, id := range ids {
		mountains = append(mountains, fallbackMountain(id, ""))
	}
	registry, err := mountain.NewStaticRegistry(mountains)
	require.NoError(t, err)

	svc, _, _ := newTestService(t, registry)

	batch, err := svc.GetBatchPowderScores(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.Scores, len(ids))
	for i, id := range ids {
		assert.Equal(t, id, batch.Scores[i].MountainID)
	}
}

func TestService_RefreshReplacesCachedBatch(t *testing.T) {
	svc, clock, src := newTestService(t, staticRegistry(t))
	ctx := context.Background()

	first, err := svc.GetBatchPowderScores(ctx)
	require.NoError(t, err)

	clock.Advance(time.Minute)

	refreshed, err := svc.RefreshPowderScores(ctx)
	require.NoError(t, err)
	assert.True(t, refreshed.CachedAt.After(first.CachedAt))

	served, err := svc.GetBatchPowderScores(ctx)
	require.NoError(t, err)
	assert.True(t, served.CachedAt.Equal(refreshed.CachedAt))

	_, err = svc.RefreshConditions(ctx)
	require.NoError(t, err)
	callsAfterRefresh := src.grid.calls()

	_, err = svc.GetBatchConditions(ctx)
	require.NoError(t, err)
	assert.Equal(t, callsAfterRefresh, src.grid.calls())
}
