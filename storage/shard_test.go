package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cats/core"
	"cats/storage"
)

func TestShardReadsFullHour(t *testing.T) {
	e, _ := newTestEngine(t, storage.Options{})
	ctx := context.Background()

	start := time.Date(1990, 1, 1, 10, 0, 0, 0, time.UTC)
	inserted := insertRamp(t, e, "shard_test", "ramp_height", start, start.Add(40*time.Minute), true)

	shard, err := e.Shard(ctx, "shard_test", "ramp_height", start.Add(15*time.Minute))
	require.NoError(t, err)
	assertSameSeries(t, inserted, shard)
}

func TestShardMissingIsEmpty(t *testing.T) {
	e, _ := newTestEngine(t, storage.Options{})

	shard, err := e.Shard(context.Background(), "nobody", "nothing",
		time.Date(1990, 1, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, shard)
}

func TestShardCachesHistoricalHours(t *testing.T) {
	e, _ := newTestEngine(t, storage.Options{Cache: storage.NewLRUCache(16, 0)})
	ctx := context.Background()

	// 1990 is strictly before the current UTC hour, so the shard is cacheable.
	at := time.Date(1990, 1, 1, 10, 0, 0, 0, time.UTC)
	insertRamp(t, e, "cache_test", "ramp_height", at, at.Add(40*time.Minute), true)

	first, err := e.Shard(ctx, "cache_test", "ramp_height", at)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, int64(1), e.DailyGets())
	assert.Equal(t, int64(0), e.CacheHits())

	second, err := e.Shard(ctx, "cache_test", "ramp_height", at)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), e.DailyGets(), "second read must not reach the backend")
	assert.Equal(t, int64(1), e.CacheHits())
}

func TestShardCurrentHourBypassesCache(t *testing.T) {
	e, _ := newTestEngine(t, storage.Options{Cache: storage.NewLRUCache(16, 0)})
	ctx := context.Background()

	now := time.Now().UTC()
	d := core.NewDatum("cache_test2", now, "ramp_height", "1")
	require.NoError(t, e.InsertTimestamped(ctx, d, 0))

	for i := 0; i < 2; i++ {
		shard, err := e.Shard(ctx, "cache_test2", "ramp_height", now)
		require.NoError(t, err)
		require.Len(t, shard, 1)
	}
	assert.Equal(t, int64(2), e.DailyGets(), "the running hour is never cached")
	assert.Equal(t, int64(0), e.CacheHits())
}

func TestWarmUpPrefetchesPrecedingHours(t *testing.T) {
	cache := storage.NewLRUCache(16, 0)
	e, _ := newTestEngine(t, storage.Options{Cache: cache})
	ctx := context.Background()

	at := time.Date(1990, 1, 1, 10, 30, 0, 0, time.UTC)
	insertRamp(t, e, "warm_test", "ramp_height",
		at.Add(-3*time.Hour), at, true)

	require.NoError(t, e.WarmUp(ctx, "warm_test", "ramp_height", at, 2))

	for offs := 1; offs <= 2; offs++ {
		key := core.HourlyRowKey("warm_test", "ramp_height", at.Add(-time.Duration(offs)*time.Hour))
		_, ok := cache.Get(key)
		assert.True(t, ok, "hour -%d should be warm", offs)
	}
}

func TestWarmUpWithoutCacheIsNoOp(t *testing.T) {
	e, _ := newTestEngine(t, storage.Options{})

	require.NoError(t, e.WarmUp(context.Background(), "warm_test", "ramp_height", time.Now(), 3))
	assert.Equal(t, int64(0), e.DailyGets())
}
