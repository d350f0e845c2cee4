package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cats/core"
)

// Shard reads the full hourly shard containing t for one (sourceID,
// dataName). A shard is served from the cache only when its hour lies
// strictly before the current UTC hour; the running hour is always fetched
// from the backend so partial data is never pinned. A missing shard yields
// an empty result.
func (e *Engine) Shard(ctx context.Context, sourceID, dataName string, t time.Time) ([]TimestampedValue, error) {
	hour := core.FloorToHour(t)
	rowKey := core.HourlyRowKey(sourceID, dataName, hour)
	cacheable := e.cache != nil && hour.Before(core.FloorToHour(time.Now()))

	if cacheable {
		if shard, ok := e.cache.Get(rowKey); ok {
			e.countersMu.Lock()
			e.cacheHits++
			e.countersMu.Unlock()
			return shard, nil
		}
	}

	e.countersMu.Lock()
	e.dailyGets++
	e.countersMu.Unlock()

	e.log.Debug("fetching shard", zap.String("rowKey", rowKey))
	cols, err := e.backend.Get(ctx, CFHourly, rowKey, nil, nil, maxColumns, false)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get shard %s: %w", rowKey, err)
	}

	shard := make([]TimestampedValue, 0, len(cols))
	for _, col := range cols {
		highres, err := core.DecodeOrderedInt64(col.Name)
		if err != nil {
			return nil, fmt.Errorf("storage: shard %s: %w", rowKey, err)
		}
		shard = append(shard, TimestampedValue{
			Timestamp: core.Reconstruct(hour, highres),
			Value:     col.Value,
		})
	}

	if cacheable {
		e.cache.Add(rowKey, shard, e.cacheTTL)
	}
	return shard, nil
}

// WarmUp prefetches the given number of hourly shards preceding t into the
// cache. A no-op without a cache.
func (e *Engine) WarmUp(ctx context.Context, sourceID, dataName string, t time.Time, shards int) error {
	if e.cache == nil || shards <= 0 {
		return nil
	}
	for offs := 1; offs <= shards; offs++ {
		if _, err := e.Shard(ctx, sourceID, dataName, t.Add(-time.Duration(offs)*time.Hour)); err != nil {
			return err
		}
	}
	return nil
}
