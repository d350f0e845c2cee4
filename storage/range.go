package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cats/core"
)

// GetRange reads the time series of one (sourceID, dataName) between from
// and to, stitching together every hourly shard the window touches. The
// result is ascending in time. maxCount caps the total number of rows
// (zero selects a high default); a truncated result is indistinguishable
// from a naturally short one, so callers must not assume exhaustion.
//
// Shards that do not exist are skipped; any other backend failure is
// surfaced as-is.
func (e *Engine) GetRange(ctx context.Context, sourceID, dataName string, from, to time.Time, maxCount int) ([]TimestampedValue, error) {
	if maxCount <= 0 {
		maxCount = maxColumns
	}
	from, to = from.UTC(), to.UTC()

	var hours []time.Time
	for curr, last := core.FloorToHour(from), core.FloorToHour(to); !curr.After(last); curr = curr.Add(time.Hour) {
		hours = append(hours, curr)
	}
	if len(hours) == 0 {
		return nil, nil
	}

	var result []TimestampedValue
	budget := maxCount
	for i, hour := range hours {
		// Read bounds use exact (unjittered) column names. Only the last
		// shard's finish bound has slack: it lies one microsecond past to,
		// so a jittered write at to stays inside the slice. The single-shard
		// finish and the first shard's finish are exact columns, which a
		// jittered write in that very microsecond exceeds.
		var start, finish []byte
		switch {
		case len(hours) == 1:
			start = core.EncodeOrderedInt64(core.PicosWithinHour(hour, from))
			finish = core.EncodeOrderedInt64(core.PicosWithinHour(hour, to))
		case i == 0:
			start = core.EncodeOrderedInt64(core.PicosWithinHour(hour, from))
			finish = core.EncodeOrderedInt64(core.PicosWithinHour(hour, hours[1].Add(-time.Microsecond)))
		case i == len(hours)-1:
			start = core.EncodeOrderedInt64(0)
			finish = core.EncodeOrderedInt64(core.PicosWithinHour(hour, to.Add(time.Microsecond)))
		}

		rowKey := core.HourlyRowKey(sourceID, dataName, hour)
		e.log.Debug("trying shard", zap.String("rowKey", rowKey))

		cols, err := e.backend.Get(ctx, CFHourly, rowKey, start, finish, budget, false)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("storage: get range shard %s: %w", rowKey, err)
		}

		for _, col := range cols {
			highres, err := core.DecodeOrderedInt64(col.Name)
			if err != nil {
				return nil, fmt.Errorf("storage: shard %s: %w", rowKey, err)
			}
			result = append(result, TimestampedValue{
				Timestamp: core.Reconstruct(hour, highres),
				Value:     col.Value,
			})
		}

		budget -= len(cols)
		if budget <= 0 {
			break
		}
	}
	return result, nil
}
