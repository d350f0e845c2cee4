package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cats/core"
)

// tsSuffix marks the companion column holding a latest value's write
// instant, as decimal milliseconds since the epoch.
const tsSuffix = "-ts"

// LatestValue is one data name's most recent payload and the instant it
// was recorded. Timestamp is zero when the stored row carried no parseable
// companion timestamp.
type LatestValue struct {
	Value     []byte
	Timestamp time.Time
}

// InsertLatest overwrites the per-source latest snapshot of the datum's
// data name. With verifyTimestamp set, the write is suppressed when the
// stored companion timestamp is parseable and not older than the datum's;
// a missing row, a missing companion column or an unparseable value all
// count as "no previous" and the write proceeds.
//
// The latest-snapshot family is optional; only deployments that created it
// should call the Latest operations.
func (e *Engine) InsertLatest(ctx context.Context, d *core.TimestampedDatum, verifyTimestamp bool) error {
	millis := d.UnixMillis()

	if verifyTimestamp {
		cols, err := e.backend.Get(ctx, CFLatest, d.RowKeyLatest(), nil, nil, maxColumns, false)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("storage: read latest %s: %w", d.RowKeyLatest(), err)
		}
		for _, col := range cols {
			if string(col.Name) != d.DataName+tsSuffix {
				continue
			}
			stored, perr := strconv.ParseInt(string(col.Value), 10, 64)
			if perr == nil && stored >= millis {
				return nil
			}
		}
	}

	cols := []Column{
		{Name: []byte(d.DataName), Value: d.DataValue},
		{Name: []byte(d.DataName + tsSuffix), Value: []byte(strconv.FormatInt(millis, 10))},
	}
	if err := e.backend.Insert(ctx, CFLatest, d.RowKeyLatest(), cols, 0); err != nil {
		return fmt.Errorf("storage: insert latest: %w", err)
	}
	return nil
}

// InsertLatestValues writes all pairs into one source's snapshot row in a
// single call, stamped with the wall-clock UTC time, unconditionally.
func (e *Engine) InsertLatestValues(ctx context.Context, sourceID string, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}
	millis := strconv.FormatInt(core.UnixMillis(time.Now().UTC()), 10)

	cols := make([]Column, 0, 2*len(values))
	for dataName, value := range values {
		cols = append(cols,
			Column{Name: []byte(dataName), Value: value},
			Column{Name: []byte(dataName + tsSuffix), Value: []byte(millis)},
		)
	}
	if err := e.backend.Insert(ctx, CFLatest, sourceID, cols, 0); err != nil {
		return fmt.Errorf("storage: insert latest values: %w", err)
	}
	return nil
}

// LoadLatest returns a source's whole snapshot keyed by data name. A
// missing row yields an empty map.
func (e *Engine) LoadLatest(ctx context.Context, sourceID string) (map[string]LatestValue, error) {
	cols, err := e.backend.Get(ctx, CFLatest, sourceID, nil, nil, maxColumns, false)
	if errors.Is(err, ErrNotFound) {
		return map[string]LatestValue{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: load latest %s: %w", sourceID, err)
	}
	return latestFromColumns(cols), nil
}

// LoadLatestValue returns one data name's latest value. The second result
// reports whether the snapshot held that data name at all.
func (e *Engine) LoadLatestValue(ctx context.Context, sourceID, dataName string) (LatestValue, bool, error) {
	all, err := e.LoadLatest(ctx, sourceID)
	if err != nil {
		return LatestValue{}, false, err
	}
	v, ok := all[dataName]
	return v, ok, nil
}

// MultiLoadLatest returns the snapshots of several sources in one backend
// round trip. Sources without a snapshot are absent from the result.
func (e *Engine) MultiLoadLatest(ctx context.Context, sourceIDs []string) (map[string]map[string]LatestValue, error) {
	rows, err := e.backend.MultiGet(ctx, CFLatest, sourceIDs, maxColumns)
	if err != nil {
		return nil, fmt.Errorf("storage: multi load latest: %w", err)
	}
	result := make(map[string]map[string]LatestValue, len(rows))
	for sourceID, cols := range rows {
		result[sourceID] = latestFromColumns(cols)
	}
	return result, nil
}

// RemoveLatest deletes a source's snapshot row.
func (e *Engine) RemoveLatest(ctx context.Context, sourceID string) error {
	if err := e.backend.Remove(ctx, CFLatest, sourceID); err != nil {
		return fmt.Errorf("storage: remove latest %s: %w", sourceID, err)
	}
	return nil
}

// latestFromColumns pairs each value column with its -ts companion.
func latestFromColumns(cols []Column) map[string]LatestValue {
	values := make(map[string][]byte)
	stamps := make(map[string]time.Time)
	for _, col := range cols {
		name := string(col.Name)
		if strings.HasSuffix(name, tsSuffix) {
			millis, err := strconv.ParseInt(string(col.Value), 10, 64)
			if err == nil {
				stamps[strings.TrimSuffix(name, tsSuffix)] = time.UnixMilli(millis).UTC()
			}
			continue
		}
		values[name] = col.Value
	}

	result := make(map[string]LatestValue, len(values))
	for name, value := range values {
		result[name] = LatestValue{Value: value, Timestamp: stamps[name]}
	}
	return result
}
