package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cats/core"
	"cats/indexer"
)

// IndexHit is one inverted-index column: the instant a blob was written
// and the blob row it points at.
type IndexHit struct {
	Timestamp  time.Time
	BlobRowKey string
}

// IndexRow resolves a free-text search string against one inverted-index
// row. The search string is normalized the same way index substrings were
// at write time, so a query only hits when it matches a stored n-gram
// whole. Zero from/to leave that side of the scan unbounded. A missing
// index row yields an empty result.
func (e *Engine) IndexRow(ctx context.Context, sourceID, dataName, freeText string, from, to time.Time, limit int) ([]IndexHit, error) {
	if limit <= 0 {
		limit = maxColumns
	}
	rowKey := core.IndexRowKey(sourceID, dataName, indexer.Normalize(freeText))

	var start, finish []byte
	if !from.IsZero() {
		start = core.EncodeTimeColumn(from)
	}
	if !to.IsZero() {
		finish = core.EncodeTimeColumn(to)
	}

	cols, err := e.backend.Get(ctx, CFBlobIndex, rowKey, start, finish, limit, false)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: index row %s: %w", rowKey, err)
	}

	hits := make([]IndexHit, 0, len(cols))
	for _, col := range cols {
		ts, err := core.DecodeTimeColumn(col.Name)
		if err != nil {
			return nil, fmt.Errorf("storage: index row %s: %w", rowKey, err)
		}
		hits = append(hits, IndexHit{Timestamp: ts, BlobRowKey: string(col.Value)})
	}
	return hits, nil
}

// GetBlobsByFreeText resolves a free-text search within one (sourceID,
// dataName) scope and returns the first column of every referenced blob
// row as (timestamp, value) tuples. Order follows the index scan, which is
// ascending in time.
func (e *Engine) GetBlobsByFreeText(ctx context.Context, sourceID, dataName, freeText string, from, to time.Time) ([]TimestampedValue, error) {
	hits, err := e.IndexRow(ctx, sourceID, dataName, freeText, from, to, 0)
	if err != nil {
		return nil, err
	}
	return e.blobTuples(ctx, hits)
}

// GetBlobRowsByFreeText is the raw form of GetBlobsByFreeText: it returns
// the full blobRowKey -> ordered columns mapping instead of first-column
// tuples.
func (e *Engine) GetBlobRowsByFreeText(ctx context.Context, sourceID, dataName, freeText string, from, to time.Time) (map[string][]Column, error) {
	hits, err := e.IndexRow(ctx, sourceID, dataName, freeText, from, to, 0)
	if err != nil {
		return nil, err
	}
	return e.multiGetBlobs(ctx, hits)
}

// GetBlobsMultiData unions the index rows of several data names under one
// source and resolves them with a single blob multi-get. Concatenation
// preserves per-data-name order.
func (e *Engine) GetBlobsMultiData(ctx context.Context, sourceID string, dataNames []string, freeText string, from, to time.Time) ([]TimestampedValue, error) {
	hits, err := e.multiDataHits(ctx, sourceID, dataNames, freeText, from, to)
	if err != nil {
		return nil, err
	}
	return e.blobTuples(ctx, hits)
}

// GetBlobRowsMultiData is the raw form of GetBlobsMultiData.
func (e *Engine) GetBlobRowsMultiData(ctx context.Context, sourceID string, dataNames []string, freeText string, from, to time.Time) (map[string][]Column, error) {
	hits, err := e.multiDataHits(ctx, sourceID, dataNames, freeText, from, to)
	if err != nil {
		return nil, err
	}
	return e.multiGetBlobs(ctx, hits)
}

func (e *Engine) multiDataHits(ctx context.Context, sourceID string, dataNames []string, freeText string, from, to time.Time) ([]IndexHit, error) {
	var hits []IndexHit
	for _, dataName := range dataNames {
		h, err := e.IndexRow(ctx, sourceID, dataName, freeText, from, to, 0)
		if err != nil {
			return nil, err
		}
		hits = append(hits, h...)
	}
	return hits, nil
}

// distinctKeys keeps the first occurrence of every blob row key, in hit order.
func distinctKeys(hits []IndexHit) []string {
	seen := make(map[string]struct{}, len(hits))
	keys := make([]string, 0, len(hits))
	for _, hit := range hits {
		if _, dup := seen[hit.BlobRowKey]; dup {
			continue
		}
		seen[hit.BlobRowKey] = struct{}{}
		keys = append(keys, hit.BlobRowKey)
	}
	return keys
}

func (e *Engine) multiGetBlobs(ctx context.Context, hits []IndexHit) (map[string][]Column, error) {
	keys := distinctKeys(hits)
	if len(keys) == 0 {
		return map[string][]Column{}, nil
	}
	rows, err := e.backend.MultiGet(ctx, CFBlob, keys, maxColumns)
	if err != nil {
		return nil, fmt.Errorf("storage: multi get blobs: %w", err)
	}
	return rows, nil
}

// blobTuples fetches the referenced blob rows and reduces each to its
// first column. Result order is driven by the index scan order.
func (e *Engine) blobTuples(ctx context.Context, hits []IndexHit) ([]TimestampedValue, error) {
	keys := distinctKeys(hits)
	if len(keys) == 0 {
		return nil, nil
	}
	rows, err := e.backend.MultiGet(ctx, CFBlob, keys, maxColumns)
	if err != nil {
		return nil, fmt.Errorf("storage: multi get blobs: %w", err)
	}

	tuples := make([]TimestampedValue, 0, len(keys))
	for _, key := range keys {
		cols := rows[key]
		if len(cols) == 0 {
			// Index entry outlived its blob (or the blob expired first).
			continue
		}
		ts, err := core.DecodeTimeColumn(cols[0].Name)
		if err != nil {
			return nil, fmt.Errorf("storage: blob row %s: %w", key, err)
		}
		tuples = append(tuples, TimestampedValue{Timestamp: ts, Value: cols[0].Value})
	}
	return tuples, nil
}
