// Package memory provides an in-memory Backend with the same contract as
// the durable wide-column implementations: sorted wide rows, inclusive
// column slices, per-write TTL and a distinct not-found signal. It backs
// the engine's test suite and is handy for embedding.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cats/storage"
)

type cell struct {
	name      []byte
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (c cell) expired(now time.Time) bool {
	return !c.expiresAt.IsZero() && now.After(c.expiresAt)
}

// Backend is an in-memory wide-column store. Safe for concurrent use.
type Backend struct {
	mu  sync.RWMutex
	cfs map[string]map[string][]cell
}

// New returns an empty in-memory backend.
func New() *Backend {
	return &Backend{cfs: make(map[string]map[string][]cell)}
}

var _ storage.Backend = (*Backend)(nil)

// Insert writes the given columns into one row, overwriting columns that
// share a name.
func (b *Backend) Insert(_ context.Context, cf, rowKey string, cols []storage.Column, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.upsert(cf, rowKey, cols, ttl)
	return nil
}

// BatchInsert writes columns into several rows atomically with respect to
// other calls on this backend.
func (b *Backend) BatchInsert(_ context.Context, cf string, rows map[string][]storage.Column, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for rowKey, cols := range rows {
		b.upsert(cf, rowKey, cols, ttl)
	}
	return nil
}

func (b *Backend) upsert(cf, rowKey string, cols []storage.Column, ttl time.Duration) {
	rowsByKey := b.cfs[cf]
	if rowsByKey == nil {
		rowsByKey = make(map[string][]cell)
		b.cfs[cf] = rowsByKey
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	row := rowsByKey[rowKey]
	for _, col := range cols {
		name := bytes.Clone(col.Name)
		value := bytes.Clone(col.Value)
		i := sort.Search(len(row), func(i int) bool { return bytes.Compare(row[i].name, name) >= 0 })
		if i < len(row) && bytes.Equal(row[i].name, name) {
			row[i] = cell{name: name, value: value, expiresAt: expiresAt}
			continue
		}
		row = append(row, cell{})
		copy(row[i+1:], row[i:])
		row[i] = cell{name: name, value: value, expiresAt: expiresAt}
	}
	rowsByKey[rowKey] = row
}

// Get returns up to limit live columns of one row within the inclusive
// [start, finish] slice. A missing row reports storage.ErrNotFound.
func (b *Backend) Get(_ context.Context, cf, rowKey string, start, finish []byte, limit int, reversed bool) ([]storage.Column, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	row, ok := b.cfs[cf][rowKey]
	if !ok {
		return nil, fmt.Errorf("memory: row %s/%s: %w", cf, rowKey, storage.ErrNotFound)
	}
	return sliceRow(row, start, finish, limit, reversed), nil
}

// MultiGet returns up to limit live columns for each existing row; missing
// rows are absent from the result rather than an error.
func (b *Backend) MultiGet(_ context.Context, cf string, rowKeys []string, limit int) (map[string][]storage.Column, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make(map[string][]storage.Column, len(rowKeys))
	for _, rowKey := range rowKeys {
		row, ok := b.cfs[cf][rowKey]
		if !ok {
			continue
		}
		result[rowKey] = sliceRow(row, nil, nil, limit, false)
	}
	return result, nil
}

// Remove deletes one entire row. Removing an absent row is not an error.
func (b *Backend) Remove(_ context.Context, cf, rowKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.cfs[cf], rowKey)
	return nil
}

func sliceRow(row []cell, start, finish []byte, limit int, reversed bool) []storage.Column {
	now := time.Now()

	var cols []storage.Column
	for _, c := range row {
		if c.expired(now) {
			continue
		}
		if start != nil && bytes.Compare(c.name, start) < 0 {
			continue
		}
		if finish != nil && bytes.Compare(c.name, finish) > 0 {
			break
		}
		cols = append(cols, storage.Column{Name: bytes.Clone(c.name), Value: bytes.Clone(c.value)})
	}

	if reversed {
		for i, j := 0, len(cols)-1; i < j; i, j = i+1, j-1 {
			cols[i], cols[j] = cols[j], cols[i]
		}
	}
	if limit > 0 && len(cols) > limit {
		cols = cols[:limit]
	}
	return cols
}
