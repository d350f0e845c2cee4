// Package storage implements the cats storage engine: the write fan-out
// across the hourly time-series, blob and inverted-index column families,
// the shard-stitching range reader, and the free-text index resolution.
// Durable state lives entirely behind the Backend interface; the engine
// holds only the backend handle, a jitter randomizer and two informational
// counters.
package storage

import (
	"context"
	"errors"
	"time"
)

// Column family names. The backend maps these to whatever physical tables
// it manages; the row-key and column formats per family are a stable schema.
const (
	CFHourly    = "HourlyTimestampedData"
	CFBlob      = "BlobData"
	CFBlobIndex = "BlobDataIndex"
	CFLatest    = "LatestData"
)

// ErrNotFound is the backend's expected "no rows" signal, distinct from
// I/O errors. Index lookups and range reads swallow it and return empty.
var ErrNotFound = errors.New("storage: not found")

// Column is one (name, value) cell of a wide row. Names are the bytewise
// order-preserving encoding of the family's comparator: an int64 picosecond
// offset for the hourly family, a UTC timestamp for blob and index families
// (see core.EncodeOrderedInt64 and core.EncodeTimeColumn), or raw ASCII for
// the latest-snapshot family.
type Column struct {
	Name  []byte
	Value []byte
}

// Backend is the narrow boundary to the wide-column store. Row keys are
// strings; column slices are ordered by the family comparator; start/finish
// bounds are inclusive and unbounded when nil. A zero TTL means no
// expiration. Implementations must return ErrNotFound (possibly wrapped)
// when a requested row does not exist.
type Backend interface {
	// Insert writes the given columns into one row.
	Insert(ctx context.Context, cf, rowKey string, cols []Column, ttl time.Duration) error

	// BatchInsert writes columns into several rows in one backend round trip.
	BatchInsert(ctx context.Context, cf string, rows map[string][]Column, ttl time.Duration) error

	// Get returns up to limit columns of one row within [start, finish],
	// in comparator order, reversed when asked.
	Get(ctx context.Context, cf, rowKey string, start, finish []byte, limit int, reversed bool) ([]Column, error)

	// MultiGet returns up to limit columns for each of the given rows.
	// Rows that do not exist are simply absent from the result.
	MultiGet(ctx context.Context, cf string, rowKeys []string, limit int) (map[string][]Column, error)

	// Remove deletes one entire row.
	Remove(ctx context.Context, cf, rowKey string) error
}
