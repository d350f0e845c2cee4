// Package core contains the value objects and key/time encodings shared by
// every layer of cats: timestamped datums, blob index entries, canonical
// row-key construction and the hour/picosecond column codec.
package core

import (
	"fmt"
	"time"
)

// TimestampedDatum is one sample of named data from one source. It is
// immutable after construction; the storage engine derives every row key
// and column name from it. DataValue is an opaque byte payload that is
// treated as UTF-8 text only when it is indexed.
type TimestampedDatum struct {
	SourceID  string
	Timestamp time.Time
	DataName  string
	DataValue []byte

	// StrForIndex, when non-empty, replaces DataValue as the base for the
	// inverted index. Set it when the payload itself is not indexable text.
	StrForIndex string
}

// NewDatum builds a datum for a text payload.
func NewDatum(sourceID string, ts time.Time, dataName, dataValue string) *TimestampedDatum {
	return &TimestampedDatum{
		SourceID:  sourceID,
		Timestamp: ts,
		DataName:  dataName,
		DataValue: []byte(dataValue),
	}
}

// UTC returns the datum's timestamp normalized to UTC.
func (d *TimestampedDatum) UTC() time.Time {
	return ToUTC(d.Timestamp)
}

// UnixMillis returns the datum's timestamp as milliseconds since the epoch.
func (d *TimestampedDatum) UnixMillis() int64 {
	return UnixMillis(d.UTC())
}

// RowKeyHourly returns the key of the hourly shard this datum lands in.
func (d *TimestampedDatum) RowKeyHourly() string {
	return HourlyRowKey(d.SourceID, d.DataName, d.UTC())
}

// RowKeyBlob returns the key of the blob entry this datum lands in.
func (d *TimestampedDatum) RowKeyBlob() string {
	return BlobRowKey(d.SourceID, d.DataName, d.UTC())
}

// RowKeyLatest returns the key of the per-source latest-snapshot row.
func (d *TimestampedDatum) RowKeyLatest() string {
	return d.SourceID
}

// IndexBase returns the text the inverted index is built from.
func (d *TimestampedDatum) IndexBase() string {
	if d.StrForIndex != "" {
		return d.StrForIndex
	}
	return string(d.DataValue)
}

func (d *TimestampedDatum) String() string {
	return fmt.Sprintf("%s from %s : %s=%s", d.Timestamp, d.SourceID, d.DataName, d.DataValue)
}

// BlobIndexEntry is one pointer from a normalized substring back to a blob
// row. Substring must already be normalized; the entry's column name is the
// UTC timestamp and its value the blob row key.
type BlobIndexEntry struct {
	SourceID   string
	DataName   string
	Substring  string
	Timestamp  time.Time
	BlobRowKey string
}

// UTC returns the entry's timestamp normalized to UTC.
func (e *BlobIndexEntry) UTC() time.Time {
	return ToUTC(e.Timestamp)
}

// RowKey returns the inverted-index row this entry is appended to.
func (e *BlobIndexEntry) RowKey() string {
	return IndexRowKey(e.SourceID, e.DataName, e.Substring)
}

func (e *BlobIndexEntry) String() string {
	return fmt.Sprintf("%s => %s", e.RowKey(), e.BlobRowKey)
}
