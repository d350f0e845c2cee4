package core

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// hourStampLayout is the fixed-width UTC hour stamp that terminates every
// hourly row key. Fixed width is what keeps hyphens inside source ids from
// making the key ambiguous.
const hourStampLayout = "2006010215"

// PicosPerMicro is the number of picoseconds in one microsecond. Hourly
// column names carry picosecond resolution so that a sub-microsecond jitter
// can separate colliding samples and still be rounded away on read.
const PicosPerMicro = 1_000_000

// MaxJitter is the inclusive upper bound of the write-side column jitter.
// It stays strictly below one microsecond of picoseconds, so reconstruction
// at microsecond precision is unaffected.
const MaxJitter = PicosPerMicro - 1

// ToUTC normalizes a timestamp to UTC. Inputs carrying a zone are converted;
// Go timestamps always carry a location, so this is a plain conversion.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// FloorToHour zeroes minutes, seconds and sub-second parts, preserving the
// UTC year/month/day/hour of t.
func FloorToHour(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// PicosSinceHour returns the picoseconds elapsed between the start of t's
// UTC hour and t itself. The result fits a signed 64-bit integer since
// 60*60*1e12 < 2^63.
func PicosSinceHour(t time.Time) int64 {
	t = t.UTC()
	micros := int64(t.Minute()*60+t.Second())*1_000_000 + int64(t.Nanosecond()/1000)
	return micros * PicosPerMicro
}

// PicosWithinHour returns the picosecond offset of t relative to the given
// hour start. Unlike PicosSinceHour it is well defined for instants outside
// [hourStart, hourStart+1h), which the range reader needs for its exclusive
// boundary columns.
func PicosWithinHour(hourStart, t time.Time) int64 {
	return int64(t.Sub(hourStart)/time.Microsecond) * PicosPerMicro
}

// Reconstruct converts a high-resolution column name back to the instant it
// was written for, accurate to the microsecond. Integer division rounds any
// write-side jitter away.
func Reconstruct(hourStart time.Time, highres int64) time.Time {
	return hourStart.Add(time.Duration(highres/PicosPerMicro) * time.Microsecond)
}

// UnixMillis returns integer milliseconds since the Unix epoch.
func UnixMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// HourStamp renders the fixed-width YYYYMMDDHH UTC suffix of an hourly row key.
func HourStamp(t time.Time) string {
	return t.UTC().Format(hourStampLayout)
}

// ParseHourStamp recovers the shard's hour start from the trailing
// YYYYMMDDHH of an hourly row key.
func ParseHourStamp(rowKey string) (time.Time, error) {
	if len(rowKey) < len(hourStampLayout) {
		return time.Time{}, fmt.Errorf("core: row key %q too short for an hour stamp", rowKey)
	}
	stamp := rowKey[len(rowKey)-len(hourStampLayout):]
	t, err := time.ParseInLocation(hourStampLayout, stamp, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("core: bad hour stamp in row key %q: %w", rowKey, err)
	}
	return t, nil
}

// HourlyRowKey builds the canonical row key of one hourly shard.
// The format is stable; changing it is a schema break.
func HourlyRowKey(sourceID, dataName string, t time.Time) string {
	return strings.Join([]string{sourceID, dataName, HourStamp(t)}, "-")
}

// BlobRowKey builds the canonical row key of one blob entry.
func BlobRowKey(sourceID, dataName string, t time.Time) string {
	return fmt.Sprintf("%s-%s-%d", sourceID, dataName, UnixMillis(t.UTC()))
}

// IndexRowKey builds the canonical row key of one inverted-index row. The
// substring must already be normalized (see indexer.Normalize).
func IndexRowKey(sourceID, dataName, substring string) string {
	return strings.Join([]string{sourceID, dataName, substring}, "-")
}

// SourceID joins a namespace and a unit id into a composite source id.
func SourceID(namespace, uid string) string {
	return namespace + "." + uid
}

// EncodeOrderedInt64 encodes v as 8 big-endian bytes with the sign bit
// flipped, so that bytewise comparison of the encodings matches signed
// integer order. Column names cross the backend boundary in this form.
func EncodeOrderedInt64(v int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v)^(1<<63))
	return b[:]
}

// DecodeOrderedInt64 reverses EncodeOrderedInt64.
func DecodeOrderedInt64(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("core: ordered int64 must be 8 bytes, got %d", len(b))
	}
	return int64(binary.BigEndian.Uint64(b) ^ (1 << 63)), nil
}

// EncodeTimeColumn encodes an absolute UTC instant as an ordered column
// name with microsecond precision. Used by the blob and index column
// families, whose comparator is the timestamp itself.
func EncodeTimeColumn(t time.Time) []byte {
	return EncodeOrderedInt64(t.UTC().UnixMicro())
}

// DecodeTimeColumn reverses EncodeTimeColumn.
func DecodeTimeColumn(b []byte) (time.Time, error) {
	micros, err := DecodeOrderedInt64(b)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMicro(micros).UTC(), nil
}
