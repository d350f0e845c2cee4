package storage

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"cats/core"
	"cats/indexer"
)

// maxColumns caps how many columns a single row read asks for when the
// caller does not supply a limit. One hourly shard holds at most one
// column per sample; a second of samples per second fits well below this.
const maxColumns = 60 * 60 * 24

// TimestampedValue is one (timestamp, payload) pair returned by reads.
type TimestampedValue struct {
	Timestamp time.Time
	Value     []byte
}

// Options configures an Engine. The zero value is usable: no logger, no
// cache, default index depth, jitter enabled.
type Options struct {
	// Logger receives debug traces of row-key activity. Nil disables logging.
	Logger *zap.Logger

	// IndexDepth bounds the word n-grams of the inverted index.
	// Values below one select indexer.DefaultDepth.
	IndexDepth int

	// DisableJitter turns off the sub-microsecond write-side column
	// perturbation. Only tests that need bit-exact column names should
	// set this; concurrent same-microsecond writes will then collide.
	DisableJitter bool

	// Cache, when set, is consulted for whole historical shards by Shard
	// and WarmUp. GetRange never uses it.
	Cache Cache

	// CacheTTL overrides the lifetime hint passed on cache adds.
	// Zero selects DefaultCacheTTL.
	CacheTTL time.Duration
}

// Engine orchestrates inserts and reads across the three coordinated
// column families plus the optional latest-snapshot family. It is
// stateless apart from the backend handle, the jitter randomizer and two
// informational counters, and is safe for concurrent use to the extent the
// backend is.
type Engine struct {
	backend Backend
	indexer *indexer.StringIndexer
	log     *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand

	disableJitter bool
	cache         Cache
	cacheTTL      time.Duration

	countersMu sync.Mutex
	cacheHits  int64
	dailyGets  int64
}

// NewEngine builds an engine over the given backend.
func NewEngine(backend Backend, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Engine{
		backend:       backend,
		indexer:       indexer.New(opts.IndexDepth),
		log:           log,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		disableJitter: opts.DisableJitter,
		cache:         opts.Cache,
		cacheTTL:      cacheTTL,
	}
}

// Indexer exposes the engine's string indexer, e.g. for callers that build
// manual index entries with the same depth configuration.
func (e *Engine) Indexer() *indexer.StringIndexer {
	return e.indexer
}

// CacheHits reports how many shard reads were served from the cache.
// Informational only.
func (e *Engine) CacheHits() int64 {
	e.countersMu.Lock()
	defer e.countersMu.Unlock()
	return e.cacheHits
}

// DailyGets reports how many shard reads went to the backend.
// Informational only.
func (e *Engine) DailyGets() int64 {
	e.countersMu.Lock()
	defer e.countersMu.Unlock()
	return e.dailyGets
}

// highResColumn converts an instant to its hourly column name. Exact mode
// returns the bare picosecond offset; otherwise a jitter in [1, MaxJitter]
// is added so that samples sharing a microsecond get distinct columns.
// Reads always use exact mode, since jittered bounds would widen the range
// non-deterministically.
func (e *Engine) highResColumn(t time.Time, exact bool) int64 {
	picos := core.PicosSinceHour(t)
	if exact || e.disableJitter {
		return picos
	}
	e.mu.Lock()
	jitter := 1 + e.rng.Int63n(core.MaxJitter)
	e.mu.Unlock()
	return picos + jitter
}

// InsertTimestamped writes one sample into its hourly shard.
func (e *Engine) InsertTimestamped(ctx context.Context, d *core.TimestampedDatum, ttl time.Duration) error {
	col := Column{
		Name:  core.EncodeOrderedInt64(e.highResColumn(d.UTC(), false)),
		Value: d.DataValue,
	}
	if err := e.backend.Insert(ctx, CFHourly, d.RowKeyHourly(), []Column{col}, ttl); err != nil {
		return fmt.Errorf("storage: insert timestamped: %w", err)
	}
	return nil
}

// BatchInsertTimestamped groups samples by hourly shard and writes them in
// a single backend batch. Nil entries are skipped; an all-nil or empty
// batch is a no-op with no backend call. Samples within a batch that
// collide on the same high-resolution column overwrite each other; the
// engine does not deduplicate.
func (e *Engine) BatchInsertTimestamped(ctx context.Context, datums []*core.TimestampedDatum, ttl time.Duration) error {
	rows := e.buildHourlyRows(datums)
	if len(rows) == 0 {
		return nil
	}
	if err := e.backend.BatchInsert(ctx, CFHourly, rows, ttl); err != nil {
		return fmt.Errorf("storage: batch insert timestamped: %w", err)
	}
	return nil
}

func (e *Engine) buildHourlyRows(datums []*core.TimestampedDatum) map[string][]Column {
	rows := make(map[string][]Column)
	for _, d := range datums {
		if d == nil {
			continue
		}
		key := d.RowKeyHourly()
		rows[key] = append(rows[key], Column{
			Name:  core.EncodeOrderedInt64(e.highResColumn(d.UTC(), false)),
			Value: d.DataValue,
		})
	}
	return rows
}

// InsertBlob writes the datum's payload as one blob entry and returns the
// blob row key for index construction.
func (e *Engine) InsertBlob(ctx context.Context, d *core.TimestampedDatum, ttl time.Duration) (string, error) {
	rowKey := d.RowKeyBlob()
	col := Column{Name: core.EncodeTimeColumn(d.UTC()), Value: d.DataValue}
	if err := e.backend.Insert(ctx, CFBlob, rowKey, []Column{col}, ttl); err != nil {
		return "", fmt.Errorf("storage: insert blob: %w", err)
	}
	return rowKey, nil
}

// BatchInsertIndexes appends the given entries to their inverted-index
// rows in one backend batch. Callers use this directly when indexing
// non-text blobs by hand.
func (e *Engine) BatchInsertIndexes(ctx context.Context, entries []*core.BlobIndexEntry, ttl time.Duration) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make(map[string][]Column, len(entries))
	for _, entry := range entries {
		key := entry.RowKey()
		rows[key] = append(rows[key], Column{
			Name:  core.EncodeTimeColumn(entry.UTC()),
			Value: []byte(entry.BlobRowKey),
		})
	}
	if err := e.backend.BatchInsert(ctx, CFBlobIndex, rows, ttl); err != nil {
		return fmt.Errorf("storage: batch insert indexes: %w", err)
	}
	return nil
}

// InsertIndexableBlob fans one datum out to all three families: the hourly
// time series, the blob store, and one index entry per substring of the
// datum's indexable text. All writes share the same TTL. The fan-out is
// best-effort sequential; a failure partway leaves earlier writes in
// place, and callers that need all-or-nothing must retry.
func (e *Engine) InsertIndexableBlob(ctx context.Context, d *core.TimestampedDatum, ttl time.Duration) error {
	if err := e.InsertTimestamped(ctx, d, ttl); err != nil {
		return err
	}
	blobRowKey, err := e.InsertBlob(ctx, d, ttl)
	if err != nil {
		return err
	}
	return e.BatchInsertIndexes(ctx, e.indexer.BuildEntries(d, blobRowKey), ttl)
}

// BatchInsertIndexableBlobs is the batched form of InsertIndexableBlob:
// one time-series batch, one blob batch, and one index batch aggregating
// the entries of every input. Nil datums are filtered out; an empty result
// is a no-op with no backend call.
func (e *Engine) BatchInsertIndexableBlobs(ctx context.Context, datums []*core.TimestampedDatum, ttl time.Duration) error {
	var live []*core.TimestampedDatum
	for _, d := range datums {
		if d != nil {
			live = append(live, d)
		}
	}
	if len(live) == 0 {
		return nil
	}

	if err := e.BatchInsertTimestamped(ctx, live, ttl); err != nil {
		return err
	}

	blobRows := make(map[string][]Column, len(live))
	var indexEntries []*core.BlobIndexEntry
	for _, d := range live {
		blobRowKey := d.RowKeyBlob()
		blobRows[blobRowKey] = append(blobRows[blobRowKey], Column{
			Name:  core.EncodeTimeColumn(d.UTC()),
			Value: d.DataValue,
		})
		indexEntries = append(indexEntries, e.indexer.BuildEntries(d, blobRowKey)...)
	}

	if err := e.backend.BatchInsert(ctx, CFBlob, blobRows, ttl); err != nil {
		return fmt.Errorf("storage: batch insert blobs: %w", err)
	}
	return e.BatchInsertIndexes(ctx, indexEntries, ttl)
}
