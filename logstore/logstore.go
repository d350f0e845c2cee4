// Package logstore is a thin facade over the storage engine for
// application log messages. Messages are duplicated across exact source,
// source context and global scope, each with and without the level, so
// that the common browse and search cases are single key-to-row lookups.
// Write more, read fast.
package logstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cats/core"
	"cats/storage"
)

// Supported log levels.
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
	LevelDebug = "debug"
)

// GlobalContext is the synthetic source id that aggregates every context.
const GlobalContext = "__clg_glb__"

// anyLevel is the synthetic data name that aggregates every level.
const anyLevel = "__clg_any__"

// internalLevel hides the per-level data names, in case the same sources
// store other data too.
var internalLevel = map[string]string{
	LevelInfo:  "__clg_info__",
	LevelWarn:  "__clg_warn__",
	LevelError: "__clg_error__",
	LevelDebug: "__clg_debug__",
}

// ErrUnsupportedLevel reports a log level outside the supported set.
var ErrUnsupportedLevel = errors.New("logstore: unsupported log level")

// ErrBadArguments reports an illegal combination of optional query
// arguments.
var ErrBadArguments = errors.New("logstore: bad argument combination")

const secondsPerDay = 24 * 60 * 60

// Message is one stored log message.
type Message struct {
	SourceContext string
	LogSource     string
	Timestamp     time.Time
	Level         string
	Message       string
}

// Options configures the facade's tiers. Zero values select the defaults:
// 90/30/7 day TTLs and warn+error on the wider tiers. The exact tier
// always stores every level.
type Options struct {
	TTLDaysExact         int
	TTLDaysSourceContext int
	TTLDaysGlobalContext int

	// LevelsForSourceContext and LevelsForGlobalContext select which
	// levels are duplicated onto the wider tiers; info and debug are
	// rarely worth storing there.
	LevelsForSourceContext []string
	LevelsForGlobalContext []string
}

// Store writes and reads log messages through a storage engine. Running it
// against a dedicated keyspace is a good idea; the TTLs keep the log and
// its indexes from growing without bound.
type Store struct {
	engine *storage.Engine

	ttlExact  time.Duration
	ttlSource time.Duration
	ttlGlobal time.Duration

	levelsSource map[string]bool
	levelsGlobal map[string]bool
}

// New builds a facade over the given engine.
func New(engine *storage.Engine, opts Options) *Store {
	days := func(d, fallback int) time.Duration {
		if d <= 0 {
			d = fallback
		}
		return time.Duration(d) * secondsPerDay * time.Second
	}
	levels := func(ls []string) map[string]bool {
		if ls == nil {
			ls = []string{LevelWarn, LevelError}
		}
		set := make(map[string]bool, len(ls))
		for _, l := range ls {
			set[l] = true
		}
		return set
	}
	return &Store{
		engine:       engine,
		ttlExact:     days(opts.TTLDaysExact, 90),
		ttlSource:    days(opts.TTLDaysSourceContext, 30),
		ttlGlobal:    days(opts.TTLDaysGlobalContext, 7),
		levelsSource: levels(opts.LevelsForSourceContext),
		levelsGlobal: levels(opts.LevelsForGlobalContext),
	}
}

// Info logs at info level.
func (s *Store) Info(ctx context.Context, sourceContext, logSource string, ts time.Time, message string) error {
	return s.Log(ctx, sourceContext, logSource, ts, LevelInfo, message)
}

// Warn logs at warn level.
func (s *Store) Warn(ctx context.Context, sourceContext, logSource string, ts time.Time, message string) error {
	return s.Log(ctx, sourceContext, logSource, ts, LevelWarn, message)
}

// Error logs at error level.
func (s *Store) Error(ctx context.Context, sourceContext, logSource string, ts time.Time, message string) error {
	return s.Log(ctx, sourceContext, logSource, ts, LevelError, message)
}

// Debug logs at debug level.
func (s *Store) Debug(ctx context.Context, sourceContext, logSource string, ts time.Time, message string) error {
	return s.Log(ctx, sourceContext, logSource, ts, LevelDebug, message)
}

// Log stores one message, fanned out across the context tiers. The source
// context is the higher grouping level (projects, namespaces, customer
// groups); callers that do not need it can pass a shared constant.
func (s *Store) Log(ctx context.Context, sourceContext, logSource string, ts time.Time, level, message string) error {
	levelName, ok := internalLevel[level]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedLevel, level)
	}

	// The rendered payload repeats context, source and level so that a hit
	// on any tier can be unpacked back into a full message.
	internal := strings.Join([]string{sourceContext, logSource, level, message}, "|")

	datum := func(sourceID, dataName string) *core.TimestampedDatum {
		return &core.TimestampedDatum{
			SourceID:    sourceID,
			Timestamp:   ts,
			DataName:    dataName,
			DataValue:   []byte(internal),
			StrForIndex: message,
		}
	}

	exactID := core.SourceID(sourceContext, logSource)
	var exact, source, global []*core.TimestampedDatum
	exact = []*core.TimestampedDatum{datum(exactID, levelName), datum(exactID, anyLevel)}
	if s.levelsSource[level] {
		source = []*core.TimestampedDatum{datum(sourceContext, levelName), datum(sourceContext, anyLevel)}
	}
	if s.levelsGlobal[level] {
		global = []*core.TimestampedDatum{datum(GlobalContext, levelName), datum(GlobalContext, anyLevel)}
	}

	if s.ttlExact == s.ttlSource && s.ttlExact == s.ttlGlobal {
		all := append(append(exact, source...), global...)
		return s.engine.BatchInsertIndexableBlobs(ctx, all, s.ttlExact)
	}
	if err := s.engine.BatchInsertIndexableBlobs(ctx, exact, s.ttlExact); err != nil {
		return err
	}
	if err := s.engine.BatchInsertIndexableBlobs(ctx, source, s.ttlSource); err != nil {
		return err
	}
	return s.engine.BatchInsertIndexableBlobs(ctx, global, s.ttlGlobal)
}

// Query selects which messages to load. Optional fields are zero-valued
// when unset. LogSource requires SourceContext; a load must give at least
// a free text or a time bound, and a pure date-range load needs both
// bounds.
type Query struct {
	FreeText      string
	SourceContext string
	LogSource     string
	Level         string
	From, To      time.Time
}

// FreeTextSearch finds messages matching the query's free text within the
// selected context tier and optional time window.
func (s *Store) FreeTextSearch(ctx context.Context, q Query) ([]Message, error) {
	return s.load(ctx, q)
}

// LoadByDateRange browses messages by time window alone.
func (s *Store) LoadByDateRange(ctx context.Context, q Query) ([]Message, error) {
	q.FreeText = ""
	return s.load(ctx, q)
}

func (s *Store) load(ctx context.Context, q Query) ([]Message, error) {
	if q.LogSource != "" && q.SourceContext == "" {
		return nil, fmt.Errorf("%w: log source given without a source context", ErrBadArguments)
	}
	if q.FreeText == "" && q.From.IsZero() && q.To.IsZero() {
		return nil, fmt.Errorf("%w: neither free text nor a time span was supplied", ErrBadArguments)
	}
	if q.FreeText == "" && (q.From.IsZero() || q.To.IsZero()) {
		return nil, fmt.Errorf("%w: a date-range load needs both bounds", ErrBadArguments)
	}

	dataName := anyLevel
	if q.Level != "" {
		name, ok := internalLevel[q.Level]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedLevel, q.Level)
		}
		dataName = name
	}

	var sourceID string
	switch {
	case q.SourceContext != "" && q.LogSource != "":
		sourceID = core.SourceID(q.SourceContext, q.LogSource)
	case q.SourceContext != "":
		sourceID = q.SourceContext
	default:
		sourceID = GlobalContext
	}

	var tuples []storage.TimestampedValue
	var err error
	if q.FreeText != "" {
		tuples, err = s.engine.GetBlobsByFreeText(ctx, sourceID, dataName, q.FreeText, q.From, q.To)
	} else {
		tuples, err = s.engine.GetRange(ctx, sourceID, dataName, q.From, q.To, 0)
	}
	if err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(tuples))
	for _, tuple := range tuples {
		parts := strings.SplitN(string(tuple.Value), "|", 4)
		if len(parts) != 4 {
			return nil, fmt.Errorf("logstore: malformed stored message %q", tuple.Value)
		}
		messages = append(messages, Message{
			SourceContext: parts[0],
			LogSource:     parts[1],
			Timestamp:     tuple.Timestamp,
			Level:         parts[2],
			Message:       parts[3],
		})
	}
	return messages, nil
}
