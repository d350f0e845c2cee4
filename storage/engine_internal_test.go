package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cats/core"
)

func TestHighResColumnExact(t *testing.T) {
	e := NewEngine(nil, Options{})
	ts := time.Date(1979, 6, 20, 6, 6, 7, 213462000, time.UTC)

	assert.Equal(t, core.PicosSinceHour(ts), e.highResColumn(ts, true))
}

func TestHighResColumnJitterBounds(t *testing.T) {
	e := NewEngine(nil, Options{})
	ts := time.Date(1979, 6, 20, 6, 6, 7, 213462000, time.UTC)
	picos := core.PicosSinceHour(ts)

	for i := 0; i < 1000; i++ {
		col := e.highResColumn(ts, false)
		jitter := col - picos
		assert.GreaterOrEqual(t, jitter, int64(1))
		assert.LessOrEqual(t, jitter, int64(core.MaxJitter))

		// The jitter stays below microsecond resolution, so it is rounded
		// away on reconstruction.
		assert.Equal(t, picos, (col/core.PicosPerMicro)*core.PicosPerMicro)
	}
}

func TestHighResColumnDisabledJitter(t *testing.T) {
	e := NewEngine(nil, Options{DisableJitter: true})
	ts := time.Date(1979, 6, 20, 6, 6, 7, 213462000, time.UTC)

	assert.Equal(t, core.PicosSinceHour(ts), e.highResColumn(ts, false))
}
