package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cats/storage"
)

func col(name, value string) storage.Column {
	return storage.Column{Name: []byte(name), Value: []byte(value)}
}

func TestGetMissingRowIsNotFound(t *testing.T) {
	b := New()

	_, err := b.Get(context.Background(), storage.CFHourly, "nope", nil, nil, 0, false)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestInsertAndSlice(t *testing.T) {
	b := New()
	ctx := context.Background()

	// Insert out of order; reads come back in comparator order.
	require.NoError(t, b.Insert(ctx, storage.CFHourly, "row", []storage.Column{
		col("c", "3"), col("a", "1"), col("b", "2"), col("d", "4"),
	}, 0))

	cols, err := b.Get(ctx, storage.CFHourly, "row", nil, nil, 0, false)
	require.NoError(t, err)
	require.Len(t, cols, 4)
	assert.Equal(t, []byte("a"), cols[0].Name)
	assert.Equal(t, []byte("d"), cols[3].Name)

	// Bounds are inclusive on both sides.
	cols, err = b.Get(ctx, storage.CFHourly, "row", []byte("b"), []byte("c"), 0, false)
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, []byte("b"), cols[0].Name)
	assert.Equal(t, []byte("c"), cols[1].Name)
}

func TestGetReversedAndLimited(t *testing.T) {
	b := New()
	ctx := context.Background()

	require.NoError(t, b.Insert(ctx, storage.CFHourly, "row", []storage.Column{
		col("a", "1"), col("b", "2"), col("c", "3"),
	}, 0))

	cols, err := b.Get(ctx, storage.CFHourly, "row", nil, nil, 2, true)
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, []byte("c"), cols[0].Name)
	assert.Equal(t, []byte("b"), cols[1].Name)
}

func TestInsertOverwritesSameColumn(t *testing.T) {
	b := New()
	ctx := context.Background()

	require.NoError(t, b.Insert(ctx, storage.CFHourly, "row", []storage.Column{col("a", "old")}, 0))
	require.NoError(t, b.Insert(ctx, storage.CFHourly, "row", []storage.Column{col("a", "new")}, 0))

	cols, err := b.Get(ctx, storage.CFHourly, "row", nil, nil, 0, false)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, []byte("new"), cols[0].Value)
}

func TestBatchInsertAndMultiGet(t *testing.T) {
	b := New()
	ctx := context.Background()

	require.NoError(t, b.BatchInsert(ctx, storage.CFBlob, map[string][]storage.Column{
		"row1": {col("a", "1")},
		"row2": {col("b", "2")},
	}, 0))

	rows, err := b.MultiGet(ctx, storage.CFBlob, []string{"row1", "row2", "missing"}, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []byte("1"), rows["row1"][0].Value)
	assert.Equal(t, []byte("2"), rows["row2"][0].Value)
}

func TestTTLExpiry(t *testing.T) {
	b := New()
	ctx := context.Background()

	require.NoError(t, b.Insert(ctx, storage.CFBlob, "row", []storage.Column{col("a", "1")}, time.Millisecond))
	require.NoError(t, b.Insert(ctx, storage.CFBlob, "row", []storage.Column{col("b", "2")}, time.Hour))

	time.Sleep(5 * time.Millisecond)

	cols, err := b.Get(ctx, storage.CFBlob, "row", nil, nil, 0, false)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, []byte("b"), cols[0].Name)
}

func TestRemove(t *testing.T) {
	b := New()
	ctx := context.Background()

	require.NoError(t, b.Insert(ctx, storage.CFLatest, "row", []storage.Column{col("a", "1")}, 0))
	require.NoError(t, b.Remove(ctx, storage.CFLatest, "row"))

	_, err := b.Get(ctx, storage.CFLatest, "row", nil, nil, 0, false)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Removing an absent row is fine.
	assert.NoError(t, b.Remove(ctx, storage.CFLatest, "row"))
}

func TestColumnFamiliesAreIsolated(t *testing.T) {
	b := New()
	ctx := context.Background()

	require.NoError(t, b.Insert(ctx, storage.CFHourly, "row", []storage.Column{col("a", "1")}, 0))

	_, err := b.Get(ctx, storage.CFBlob, "row", nil, nil, 0, false)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
