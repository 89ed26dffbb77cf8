package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []Row {
	return []Row{
		{75, 0, 582, 0, 20, 1, 265000, 1.9, 130, 1, 0, 4, 1},
		{55, 0, 7861, 0, 38, 0, 263358.03, 1.1, 136, 1, 0, 6, 1},
		{65, 0, 146, 0, 20, 0, 162000, 1.3, 129, 1, 1, 7, 1},
		{50, 1, 111, 0, 20, 0, 210000, 1.9, 137, 1, 0, 7, 0},
		{45, 0, 2413, 0, 38, 0, 140000, 1.4, 140, 1, 1, 280, 0},
	}
}

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreInMemory(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, ":memory:")

	require.NoError(t, store.ReplaceRecords(ctx, sampleRows()))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	head, err := store.QueryHead(ctx, 2)
	require.NoError(t, err)
	require.Len(t, head, 2)
	assert.Equal(t, sampleRows()[0], head[0])
	assert.Equal(t, sampleRows()[1], head[1])

	counts, err := store.OutcomeCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 2, 1: 3}, counts)
}

func TestStoreReplaceRecords(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "reference.db"))

	require.NoError(t, store.ReplaceRecords(ctx, sampleRows()))
	require.NoError(t, store.ReplaceRecords(ctx, sampleRows()[:2]))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	err = store.ReplaceRecords(ctx, []Row{{1, 2, 3}})
	assert.Error(t, err)

	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "failed replace must roll back")
}

func TestStoreAggregates(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, ":memory:")
	require.NoError(t, store.ReplaceRecords(ctx, sampleRows()))

	agg, err := store.Aggregate(ctx, "age")
	require.NoError(t, err)
	assert.Equal(t, 5, agg.Count)
	assert.InDelta(t, 58.0, agg.Mean, 1e-9)
	assert.Equal(t, 45.0, agg.Min)
	assert.Equal(t, 75.0, agg.Max)

	values, err := store.SortedValues(ctx, "time")
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 6, 7, 7, 280}, values)

	_, err = store.Aggregate(ctx, "age; DROP TABLE clinical_records")
	assert.ErrorIs(t, err, ErrUnknownColumn)
	_, err = store.SortedValues(ctx, "weight")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestStoreEmptyAggregate(t *testing.T) {
	store := openStore(t, ":memory:")

	agg, err := store.Aggregate(context.Background(), "platelets")
	require.NoError(t, err)
	assert.Equal(t, Aggregate{}, agg)
}
