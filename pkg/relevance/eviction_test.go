package relevance_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arnaud58/LlamaKeeper/pkg/relevance"
	"github.com/Arnaud58/LlamaKeeper/pkg/storage"
)

func TestEvictionSetUnionPolicy(t *testing.T) {
	// Ten memories with importance 0.0 through 0.9, cap 5, threshold 0.3.
	// The threshold rule drops 0.0, 0.1, 0.2; the capacity rule then drops
	// 0.3 and 0.4 to get the remaining seven under the cap.
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	records := make([]*storage.Record, 10)
	for i := range records {
		records[i] = &storage.Record{
			ID:         int64(i),
			Importance: float64(i) / 10,
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
		}
	}

	evicted := relevance.EvictionSet(records, 5, 0.3)
	require.Len(t, evicted, 5)
	assert.ElementsMatch(t, []int64{0, 1, 2, 3, 4}, evicted)
}

func TestEvictionSetThresholdOnly(t *testing.T) {
	// Under the cap, but two memories sit below the threshold. They go
	// regardless of capacity.
	records := []*storage.Record{
		{ID: 1, Importance: 0.1},
		{ID: 2, Importance: 0.15},
		{ID: 3, Importance: 0.9},
	}

	evicted := relevance.EvictionSet(records, 100, 0.2)
	assert.ElementsMatch(t, []int64{1, 2}, evicted)
}

func TestEvictionSetCapacityOnly(t *testing.T) {
	// Everything clears the threshold; only the cap bites.
	records := []*storage.Record{
		{ID: 1, Importance: 0.5},
		{ID: 2, Importance: 0.6},
		{ID: 3, Importance: 0.7},
		{ID: 4, Importance: 0.8},
	}

	evicted := relevance.EvictionSet(records, 2, 0.2)
	assert.ElementsMatch(t, []int64{1, 2}, evicted)
}

func TestEvictionSetNoOp(t *testing.T) {
	records := []*storage.Record{
		{ID: 1, Importance: 0.5},
		{ID: 2, Importance: 0.9},
	}

	evicted := relevance.EvictionSet(records, 100, 0.2)
	assert.Empty(t, evicted)
}

func TestEvictionSetEmptyInput(t *testing.T) {
	evicted := relevance.EvictionSet(nil, 100, 0.2)
	assert.Empty(t, evicted)
}

func TestEvictionSetOldestFirstAmongEquals(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []*storage.Record{
		{ID: 1, Importance: 0.5, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 2, Importance: 0.5, CreatedAt: base},
		{ID: 3, Importance: 0.5, CreatedAt: base.Add(time.Hour)},
	}

	// Cap of 2 evicts exactly one: the oldest of the equal-importance group.
	evicted := relevance.EvictionSet(records, 2, 0.0)
	require.Len(t, evicted, 1)
	assert.Equal(t, int64(2), evicted[0])
}

func TestEvictionSetDefaultCap(t *testing.T) {
	records := make([]*storage.Record, relevance.DefaultMaxMemories+3)
	for i := range records {
		records[i] = &storage.Record{ID: int64(i), Importance: 0.5}
	}

	evicted := relevance.EvictionSet(records, 0, 0.0)
	assert.Len(t, evicted, 3)
}
