package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arnaud58/LlamaKeeper/pkg/storage"
	"github.com/Arnaud58/LlamaKeeper/pkg/storage/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Client {
	t.Helper()
	client, err := sqlite.NewClient(&sqlite.Config{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func testRecord(id int64, characterID string, importance float64) *storage.Record {
	return &storage.Record{
		ID:          id,
		CharacterID: characterID,
		Content:     "test content",
		Importance:  importance,
		Context:     map[string]interface{}{"loc": "forest"},
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
}

func TestInsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := testRecord(1, "char_001", 0.7)
	require.NoError(t, store.Insert(ctx, record))

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, record.CharacterID, got.CharacterID)
	assert.Equal(t, record.Content, got.Content)
	assert.Equal(t, record.Importance, got.Importance)
	assert.Equal(t, "forest", got.Context["loc"])
}

func TestGetNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), 424242)
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)
}

func TestListByCharacter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testRecord(1, "char_001", 0.5)))
	require.NoError(t, store.Insert(ctx, testRecord(2, "char_001", 0.6)))
	require.NoError(t, store.Insert(ctx, testRecord(3, "char_002", 0.7)))

	records, err := store.ListByCharacter(ctx, "char_001")
	require.NoError(t, err)
	assert.Len(t, records, 2)

	// Unknown character yields an empty slice, not an error.
	records, err = store.ListByCharacter(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestUpdateImportance(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := testRecord(1, "char_001", 0.5)
	require.NoError(t, store.Insert(ctx, record))

	require.NoError(t, store.UpdateImportance(ctx, 1, 0.9))

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.9, got.Importance)

	// Context and creation time survive the update.
	assert.Equal(t, "forest", got.Context["loc"])
}

func TestUpdateImportanceNotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateImportance(context.Background(), 424242, 0.5)
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)
}

func TestDeleteMany(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testRecord(1, "char_001", 0.5)))
	require.NoError(t, store.Insert(ctx, testRecord(2, "char_001", 0.6)))
	require.NoError(t, store.Insert(ctx, testRecord(3, "char_001", 0.7)))

	require.NoError(t, store.DeleteMany(ctx, []int64{1, 3}))

	records, err := store.ListByCharacter(ctx, "char_001")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(2), records[0].ID)
}

func TestDeleteManyIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Unknown ids and empty slices are no-ops.
	assert.NoError(t, store.DeleteMany(ctx, []int64{424242}))
	assert.NoError(t, store.DeleteMany(ctx, nil))
}

func TestDeleteByCharacter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testRecord(1, "char_001", 0.5)))
	require.NoError(t, store.Insert(ctx, testRecord(2, "char_002", 0.6)))

	require.NoError(t, store.DeleteByCharacter(ctx, "char_001"))

	records, err := store.ListByCharacter(ctx, "char_001")
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = store.ListByCharacter(ctx, "char_002")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestNilContextRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := testRecord(1, "char_001", 0.5)
	record.Context = nil
	require.NoError(t, store.Insert(ctx, record))

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, got.Context)
	assert.Empty(t, got.Context)
}
