package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arnaud58/LlamaKeeper/pkg/core"
	"github.com/Arnaud58/LlamaKeeper/pkg/events"
	"github.com/Arnaud58/LlamaKeeper/pkg/storage"
)

// fakeStore is an in-memory storage.Store for client tests.
type fakeStore struct {
	records map[int64]*storage.Record
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[int64]*storage.Record)}
}

func (s *fakeStore) Insert(ctx context.Context, record *storage.Record) error {
	copied := *record
	s.records[record.ID] = &copied
	return nil
}

func (s *fakeStore) Get(ctx context.Context, id int64) (*storage.Record, error) {
	record, ok := s.records[id]
	if !ok {
		return nil, storage.ErrRecordNotFound
	}
	return record, nil
}

func (s *fakeStore) ListByCharacter(ctx context.Context, characterID string) ([]*storage.Record, error) {
	result := []*storage.Record{}
	for _, record := range s.records {
		if record.CharacterID == characterID {
			result = append(result, record)
		}
	}
	return result, nil
}

func (s *fakeStore) UpdateImportance(ctx context.Context, id int64, importance float64) error {
	record, ok := s.records[id]
	if !ok {
		return storage.ErrRecordNotFound
	}
	record.Importance = importance
	return nil
}

func (s *fakeStore) DeleteMany(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		delete(s.records, id)
	}
	return nil
}

func (s *fakeStore) DeleteByCharacter(ctx context.Context, characterID string) error {
	for id, record := range s.records {
		if record.CharacterID == characterID {
			delete(s.records, id)
		}
	}
	return nil
}

func (s *fakeStore) Close() error { return nil }

func testConfig() *core.Config {
	return &core.Config{
		Storage: core.StorageConfig{Provider: "sqlite"},
		LLM:     core.LLMConfig{Provider: "ollama", Model: "llama2"},
	}
}

func newTestClient(t *testing.T) (*core.Client, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	client, err := core.NewClientWithStore(testConfig(), store)
	require.NoError(t, err)
	return client, store
}

func TestCreateMemory(t *testing.T) {
	client, store := newTestClient(t)
	ctx := context.Background()

	memory, err := client.CreateMemory(ctx, "char_001", "Met the ranger",
		core.WithImportance(0.7),
		core.WithContext(map[string]interface{}{"loc": "forest"}),
	)
	require.NoError(t, err)

	assert.NotZero(t, memory.ID)
	assert.Equal(t, "char_001", memory.CharacterID)
	assert.Equal(t, 0.7, memory.Importance)
	assert.False(t, memory.CreatedAt.IsZero())
	assert.Len(t, store.records, 1)
}

func TestCreateMemoryDefaults(t *testing.T) {
	client, _ := newTestClient(t)

	memory, err := client.CreateMemory(context.Background(), "char_001", "plain memory")
	require.NoError(t, err)

	assert.Equal(t, 0.5, memory.Importance)
	assert.NotNil(t, memory.Context)
	assert.Empty(t, memory.Context)
}

func TestCreateMemoryInvalidContent(t *testing.T) {
	client, store := newTestClient(t)
	ctx := context.Background()

	_, err := client.CreateMemory(ctx, "char_001", "")
	assert.ErrorIs(t, err, core.ErrInvalidContent)

	_, err = client.CreateMemory(ctx, "char_001", "   \t\n ")
	assert.ErrorIs(t, err, core.ErrInvalidContent)

	// Nothing persisted on failure.
	assert.Empty(t, store.records)
}

func TestCreateMemoryInvalidCharacter(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.CreateMemory(context.Background(), "", "content")
	assert.ErrorIs(t, err, core.ErrInvalidCharacter)
}

func TestCreateMemoryClampsImportance(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	high, err := client.CreateMemory(ctx, "char_001", "too high", core.WithImportance(1.5))
	require.NoError(t, err)
	assert.Equal(t, 1.0, high.Importance)

	low, err := client.CreateMemory(ctx, "char_001", "too low", core.WithImportance(-0.3))
	require.NoError(t, err)
	assert.Equal(t, 0.0, low.Importance)
}

func TestRetrieveRelevantMemories(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.CreateMemory(ctx, "char_001", "saw a wolf in the forest",
		core.WithImportance(0.8),
		core.WithContext(map[string]interface{}{"loc": "forest"}),
	)
	require.NoError(t, err)
	_, err = client.CreateMemory(ctx, "char_001", "royal banquet",
		core.WithImportance(0.9),
		core.WithContext(map[string]interface{}{"loc": "castle"}),
	)
	require.NoError(t, err)

	memories, err := client.RetrieveRelevantMemories(ctx, "char_001",
		map[string]interface{}{"loc": "forest"})
	require.NoError(t, err)
	require.Len(t, memories, 2)

	// Context match beats raw importance.
	assert.Equal(t, "saw a wolf in the forest", memories[0].Content)

	// Relevance is reported clamped into [0, 1].
	for _, m := range memories {
		assert.GreaterOrEqual(t, m.Relevance, 0.0)
		assert.LessOrEqual(t, m.Relevance, 1.0)
	}
}

func TestRetrieveRelevantMemoriesTopK(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		_, err := client.CreateMemory(ctx, "char_001", "memory", core.WithImportance(0.5))
		require.NoError(t, err)
	}

	memories, err := client.RetrieveRelevantMemories(ctx, "char_001", nil, core.WithTopK(3))
	require.NoError(t, err)
	assert.Len(t, memories, 3)

	// Default cap.
	memories, err = client.RetrieveRelevantMemories(ctx, "char_001", nil)
	require.NoError(t, err)
	assert.Len(t, memories, 5)
}

func TestRetrieveRelevantMemoriesEmptyCharacter(t *testing.T) {
	client, _ := newTestClient(t)

	memories, err := client.RetrieveRelevantMemories(context.Background(), "ghost", nil)
	require.NoError(t, err)
	assert.Empty(t, memories)
}

func TestUpdateMemoryImportance(t *testing.T) {
	client, store := newTestClient(t)
	ctx := context.Background()

	memory, err := client.CreateMemory(ctx, "char_001", "memory", core.WithImportance(0.5))
	require.NoError(t, err)

	require.NoError(t, client.UpdateMemoryImportance(ctx, memory.ID, 0.9))
	assert.Equal(t, 0.9, store.records[memory.ID].Importance)

	// Out-of-range values clamp on update too.
	require.NoError(t, client.UpdateMemoryImportance(ctx, memory.ID, 2.0))
	assert.Equal(t, 1.0, store.records[memory.ID].Importance)
}

func TestUpdateMemoryImportanceNotFound(t *testing.T) {
	client, _ := newTestClient(t)

	err := client.UpdateMemoryImportance(context.Background(), 424242, 0.5)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestForgetOldMemories(t *testing.T) {
	client, store := newTestClient(t)
	ctx := context.Background()

	ids := make([]int64, 10)
	for i := 0; i < 10; i++ {
		memory, err := client.CreateMemory(ctx, "char_001", "memory",
			core.WithImportance(float64(i)/10))
		require.NoError(t, err)
		ids[i] = memory.ID
	}

	evicted, err := client.ForgetOldMemories(ctx, "char_001",
		core.WithMaxMemories(5),
		core.WithForgetThreshold(0.3),
	)
	require.NoError(t, err)
	assert.Len(t, evicted, 5)
	assert.Len(t, store.records, 5)

	// The five most important survive.
	for i := 5; i < 10; i++ {
		assert.Contains(t, store.records, ids[i])
	}
}

func TestForgetOldMemoriesNoOp(t *testing.T) {
	client, store := newTestClient(t)
	ctx := context.Background()

	_, err := client.CreateMemory(ctx, "char_001", "keeper", core.WithImportance(0.9))
	require.NoError(t, err)

	evicted, err := client.ForgetOldMemories(ctx, "char_001")
	require.NoError(t, err)
	assert.Empty(t, evicted)
	assert.Len(t, store.records, 1)
}

func TestForgetOldMemoriesEmptyCharacter(t *testing.T) {
	client, _ := newTestClient(t)

	evicted, err := client.ForgetOldMemories(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, evicted)
}

func TestDeleteMemoriesIdempotent(t *testing.T) {
	client, store := newTestClient(t)
	ctx := context.Background()

	memory, err := client.CreateMemory(ctx, "char_001", "memory")
	require.NoError(t, err)

	require.NoError(t, client.DeleteMemories(ctx, memory.ID))
	assert.Empty(t, store.records)

	// Second delete of the same id is a no-op, not an error.
	require.NoError(t, client.DeleteMemories(ctx, memory.ID))
}

func TestPurgeCharacter(t *testing.T) {
	client, store := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := client.CreateMemory(ctx, "char_001", "memory")
		require.NoError(t, err)
	}
	other, err := client.CreateMemory(ctx, "char_002", "other")
	require.NoError(t, err)

	require.NoError(t, client.PurgeCharacter(ctx, "char_001"))
	assert.Len(t, store.records, 1)
	assert.Contains(t, store.records, other.ID)
}

func TestEventBusNotifications(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	bus := events.NewBus()
	client.AttachEventBus(bus)

	var stored, forgotten int
	bus.Subscribe(events.MemoryStored, func(e events.Event) {
		stored++
		assert.Equal(t, "char_001", e.Payload["character_id"])
	})
	bus.Subscribe(events.MemoryForgotten, func(e events.Event) { forgotten++ })

	_, err := client.CreateMemory(ctx, "char_001", "low value", core.WithImportance(0.1))
	require.NoError(t, err)

	_, err = client.ForgetOldMemories(ctx, "char_001", core.WithForgetThreshold(0.2))
	require.NoError(t, err)

	assert.Equal(t, 1, stored)
	assert.Equal(t, 1, forgotten)
}
