package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/Arnaud58/LlamaKeeper/pkg/events"
	"github.com/Arnaud58/LlamaKeeper/pkg/relevance"
	"github.com/Arnaud58/LlamaKeeper/pkg/storage"
	mysqlStore "github.com/Arnaud58/LlamaKeeper/pkg/storage/mysql"
	postgresStore "github.com/Arnaud58/LlamaKeeper/pkg/storage/postgres"
	sqliteStore "github.com/Arnaud58/LlamaKeeper/pkg/storage/sqlite"
)

// Client is the main LlamaKeeper client for character memory management.
//
// It provides a complete interface for storing, ranking, and forgetting
// character memories with support for:
//   - Exact-match context relevance scoring with linear time decay
//   - Bounded per-character memory via importance-threshold and capacity eviction
//   - Pluggable durable storage (SQLite, PostgreSQL, MySQL)
//
// The retrieval path is read-only. Writes for a single character must be
// serialized: the client's mutex serializes mutations within one process, but
// multi-process deployments need external coordination.
//
// Example usage:
//
//	config, _ := core.LoadConfigFromEnv()
//	client, _ := core.NewClient(config)
//	defer client.Close()
//
//	memory, _ := client.CreateMemory(ctx, "char_001", "Met the ranger at the old mill",
//	    core.WithImportance(0.7),
//	    core.WithContext(map[string]interface{}{"loc": "forest"}),
//	)
type Client struct {
	// config contains the client configuration.
	config *Config

	// storage is the durable store for memory persistence.
	storage storage.Store

	// engine computes relevance scores and eviction sets.
	engine *relevance.Engine

	// bus receives memory lifecycle events (nil if not attached).
	bus *events.Bus

	// snowflakeNode generates unique ids for memories.
	snowflakeNode *snowflake.Node

	// mu protects concurrent access to the client.
	mu sync.RWMutex
}

// NewClient creates a new LlamaKeeper client.
//
// The client is initialized with:
//   - Durable store (SQLite, PostgreSQL, or MySQL)
//   - Relevance engine configured from MemoryConfig
//
// Parameters:
//   - cfg: Configuration containing storage and memory settings
//
// Returns a new Client instance, or an error if initialization fails.
func NewClient(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := initStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}

	return NewClientWithStore(cfg, store)
}

// NewClientWithStore creates a client backed by an already-constructed store.
//
// Useful for tests and for callers that manage the store lifecycle themselves.
// The client takes ownership of the store and closes it on Close.
func NewClientWithStore(cfg *Config, store storage.Store) (*Client, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewKeeperError("NewClient", err)
	}

	engineOpts := []relevance.Option{}
	if cfg.Memory.DecayWindowDays > 0 {
		window := time.Duration(cfg.Memory.DecayWindowDays) * 24 * time.Hour
		engineOpts = append(engineOpts, relevance.WithDecayWindow(window))
	}

	return &Client{
		config:        cfg,
		storage:       store,
		engine:        relevance.NewEngine(engineOpts...),
		snowflakeNode: node,
	}, nil
}

// AttachEventBus attaches an event bus to the client.
//
// Once attached, the client publishes memory stored and memory forgotten
// events. The bus is passed by reference and owned by the caller.
func (c *Client) AttachEventBus(bus *events.Bus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bus = bus
}

// CreateMemory creates a new memory for a character.
//
// The method:
//  1. Validates that content is non-empty after trimming whitespace
//  2. Clamps importance into [0, 1] (default 0.5)
//  3. Assigns a unique id and creation timestamp
//  4. Persists the memory
//
// Parameters:
//   - ctx: Context for cancellation
//   - characterID: Owning character id
//   - content: Memory content (narrative text or serialized action)
//   - opts: Optional parameters (Importance, Context)
//
// Returns the created Memory, or ErrInvalidContent (wrapped) if content is
// empty or whitespace-only; no record is persisted on failure.
//
// Example:
//
//	memory, err := client.CreateMemory(ctx, "char_001", "The bridge collapsed",
//	    core.WithImportance(0.9),
//	    core.WithContext(map[string]interface{}{"loc": "river"}),
//	)
func (c *Client) CreateMemory(ctx context.Context, characterID, content string, opts ...CreateOption) (*Memory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if characterID == "" {
		return nil, NewKeeperError("CreateMemory", ErrInvalidCharacter)
	}
	if strings.TrimSpace(content) == "" {
		return nil, NewKeeperError("CreateMemory", ErrInvalidContent)
	}

	createOpts := applyCreateOptions(opts)

	memoryContext := createOpts.Context
	if memoryContext == nil {
		memoryContext = map[string]interface{}{}
	}

	memory := &Memory{
		ID:          c.snowflakeNode.Generate().Int64(),
		CharacterID: characterID,
		Content:     content,
		Importance:  clampImportance(createOpts.Importance),
		Context:     memoryContext,
		CreatedAt:   time.Now().UTC(),
	}

	if err := c.storage.Insert(ctx, toStorageRecord(memory)); err != nil {
		return nil, NewKeeperError("CreateMemory", err)
	}

	c.publish(events.MemoryStored, characterID, map[string]interface{}{
		"memory_id":  memory.ID,
		"importance": memory.Importance,
	})

	return memory, nil
}

// RetrieveRelevantMemories returns the most relevant memories for a character
// given a query context.
//
// Every memory owned by the character is scored by the relevance engine
// (context overlap + importance, linearly time-decayed), sorted descending by
// the composite score with descending importance breaking exact ties, and
// truncated to top-K (default 5). The Relevance field of each returned memory
// carries the score clamped into [0, 1].
//
// This operation never mutates state; a character with zero memories yields
// an empty result, not an error.
//
// Example:
//
//	memories, err := client.RetrieveRelevantMemories(ctx, "char_001",
//	    map[string]interface{}{"loc": "forest"},
//	    core.WithTopK(10),
//	)
func (c *Client) RetrieveRelevantMemories(ctx context.Context, characterID string, queryContext map[string]interface{}, opts ...RetrieveOption) ([]*Memory, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	retrieveOpts := applyRetrieveOptions(opts)
	topK := retrieveOpts.TopK
	if topK <= 0 {
		topK = c.defaultTopK()
	}

	records, err := c.storage.ListByCharacter(ctx, characterID)
	if err != nil {
		return nil, NewKeeperError("RetrieveRelevantMemories", err)
	}

	ranked := c.engine.Rank(records, queryContext, topK)

	memories := make([]*Memory, len(ranked))
	for i, scored := range ranked {
		memory := fromStorageRecord(scored.Record)
		memory.Relevance = relevance.Clamp01(scored.Score)
		memories[i] = memory
	}

	return memories, nil
}

// UpdateMemoryImportance overwrites the importance of an existing memory.
//
// The new value is clamped into [0, 1]. CreatedAt and Context are untouched.
//
// Returns ErrNotFound (wrapped) if the memory id does not resolve; the store
// is unchanged in that case.
func (c *Client) UpdateMemoryImportance(ctx context.Context, memoryID int64, newImportance float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.storage.UpdateImportance(ctx, memoryID, clampImportance(newImportance))
	if errors.Is(err, storage.ErrRecordNotFound) {
		return NewKeeperError("UpdateMemoryImportance", ErrNotFound)
	}
	if err != nil {
		return NewKeeperError("UpdateMemoryImportance", err)
	}

	return nil
}

// ListMemories returns every memory owned by the character, unordered.
//
// Ordering is the relevance engine's job; this is a raw enumeration.
func (c *Client) ListMemories(ctx context.Context, characterID string) ([]*Memory, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	records, err := c.storage.ListByCharacter(ctx, characterID)
	if err != nil {
		return nil, NewKeeperError("ListMemories", err)
	}

	return fromStorageRecords(records), nil
}

// DeleteMemories removes the named memories.
//
// Deleting a non-existent id is a no-op: the operation is idempotent and
// never returns ErrNotFound.
func (c *Client) DeleteMemories(ctx context.Context, ids ...int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.storage.DeleteMany(ctx, ids); err != nil {
		return NewKeeperError("DeleteMemories", err)
	}

	return nil
}

// ForgetOldMemories enforces the per-character memory bound.
//
// The eviction policy is a union of two rules applied independently:
//   - Every memory with importance below the forget threshold is evicted.
//   - If the character still holds more than max memories after that, the
//     least important (oldest first among equals) survivors are evicted
//     until the count is at or under the cap.
//
// Eviction is permanent deletion. Returns the evicted memory ids; a character
// with zero memories yields an empty result, not an error.
//
// Example:
//
//	evicted, err := client.ForgetOldMemories(ctx, "char_001",
//	    core.WithMaxMemories(50),
//	    core.WithForgetThreshold(0.3),
//	)
func (c *Client) ForgetOldMemories(ctx context.Context, characterID string, opts ...ForgetOption) ([]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	forgetOpts := applyForgetOptions(opts)
	maxMemories := forgetOpts.MaxMemories
	if maxMemories <= 0 {
		maxMemories = c.defaultMaxMemories()
	}
	threshold := forgetOpts.ForgetThreshold
	if threshold < 0 {
		threshold = c.defaultForgetThreshold()
	}

	records, err := c.storage.ListByCharacter(ctx, characterID)
	if err != nil {
		return nil, NewKeeperError("ForgetOldMemories", err)
	}

	evicted := relevance.EvictionSet(records, maxMemories, threshold)
	if len(evicted) == 0 {
		return evicted, nil
	}

	if err := c.storage.DeleteMany(ctx, evicted); err != nil {
		return nil, NewKeeperError("ForgetOldMemories", err)
	}

	c.publish(events.MemoryForgotten, characterID, map[string]interface{}{
		"memory_ids": evicted,
		"count":      len(evicted),
	})

	return evicted, nil
}

// PurgeCharacter permanently removes every memory owned by the character.
func (c *Client) PurgeCharacter(ctx context.Context, characterID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.storage.DeleteByCharacter(ctx, characterID); err != nil {
		return NewKeeperError("PurgeCharacter", err)
	}

	return nil
}

// Close closes the client and releases the underlying store.
//
// Example:
//
//	defer client.Close()
func (c *Client) Close() error {
	if c.storage != nil {
		return c.storage.Close()
	}
	return nil
}

// publish emits an event when a bus is attached. Caller holds the lock.
func (c *Client) publish(eventType events.EventType, characterID string, payload map[string]interface{}) {
	if c.bus == nil {
		return
	}
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payload["character_id"] = characterID
	c.bus.Publish(events.NewEvent(eventType, payload, "core"))
}

// defaultTopK returns the configured retrieval default.
func (c *Client) defaultTopK() int {
	if c.config != nil && c.config.Memory.TopK > 0 {
		return c.config.Memory.TopK
	}
	return relevance.DefaultTopK
}

// defaultMaxMemories returns the configured forgetting cap default.
func (c *Client) defaultMaxMemories() int {
	if c.config != nil && c.config.Memory.MaxMemories > 0 {
		return c.config.Memory.MaxMemories
	}
	return relevance.DefaultMaxMemories
}

// defaultForgetThreshold returns the configured threshold default.
func (c *Client) defaultForgetThreshold() float64 {
	if c.config != nil && c.config.Memory.ForgetThreshold > 0 {
		return c.config.Memory.ForgetThreshold
	}
	return relevance.DefaultForgetThreshold
}

// initStorage initializes the storage backend.
func initStorage(cfg StorageConfig) (storage.Store, error) {
	switch cfg.Provider {
	case "sqlite":
		return sqliteStore.NewClient(&sqliteStore.Config{
			DBPath:    stringValue(cfg.Config, "db_path"),
			TableName: stringValue(cfg.Config, "table_name"),
		})
	case "postgres":
		return postgresStore.NewClient(&postgresStore.Config{
			Host:      stringValue(cfg.Config, "host"),
			Port:      intValue(cfg.Config, "port"),
			User:      stringValue(cfg.Config, "user"),
			Password:  stringValue(cfg.Config, "password"),
			DBName:    stringValue(cfg.Config, "db_name"),
			TableName: stringValue(cfg.Config, "table_name"),
			SSLMode:   stringValue(cfg.Config, "ssl_mode"),
		})
	case "mysql":
		return mysqlStore.NewClient(&mysqlStore.Config{
			Host:      stringValue(cfg.Config, "host"),
			Port:      intValue(cfg.Config, "port"),
			User:      stringValue(cfg.Config, "user"),
			Password:  stringValue(cfg.Config, "password"),
			DBName:    stringValue(cfg.Config, "db_name"),
			TableName: stringValue(cfg.Config, "table_name"),
		})
	default:
		return nil, NewKeeperError("initStorage", ErrInvalidConfig)
	}
}

// stringValue reads a string from a provider config map.
func stringValue(config map[string]interface{}, key string) string {
	if v, ok := config[key].(string); ok {
		return v
	}
	return ""
}

// intValue reads an int from a provider config map.
//
// JSON-decoded configs carry numbers as float64, so both forms are accepted.
func intValue(config map[string]interface{}, key string) int {
	switch v := config[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
