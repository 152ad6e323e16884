// Package storage provides interfaces and types for durable memory storage backends.
//
// It defines the Store interface that all storage implementations must satisfy,
// along with the persisted memory record type. The relevance engine operates on
// records loaded through this interface; it never reaches into a backend itself.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrRecordNotFound indicates that a requested memory record does not exist.
//
// Backends return this error (possibly wrapped) from Get and UpdateImportance
// when the id does not resolve. DeleteMany never returns it: deleting a
// missing record is a no-op.
var ErrRecordNotFound = errors.New("record not found")

// Record represents a memory record as persisted by a storage backend.
//
// This type is defined in the storage package to avoid circular dependencies
// with the core package. It mirrors the core.Memory structure minus the
// retrieval-only fields.
type Record struct {
	// ID is the unique identifier of the memory.
	ID int64

	// CharacterID identifies the character who owns this memory.
	CharacterID string

	// Content is the text content of the memory.
	Content string

	// Importance is the importance weight of the memory (0.0-1.0).
	Importance float64

	// Context contains the flat scalar tags used for relevance matching.
	// Serialized as JSON by the backends.
	Context map[string]interface{}

	// CreatedAt is when the memory was created. Immutable after insert.
	CreatedAt time.Time
}

// Store defines the interface for durable memory storage backends.
//
// All storage implementations (SQLite, PostgreSQL, MySQL) must implement this
// interface. Implementations do not interpret Content or Context; both are
// opaque payloads owned by the caller.
type Store interface {
	// Insert persists a new memory record. The caller assigns ID and CreatedAt.
	Insert(ctx context.Context, record *Record) error

	// Get retrieves a record by id. Returns ErrRecordNotFound if it does not exist.
	Get(ctx context.Context, id int64) (*Record, error)

	// ListByCharacter returns every record owned by the character, unordered.
	// A character with zero records yields an empty slice, not an error.
	ListByCharacter(ctx context.Context, characterID string) ([]*Record, error)

	// UpdateImportance overwrites the importance of an existing record.
	// Returns ErrRecordNotFound if the id does not resolve. CreatedAt and
	// Context are left untouched.
	UpdateImportance(ctx context.Context, id int64, importance float64) error

	// DeleteMany removes the named records. Missing ids are skipped silently.
	DeleteMany(ctx context.Context, ids []int64) error

	// DeleteByCharacter removes every record owned by the character.
	DeleteByCharacter(ctx context.Context, characterID string) error

	// Close closes the store and releases resources.
	Close() error
}
