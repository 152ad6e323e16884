// Package core provides the main LlamaKeeper client and memory management functionality.
package core

import (
	"github.com/Arnaud58/LlamaKeeper/pkg/storage"
)

// toStorageRecord converts a core.Memory to storage.Record.
//
// This function is used internally to convert between package types
// to avoid circular dependencies.
func toStorageRecord(m *Memory) *storage.Record {
	return &storage.Record{
		ID:          m.ID,
		CharacterID: m.CharacterID,
		Content:     m.Content,
		Importance:  m.Importance,
		Context:     m.Context,
		CreatedAt:   m.CreatedAt,
	}
}

// fromStorageRecord converts a storage.Record to core.Memory.
//
// This function is used internally to convert between package types
// to avoid circular dependencies.
func fromStorageRecord(r *storage.Record) *Memory {
	return &Memory{
		ID:          r.ID,
		CharacterID: r.CharacterID,
		Content:     r.Content,
		Importance:  r.Importance,
		Context:     r.Context,
		CreatedAt:   r.CreatedAt,
	}
}

// fromStorageRecords converts a slice of storage.Record to a slice of core.Memory.
//
// This function is used internally for batch conversion between package types.
func fromStorageRecords(records []*storage.Record) []*Memory {
	result := make([]*Memory, len(records))
	for i, r := range records {
		result[i] = fromStorageRecord(r)
	}
	return result
}
