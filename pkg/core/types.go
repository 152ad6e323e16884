// Package core provides the main LlamaKeeper client and memory management functionality.
package core

import "time"

// Memory represents a single memory held by a character.
//
// A memory contains:
//   - Content: the narrative text payload (description, serialized dialogue or action)
//   - Importance: weight in [0.0, 1.0] used for ranking and forgetting
//   - Context: flat scalar tags used for exact-match relevance scoring
//
// Example:
//
//	memory := &core.Memory{
//	    ID:          1234567890,
//	    CharacterID: "char_001",
//	    Content:     "Met the ranger at the old mill",
//	    Importance:  0.7,
//	    Context: map[string]interface{}{
//	        "loc": "forest",
//	    },
//	}
type Memory struct {
	// ID is the unique identifier of the memory. Assigned at creation,
	// never reused.
	ID int64 `json:"id"`

	// CharacterID identifies the character who owns this memory. Every
	// memory belongs to exactly one character.
	CharacterID string `json:"character_id"`

	// Content is the text content of the memory. Never empty.
	Content string `json:"content"`

	// Importance is the importance weight (0.0-1.0). Out-of-range values
	// are clamped silently on every write.
	Importance float64 `json:"importance"`

	// Context contains the flat scalar tags used for relevance matching.
	Context map[string]interface{} `json:"context,omitempty"`

	// CreatedAt is when the memory was created. Immutable; used for time
	// decay and as an eviction tie-breaker.
	CreatedAt time.Time `json:"created_at"`

	// Relevance is the clamped [0,1] relevance score from retrieval
	// operations. Zero outside the retrieval path.
	Relevance float64 `json:"relevance,omitempty"`
}

// Character describes a story character for generation purposes.
//
// Characters are not persisted by this module; callers supply the profile
// with each generation request.
type Character struct {
	// ID identifies the character. Memories are scoped to this id.
	ID string `json:"id"`

	// Name is the character's display name.
	Name string `json:"name"`

	// Description is the character's background text.
	Description string `json:"description,omitempty"`

	// Personality contains free-form personality traits.
	Personality map[string]interface{} `json:"personality,omitempty"`
}

// ActionType classifies a generated character action.
type ActionType string

const (
	// ActionDialogue is spoken dialogue.
	ActionDialogue ActionType = "dialogue"

	// ActionMovement is physical movement within the scene.
	ActionMovement ActionType = "movement"

	// ActionInternalThought is unspoken internal monologue.
	ActionInternalThought ActionType = "internal_thought"

	// ActionInteraction is an interaction with another character or object.
	ActionInteraction ActionType = "interaction"
)

// Action is a generated character action.
type Action struct {
	// CharacterID identifies the acting character.
	CharacterID string `json:"character_id"`

	// Type classifies the action.
	Type ActionType `json:"action_type"`

	// Content is the detailed description of the action.
	Content string `json:"content"`

	// EmotionalState is the character's emotional response.
	EmotionalState string `json:"emotional_state"`

	// Motivation is the underlying reason for the action.
	Motivation string `json:"motivation"`
}

// clampImportance clamps an importance value into [0, 1].
//
// Applied on create and on update; out-of-range inputs are never rejected.
func clampImportance(importance float64) float64 {
	if importance < 0 {
		return 0
	}
	if importance > 1 {
		return 1
	}
	return importance
}
