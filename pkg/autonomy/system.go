// Package autonomy generates autonomous character actions and dialogue.
//
// The system combines a character profile, the current story context, and the
// character's most relevant memories into an LLM prompt, validates the
// structured response, and stores the outcome back as a new memory so future
// actions are informed by past ones.
package autonomy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Arnaud58/LlamaKeeper/pkg/core"
	"github.com/Arnaud58/LlamaKeeper/pkg/llm"
)

// emotionImportance maps an emotional state to the importance of the memory
// created for the action. Stronger emotions make stickier memories.
var emotionImportance = map[string]float64{
	"excited":  0.8,
	"happy":    0.7,
	"neutral":  0.5,
	"sad":      0.6,
	"angry":    0.7,
	"fearful":  0.7,
	"confused": 0.6,
}

// defaultEmotionImportance is used for emotional states outside the map.
const defaultEmotionImportance = 0.5

// MemoryService is the slice of the memory client the autonomy system needs.
//
// *core.Client satisfies it.
type MemoryService interface {
	RetrieveRelevantMemories(ctx context.Context, characterID string, queryContext map[string]interface{}, opts ...core.RetrieveOption) ([]*core.Memory, error)
	CreateMemory(ctx context.Context, characterID, content string, opts ...core.CreateOption) (*core.Memory, error)
}

// Dialogue is a generated dialogue line.
type Dialogue struct {
	// CharacterID identifies the speaking character.
	CharacterID string `json:"character_id"`

	// Dialogue is the spoken text.
	Dialogue string `json:"dialogue"`

	// EmotionalTone is the tone of the line.
	EmotionalTone string `json:"emotional_tone"`

	// Subtext is the underlying meaning or motivation.
	Subtext string `json:"subtext"`
}

// System drives autonomous character behavior.
type System struct {
	provider llm.Provider
	memories MemoryService
}

// NewSystem creates an autonomy system over an LLM provider and a memory
// service.
func NewSystem(provider llm.Provider, memories MemoryService) *System {
	return &System{
		provider: provider,
		memories: memories,
	}
}

// GenerateAction generates an autonomous action for a character.
//
// The flow:
//  1. Retrieve the memories most relevant to the story context
//  2. Prompt the LLM with profile, context, recent actions, and memories
//  3. Parse and validate the structured response
//  4. Store the action as a new memory, weighted by emotional intensity
//
// A malformed LLM response never fails the call: the character falls back to
// a confused internal thought, which is itself remembered.
func (s *System) GenerateAction(ctx context.Context, character *core.Character, storyContext map[string]interface{}, recentActions []core.Action) (*core.Action, error) {
	if character == nil || character.ID == "" {
		return nil, core.NewKeeperError("GenerateAction", core.ErrInvalidCharacter)
	}

	relevant, err := s.memories.RetrieveRelevantMemories(ctx, character.ID, storyContext)
	if err != nil {
		return nil, err
	}

	prompt := buildActionPrompt(character, storyContext, recentActions, relevant)

	response, err := s.provider.Generate(ctx, prompt)
	if err != nil {
		return nil, core.NewKeeperError("GenerateAction", fmt.Errorf("%w: %v", core.ErrLLMOperation, err))
	}

	action := s.parseAction(response, character.ID)

	if err := s.rememberAction(ctx, action); err != nil {
		return nil, err
	}

	return action, nil
}

// GenerateDialogue generates a spoken line for a character.
//
// Like GenerateAction, the line is stored back as a dialogue memory tagged
// with its emotional tone.
func (s *System) GenerateDialogue(ctx context.Context, character *core.Character, storyContext map[string]interface{}, recentDialogue []string) (*Dialogue, error) {
	if character == nil || character.ID == "" {
		return nil, core.NewKeeperError("GenerateDialogue", core.ErrInvalidCharacter)
	}

	relevant, err := s.memories.RetrieveRelevantMemories(ctx, character.ID, storyContext)
	if err != nil {
		return nil, err
	}

	prompt := buildDialoguePrompt(character, storyContext, recentDialogue, relevant)

	response, err := s.provider.Generate(ctx, prompt)
	if err != nil {
		return nil, core.NewKeeperError("GenerateDialogue", fmt.Errorf("%w: %v", core.ErrLLMOperation, err))
	}

	dialogue := s.parseDialogue(response, character.ID)

	importance := importanceForEmotion(dialogue.EmotionalTone)
	_, err = s.memories.CreateMemory(ctx, character.ID, dialogue.Dialogue,
		core.WithImportance(importance),
		core.WithContext(map[string]interface{}{
			"action_type":     string(core.ActionDialogue),
			"emotional_state": dialogue.EmotionalTone,
		}),
	)
	if err != nil {
		return nil, err
	}

	return dialogue, nil
}

// parseAction validates the LLM response as a structured action.
//
// On any parse or validation failure the character falls back to a confused
// internal thought carrying the failure reason.
func (s *System) parseAction(response, characterID string) *core.Action {
	var parsed struct {
		ActionType     string `json:"action_type"`
		Content        string `json:"content"`
		EmotionalState string `json:"emotional_state"`
		Motivation     string `json:"motivation"`
	}

	err := json.Unmarshal([]byte(extractJSON(response)), &parsed)
	if err == nil {
		err = validateAction(parsed.ActionType, parsed.Content, parsed.EmotionalState, parsed.Motivation)
	}
	if err != nil {
		return &core.Action{
			CharacterID:    characterID,
			Type:           core.ActionInternalThought,
			Content:        fmt.Sprintf("I'm unsure what to do next. %v", err),
			EmotionalState: "confused",
			Motivation:     "processing complex situation",
		}
	}

	return &core.Action{
		CharacterID:    characterID,
		Type:           core.ActionType(parsed.ActionType),
		Content:        parsed.Content,
		EmotionalState: parsed.EmotionalState,
		Motivation:     parsed.Motivation,
	}
}

// parseDialogue validates the LLM response as a dialogue line, with the raw
// text as neutral fallback.
func (s *System) parseDialogue(response, characterID string) *Dialogue {
	var parsed struct {
		Dialogue      string `json:"dialogue"`
		EmotionalTone string `json:"emotional_tone"`
		Subtext       string `json:"subtext"`
	}

	if err := json.Unmarshal([]byte(extractJSON(response)), &parsed); err != nil || parsed.Dialogue == "" {
		return &Dialogue{
			CharacterID:   characterID,
			Dialogue:      strings.TrimSpace(response),
			EmotionalTone: "neutral",
		}
	}

	if parsed.EmotionalTone == "" {
		parsed.EmotionalTone = "neutral"
	}

	return &Dialogue{
		CharacterID:   characterID,
		Dialogue:      parsed.Dialogue,
		EmotionalTone: parsed.EmotionalTone,
		Subtext:       parsed.Subtext,
	}
}

// rememberAction stores the action as a memory of its acting character.
func (s *System) rememberAction(ctx context.Context, action *core.Action) error {
	content, err := json.Marshal(action)
	if err != nil {
		return core.NewKeeperError("GenerateAction", err)
	}

	_, err = s.memories.CreateMemory(ctx, action.CharacterID, string(content),
		core.WithImportance(importanceForEmotion(action.EmotionalState)),
		core.WithContext(map[string]interface{}{
			"action_type":     string(action.Type),
			"emotional_state": action.EmotionalState,
		}),
	)
	return err
}

// validateAction checks the structural requirements of a generated action.
func validateAction(actionType, content, emotionalState, motivation string) error {
	if content == "" || emotionalState == "" || motivation == "" {
		return fmt.Errorf("missing required field")
	}
	switch core.ActionType(actionType) {
	case core.ActionDialogue, core.ActionMovement, core.ActionInternalThought, core.ActionInteraction:
		return nil
	default:
		return fmt.Errorf("invalid action type: %q", actionType)
	}
}

// importanceForEmotion maps an emotional state to memory importance.
func importanceForEmotion(emotion string) float64 {
	if v, ok := emotionImportance[emotion]; ok {
		return v
	}
	return defaultEmotionImportance
}

// extractJSON pulls the first JSON object out of an LLM response.
//
// Models often wrap the object in prose or code fences; taking the outermost
// brace pair recovers the payload.
func extractJSON(response string) string {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return response
	}
	return response[start : end+1]
}
