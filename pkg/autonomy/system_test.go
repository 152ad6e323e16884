package autonomy_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arnaud58/LlamaKeeper/pkg/autonomy"
	"github.com/Arnaud58/LlamaKeeper/pkg/core"
	"github.com/Arnaud58/LlamaKeeper/pkg/llm"
)

// scriptedProvider returns a fixed response and records the last prompt.
type scriptedProvider struct {
	response   string
	err        error
	lastPrompt string
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	p.lastPrompt = prompt
	return p.response, p.err
}

func (p *scriptedProvider) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	return p.response, p.err
}

func (p *scriptedProvider) Close() error { return nil }

// recordingMemories captures created memories and serves canned relevant ones.
type recordingMemories struct {
	relevant []*core.Memory
	created  []createdMemory
}

type createdMemory struct {
	characterID string
	content     string
	options     *core.CreateOptions
}

func (m *recordingMemories) RetrieveRelevantMemories(ctx context.Context, characterID string, queryContext map[string]interface{}, opts ...core.RetrieveOption) ([]*core.Memory, error) {
	return m.relevant, nil
}

func (m *recordingMemories) CreateMemory(ctx context.Context, characterID, content string, opts ...core.CreateOption) (*core.Memory, error) {
	options := &core.CreateOptions{Importance: 0.5}
	for _, opt := range opts {
		opt(options)
	}
	m.created = append(m.created, createdMemory{characterID, content, options})
	return &core.Memory{ID: int64(len(m.created)), CharacterID: characterID, Content: content}, nil
}

func testCharacter() *core.Character {
	return &core.Character{
		ID:          "elara",
		Name:        "Elara",
		Description: "A wandering herbalist.",
		Personality: map[string]interface{}{"curiosity": "high"},
	}
}

func TestGenerateAction(t *testing.T) {
	provider := &scriptedProvider{
		response: `{"action_type": "dialogue", "content": "Who goes there?", "emotional_state": "fearful", "motivation": "heard a noise"}`,
	}
	memories := &recordingMemories{
		relevant: []*core.Memory{
			{Content: "Heard wolves at night", Importance: 0.6},
		},
	}
	system := autonomy.NewSystem(provider, memories)

	action, err := system.GenerateAction(context.Background(), testCharacter(),
		map[string]interface{}{"loc": "forest"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "elara", action.CharacterID)
	assert.Equal(t, core.ActionDialogue, action.Type)
	assert.Equal(t, "Who goes there?", action.Content)
	assert.Equal(t, "fearful", action.EmotionalState)

	// Profile and memories made it into the prompt.
	assert.Contains(t, provider.lastPrompt, "Elara")
	assert.Contains(t, provider.lastPrompt, "Heard wolves at night")
}

func TestGenerateActionStoresMemory(t *testing.T) {
	provider := &scriptedProvider{
		response: `{"action_type": "movement", "content": "She slips behind a stall.", "emotional_state": "fearful", "motivation": "avoid the guards"}`,
	}
	memories := &recordingMemories{}
	system := autonomy.NewSystem(provider, memories)

	action, err := system.GenerateAction(context.Background(), testCharacter(), nil, nil)
	require.NoError(t, err)

	require.Len(t, memories.created, 1)
	created := memories.created[0]
	assert.Equal(t, "elara", created.characterID)

	// Fearful actions make sticky memories.
	assert.Equal(t, 0.7, created.options.Importance)
	assert.Equal(t, "movement", created.options.Context["action_type"])
	assert.Equal(t, "fearful", created.options.Context["emotional_state"])

	// The stored content is the serialized action.
	var stored core.Action
	require.NoError(t, json.Unmarshal([]byte(created.content), &stored))
	assert.Equal(t, action.Content, stored.Content)
}

func TestGenerateActionMalformedResponseFallsBack(t *testing.T) {
	provider := &scriptedProvider{response: "The character ponders silently."}
	memories := &recordingMemories{}
	system := autonomy.NewSystem(provider, memories)

	action, err := system.GenerateAction(context.Background(), testCharacter(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, core.ActionInternalThought, action.Type)
	assert.Equal(t, "confused", action.EmotionalState)
	assert.Contains(t, action.Content, "I'm unsure what to do next.")

	// The fallback is remembered too, at confused weight.
	require.Len(t, memories.created, 1)
	assert.Equal(t, 0.6, memories.created[0].options.Importance)
}

func TestGenerateActionInvalidType(t *testing.T) {
	provider := &scriptedProvider{
		response: `{"action_type": "teleport", "content": "zap", "emotional_state": "excited", "motivation": "magic"}`,
	}
	system := autonomy.NewSystem(provider, &recordingMemories{})

	action, err := system.GenerateAction(context.Background(), testCharacter(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, core.ActionInternalThought, action.Type)
}

func TestGenerateActionFencedJSON(t *testing.T) {
	provider := &scriptedProvider{
		response: "Here is the action:\n```json\n{\"action_type\": \"interaction\", \"content\": \"She hands over the satchel.\", \"emotional_state\": \"neutral\", \"motivation\": \"build trust\"}\n```",
	}
	system := autonomy.NewSystem(provider, &recordingMemories{})

	action, err := system.GenerateAction(context.Background(), testCharacter(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, core.ActionInteraction, action.Type)
	assert.Equal(t, "She hands over the satchel.", action.Content)
}

func TestGenerateActionNilCharacter(t *testing.T) {
	system := autonomy.NewSystem(&scriptedProvider{}, &recordingMemories{})

	_, err := system.GenerateAction(context.Background(), nil, nil, nil)
	assert.ErrorIs(t, err, core.ErrInvalidCharacter)
}

func TestGenerateDialogue(t *testing.T) {
	provider := &scriptedProvider{
		response: `{"dialogue": "The roads are not safe tonight.", "emotional_tone": "sad", "subtext": "warning the stranger"}`,
	}
	memories := &recordingMemories{}
	system := autonomy.NewSystem(provider, memories)

	dialogue, err := system.GenerateDialogue(context.Background(), testCharacter(),
		map[string]interface{}{"loc": "tavern"}, []string{"Stranger: Any news from the road?"})
	require.NoError(t, err)

	assert.Equal(t, "elara", dialogue.CharacterID)
	assert.Equal(t, "The roads are not safe tonight.", dialogue.Dialogue)
	assert.Equal(t, "sad", dialogue.EmotionalTone)
	assert.Equal(t, "warning the stranger", dialogue.Subtext)

	// The line is remembered at the sad weight with dialogue tags.
	require.Len(t, memories.created, 1)
	assert.Equal(t, 0.6, memories.created[0].options.Importance)
	assert.Equal(t, "dialogue", memories.created[0].options.Context["action_type"])
}

func TestGenerateDialogueRawFallback(t *testing.T) {
	provider := &scriptedProvider{response: "I have nothing to say."}
	system := autonomy.NewSystem(provider, &recordingMemories{})

	dialogue, err := system.GenerateDialogue(context.Background(), testCharacter(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "I have nothing to say.", dialogue.Dialogue)
	assert.Equal(t, "neutral", dialogue.EmotionalTone)
}
