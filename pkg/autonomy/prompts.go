package autonomy

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Arnaud58/LlamaKeeper/pkg/core"
)

// buildActionPrompt assembles the prompt for autonomous action generation.
//
// The prompt layers the character profile, the current story context, recent
// actions, and the memories ranked most relevant to that context, then asks
// for a structured JSON action.
func buildActionPrompt(character *core.Character, storyContext map[string]interface{}, recentActions []core.Action, memories []*core.Memory) string {
	description := character.Description
	if description == "" {
		description = "No background available"
	}

	var b strings.Builder
	b.WriteString("Character Profile:\n")
	fmt.Fprintf(&b, "Name: %s\n", character.Name)
	fmt.Fprintf(&b, "Personality: %s\n", jsonString(character.Personality))
	fmt.Fprintf(&b, "Background: %s\n\n", description)

	b.WriteString("Current Story Context:\n")
	b.WriteString(jsonString(storyContext))
	b.WriteString("\n\n")

	b.WriteString("Recent Story Actions:\n")
	b.WriteString(jsonString(recentActions))
	b.WriteString("\n\n")

	b.WriteString("Relevant Memories:\n")
	b.WriteString(memoriesDigest(memories))
	b.WriteString("\n\n")

	b.WriteString(`Based on the above context, generate a thoughtful and contextually appropriate action
for the character. The action should reflect the character's personality,
current situation, and past experiences. Provide the action in JSON format with
the following structure:
{
    "action_type": "dialogue/movement/internal_thought/interaction",
    "content": "Detailed description of the action",
    "emotional_state": "character's emotional response",
    "motivation": "underlying reason for the action"
}`)

	return b.String()
}

// buildDialoguePrompt assembles the prompt for dialogue generation.
func buildDialoguePrompt(character *core.Character, storyContext map[string]interface{}, recentDialogue []string, memories []*core.Memory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a character with the following personality traits:\n", character.Name)
	b.WriteString(personalityLine(character.Personality))
	b.WriteString("\n\n")

	b.WriteString("Current Story Context:\n")
	b.WriteString(jsonString(storyContext))
	b.WriteString("\n\n")

	b.WriteString("Recent Dialogue History:\n")
	b.WriteString(strings.Join(recentDialogue, "\n"))
	b.WriteString("\n\n")

	b.WriteString("Relevant Memories:\n")
	b.WriteString(memoriesDigest(memories))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, `Generate a dialogue response that:
1. Reflects %s's personality
2. Is contextually appropriate
3. Advances the story
4. Shows emotional depth

Provide the response in this JSON format:
{
    "dialogue": "Spoken text",
    "emotional_tone": "excited/sad/neutral/angry",
    "subtext": "Underlying meaning or motivation"
}`, character.Name)

	return b.String()
}

// memoriesDigest renders ranked memories as a compact list for prompting.
func memoriesDigest(memories []*core.Memory) string {
	if len(memories) == 0 {
		return "(none)"
	}
	lines := make([]string, len(memories))
	for i, m := range memories {
		lines[i] = fmt.Sprintf("- %s (importance %.2f)", m.Content, m.Importance)
	}
	return strings.Join(lines, "\n")
}

// personalityLine renders personality traits as "key: value" pairs in a
// stable order.
func personalityLine(personality map[string]interface{}) string {
	if len(personality) == 0 {
		return "(unremarkable)"
	}
	keys := make([]string, 0, len(personality))
	for k := range personality {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %v", k, personality[k])
	}
	return strings.Join(parts, ", ")
}

// jsonString marshals a value for prompt embedding, falling back to "{}" on
// failure so a bad value never aborts generation.
func jsonString(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
