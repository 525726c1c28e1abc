package google

import (
	ai "github.com/spetersoncode/jdcompare"
	"google.golang.org/genai"
)

// convertMessages maps history onto Gemini roles and returns the combined
// instructions and document block as the request's system instruction.
func convertMessages(parts ai.PromptParts) ([]*genai.Content, *genai.Content) {
	system := &genai.Content{
		Parts: []*genai.Part{{Text: parts.SystemInstructions + "\n\n" + parts.DocumentBlock}},
	}

	contents := make([]*genai.Content, 0, len(parts.History)+1)
	for _, msg := range parts.History {
		// Gemini rejects parts without data
		if msg.Content == "" {
			continue
		}
		role := genai.Role(genai.RoleUser)
		if msg.Role == ai.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(parts.UserMessage, genai.RoleUser))

	return contents, system
}
