package openai

import (
	"github.com/openai/openai-go"
	ai "github.com/spetersoncode/jdcompare"
)

// convertMessages folds the instructions and document block into one system
// message, then appends history verbatim and the newest user message.
func convertMessages(parts ai.PromptParts) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(parts.History)+2)
	result = append(result, openai.SystemMessage(parts.SystemInstructions+"\n\n"+parts.DocumentBlock))

	for _, msg := range parts.History {
		switch msg.Role {
		case ai.RoleAssistant:
			result = append(result, openai.AssistantMessage(msg.Content))
		default:
			result = append(result, openai.UserMessage(msg.Content))
		}
	}

	return append(result, openai.UserMessage(parts.UserMessage))
}
