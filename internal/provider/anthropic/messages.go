package anthropic

import (
	"github.com/anthropics/anthropic-sdk-go"
	ai "github.com/spetersoncode/jdcompare"
)

// convertMessages builds the system blocks and the alternating message list
// for parts. The instructions and the document block are cached separately
// so a workspace edit only invalidates the second segment. The last history
// turn carries the third breakpoint; the newest user message is never cached.
func convertMessages(parts ai.PromptParts) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var system []anthropic.TextBlockParam
	for _, text := range []string{parts.SystemInstructions, parts.DocumentBlock} {
		// Anthropic rejects empty text blocks
		if text == "" {
			continue
		}
		system = append(system, anthropic.TextBlockParam{
			Text:         text,
			CacheControl: anthropic.NewCacheControlEphemeralParam(),
		})
	}

	msgs := make([]anthropic.MessageParam, 0, len(parts.History)+1)
	for _, msg := range parts.History {
		if msg.Content == "" {
			continue
		}
		msgs = append(msgs, textMessage(roleOf(msg.Role), msg.Content))
	}
	if n := len(msgs); n > 0 {
		msgs[n-1].Content[0].OfText.CacheControl = anthropic.NewCacheControlEphemeralParam()
	}

	if parts.UserMessage != "" {
		msgs = append(msgs, textMessage(anthropic.MessageParamRoleUser, parts.UserMessage))
	}

	return EnsureAlternating(msgs), system
}

func roleOf(r ai.Role) anthropic.MessageParamRole {
	if r == ai.RoleAssistant {
		return anthropic.MessageParamRoleAssistant
	}
	return anthropic.MessageParamRoleUser
}

func textMessage(role anthropic.MessageParamRole, text string) anthropic.MessageParam {
	return anthropic.MessageParam{
		Role: role,
		Content: []anthropic.ContentBlockParamUnion{
			{OfText: &anthropic.TextBlockParam{Text: text}},
		},
	}
}

// EnsureAlternating merges each message into its predecessor when both share
// a role, concatenating their content blocks. The input is not modified.
// The result always alternates, so applying it twice equals applying it once,
// and already-alternating input is returned unchanged.
func EnsureAlternating(msgs []anthropic.MessageParam) []anthropic.MessageParam {
	if len(msgs) == 0 {
		return msgs
	}

	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		if n := len(out); n > 0 && out[n-1].Role == msg.Role {
			prev := out[n-1].Content
			merged := make([]anthropic.ContentBlockParamUnion, 0, len(prev)+len(msg.Content))
			merged = append(merged, prev...)
			merged = append(merged, msg.Content...)
			out[n-1].Content = merged
			continue
		}
		out = append(out, msg)
	}
	return out
}
