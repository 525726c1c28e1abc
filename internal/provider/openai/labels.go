package openai

import (
	"context"

	"github.com/openai/openai-go"
	ai "github.com/spetersoncode/jdcompare"
	"github.com/spetersoncode/jdcompare/internal/labels"
)

const labelInstruction = `Extract the job title and company name from the following job description. Return JSON: {"title": "...", "company": "..."}. If not found, use null for that field.`

// ExtractLabels asks the label model for the title and company of a job
// description, using JSON object mode.
func (c *Client) ExtractLabels(ctx context.Context, text string) (ai.Labels, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.labelModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(labelInstruction),
			openai.UserMessage(labels.Truncate(text)),
		},
		MaxTokens: openai.Int(labelMaxTokens),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return ai.Labels{}, wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return ai.Labels{}, nil
	}
	return labels.Parse(resp.Choices[0].Message.Content), nil
}
