package anthropic

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	ai "github.com/spetersoncode/jdcompare"
	"github.com/spetersoncode/jdcompare/internal/labels"
)

const labelInstruction = `Extract the job title and company name from the following job description. Return ONLY valid JSON: {"title": "...", "company": "..."}. If not found, use null for that field.`

// ExtractLabels asks the label model for the title and company of a job
// description. Claude has no JSON mode, so the instruction and text travel
// together in one user message and the first text block is parsed.
func (c *Client) ExtractLabels(ctx context.Context, text string) (ai.Labels, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.labelModel),
		MaxTokens: labelMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(labelInstruction + "\n\n" + labels.Truncate(text))),
		},
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return ai.Labels{}, wrapError(err)
	}
	for _, block := range resp.Content {
		if block.Type == "text" {
			return labels.Parse(block.Text), nil
		}
	}
	return ai.Labels{}, nil
}
