package google

import (
	"context"

	ai "github.com/spetersoncode/jdcompare"
	"github.com/spetersoncode/jdcompare/internal/labels"
	"google.golang.org/genai"
)

const labelInstruction = `Extract the job title and company name from the following job description. Return JSON: {"title": "...", "company": "..."}. If not found, use null for that field.`

// ExtractLabels asks the label model for the title and company of a job
// description, constraining the reply to JSON.
func (c *Client) ExtractLabels(ctx context.Context, text string) (ai.Labels, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: labelInstruction}}},
		MaxOutputTokens:   labelMaxTokens,
		ResponseMIMEType:  "application/json",
	}
	contents := []*genai.Content{genai.NewContentFromText(labels.Truncate(text), genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, c.labelModel, contents, config)
	if err != nil {
		return ai.Labels{}, wrapError(err)
	}
	return labels.Parse(joinText(resp)), nil
}

func joinText(resp *genai.GenerateContentResponse) string {
	var out string
	for _, text := range textParts(resp) {
		out += text
	}
	return out
}
