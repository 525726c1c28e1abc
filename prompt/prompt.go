// Package prompt assembles the provider-neutral prompt for a chat turn from
// the caller's document cards, prior conversation and newest message.
//
// Assembly is pure: it performs no I/O and cannot fail.
package prompt

import (
	"fmt"
	"strings"

	ai "github.com/spetersoncode/jdcompare"
)

// MaxHistoryMessages bounds how many prior turns are sent to a backend.
// Older turns are dropped without summarization.
const MaxHistoryMessages = 15

// NoDocumentsBlock is rendered in place of the document block when the
// request carries no cards.
const NoDocumentsBlock = "=== NO JOB DESCRIPTIONS PROVIDED ==="

const (
	documentsHeader = "=== JOB DESCRIPTIONS ==="
	documentsFooter = "=== END JOB DESCRIPTIONS ==="
)

// SystemInstructions is the fixed advisor persona sent with every chat turn.
const SystemInstructions = `You are JD-Compare AI, an expert career advisor that helps candidates compare and analyze multiple job descriptions side by side.

RULES:
- Always refer to jobs by their labels (e.g., "Senior Engineer @ Google") rather than generic references.
- When comparing, be specific and cite exact phrases from the JDs.
- If a JD is marked as [MUTED], acknowledge its existence but do not focus analysis on it unless the user explicitly asks.
- Provide balanced, actionable advice. Do not make decisions for the user.
- When asked scenario questions (e.g., "Which is best for transitioning to management?"), evaluate all active JDs against the scenario criteria.
- Flag contradictions or conflicts between JDs explicitly.

OUTPUT FORMAT:
- Be direct, short, and to the point. Avoid unnecessary explanations or filler text.
- Use markdown formatting sparingly.
- Use bold for job labels when referencing them.
- Use tables for structured comparisons only when essential.
- Use bullet points for lists when there are 3+ items.
- Keep responses concise; aim for 2-4 sentences unless detailed analysis is specifically requested.`

// Request is the conversation and document state a prompt is built from.
type Request struct {
	Cards       []ai.DocumentCard
	History     []ai.Message
	UserMessage string
}

// Build assembles the prompt parts for req.
func Build(req Request) ai.PromptParts {
	return ai.PromptParts{
		SystemInstructions: SystemInstructions,
		DocumentBlock:      DocumentBlock(req.Cards),
		History:            TrimHistory(req.History),
		UserMessage:        req.UserMessage,
	}
}

// DocumentBlock renders cards in input order. The output depends only on the
// cards, so identical input always yields byte-identical text.
func DocumentBlock(cards []ai.DocumentCard) string {
	if len(cards) == 0 {
		return NoDocumentsBlock
	}

	lines := make([]string, 0, len(cards)*3+3)
	lines = append(lines, documentsHeader+"\n")

	var active, muted int
	for i, card := range cards {
		index := i + 1
		status := "ACTIVE"
		if card.Muted {
			status = "MUTED"
			muted++
		} else {
			active++
		}
		lines = append(lines,
			fmt.Sprintf("--- JOB %d: %s [%s] ---", index, card.Label(index), status),
			strings.TrimSpace(card.Text),
			"",
		)
	}

	lines = append(lines,
		documentsFooter,
		fmt.Sprintf("Total Active JDs: %d | Muted JDs: %d", active, muted),
	)
	return strings.Join(lines, "\n")
}

// TrimHistory returns the most recent MaxHistoryMessages turns in their
// original order. The returned slice never aliases the input.
func TrimHistory(history []ai.Message) []ai.Message {
	start := 0
	if len(history) > MaxHistoryMessages {
		start = len(history) - MaxHistoryMessages
	}
	out := make([]ai.Message, len(history)-start)
	copy(out, history[start:])
	return out
}
