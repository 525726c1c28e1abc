package jdcompare

import (
	"strconv"
	"strings"
)

// Role represents the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the two conversation roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one prior turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// DocumentCard is one job description supplied by the caller. Cards are
// rendered in the order given.
type DocumentCard struct {
	ID      string  `json:"id"`
	Text    string  `json:"text"`
	Title   *string `json:"label_title,omitempty"`
	Company *string `json:"label_company,omitempty"`
	Muted   bool    `json:"is_muted"`
}

// Label returns the card's display label for the given 1-based position:
// its title (or "Job <index>"), suffixed with " @ <company>" when known.
func (c DocumentCard) Label(index int) string {
	var b strings.Builder
	if c.Title != nil && *c.Title != "" {
		b.WriteString(*c.Title)
	} else {
		b.WriteString("Job ")
		b.WriteString(strconv.Itoa(index))
	}
	if c.Company != nil && *c.Company != "" {
		b.WriteString(" @ ")
		b.WriteString(*c.Company)
	}
	return b.String()
}

// PromptParts is the provider-neutral prompt for one chat turn. It is built
// once per request and never mutated afterwards.
type PromptParts struct {
	SystemInstructions string
	DocumentBlock      string
	History            []Message
	UserMessage        string
}

// Labels holds the title and company extracted from a job description.
// Either field is nil when the backend could not determine it.
type Labels struct {
	Title   *string `json:"title"`
	Company *string `json:"company"`
}

// StreamEvent is one element of a chat stream. A stream ends either when its
// channel is closed or after an event carrying Err.
type StreamEvent struct {
	Delta string
	Done  bool
	Err   error
}
