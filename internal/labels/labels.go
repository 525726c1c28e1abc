// Package labels holds the provider-independent half of label extraction:
// bounding the input sent to a backend and leniently parsing its reply.
package labels

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	ai "github.com/spetersoncode/jdcompare"
)

// MaxInputChars is the number of characters of a job description sent to a
// backend for extraction.
const MaxInputChars = 3000

// Truncate returns at most MaxInputChars characters of text. It counts runes
// so multi-byte text is never split mid-character.
func Truncate(text string) string {
	if len(text) <= MaxInputChars {
		return text
	}
	n := 0
	for i := range text {
		if n == MaxInputChars {
			return text[:i]
		}
		n++
	}
	return text
}

type reply struct {
	Title   *string `json:"title"`
	Company *string `json:"company"`
}

// Parse decodes a backend reply of the form {"title": ..., "company": ...}.
// Malformed replies are repaired when possible; anything still unparseable
// yields empty Labels. Parse never fails.
func Parse(content string) ai.Labels {
	content = stripFence(strings.TrimSpace(content))
	if content == "" {
		return ai.Labels{}
	}

	var r reply
	if err := json.Unmarshal([]byte(content), &r); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(content)
		if repairErr != nil {
			slog.Debug("label reply is not JSON", "error", repairErr)
			return ai.Labels{}
		}
		r = reply{}
		if err := json.Unmarshal([]byte(repaired), &r); err != nil {
			slog.Debug("label reply could not be decoded", "error", err)
			return ai.Labels{}
		}
	}

	return ai.Labels{
		Title:   nonEmpty(r.Title),
		Company: nonEmpty(r.Company),
	}
}

// stripFence removes a surrounding markdown code fence, which some models
// emit even when asked for bare JSON.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
