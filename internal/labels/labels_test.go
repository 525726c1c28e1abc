package labels

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	t.Run("short text unchanged", func(t *testing.T) {
		assert.Equal(t, "short", Truncate("short"))
	})

	t.Run("long ascii text cut to limit", func(t *testing.T) {
		text := strings.Repeat("a", MaxInputChars+500)
		assert.Len(t, Truncate(text), MaxInputChars)
	})

	t.Run("exact limit unchanged", func(t *testing.T) {
		text := strings.Repeat("b", MaxInputChars)
		assert.Equal(t, text, Truncate(text))
	})

	t.Run("counts characters not bytes", func(t *testing.T) {
		text := strings.Repeat("é", MaxInputChars+10)
		got := Truncate(text)
		assert.Equal(t, MaxInputChars, utf8.RuneCountInString(got))
		assert.True(t, utf8.ValidString(got))
	})

	t.Run("multibyte text under the limit unchanged", func(t *testing.T) {
		text := strings.Repeat("日", MaxInputChars)
		assert.Equal(t, text, Truncate(text))
	})
}

func TestParse(t *testing.T) {
	t.Run("valid reply", func(t *testing.T) {
		got := Parse(`{"title": "Senior Engineer", "company": "Acme"}`)
		require.NotNil(t, got.Title)
		require.NotNil(t, got.Company)
		assert.Equal(t, "Senior Engineer", *got.Title)
		assert.Equal(t, "Acme", *got.Company)
	})

	t.Run("null company", func(t *testing.T) {
		got := Parse(`{"title": "Designer", "company": null}`)
		require.NotNil(t, got.Title)
		assert.Equal(t, "Designer", *got.Title)
		assert.Nil(t, got.Company)
	})

	t.Run("fenced reply", func(t *testing.T) {
		got := Parse("```json\n{\"title\": \"Analyst\", \"company\": \"Initech\"}\n```")
		require.NotNil(t, got.Title)
		assert.Equal(t, "Analyst", *got.Title)
		require.NotNil(t, got.Company)
		assert.Equal(t, "Initech", *got.Company)
	})

	t.Run("single quoted reply is repaired", func(t *testing.T) {
		got := Parse(`{'title': 'Engineer', 'company': 'Acme'}`)
		require.NotNil(t, got.Title)
		assert.Equal(t, "Engineer", *got.Title)
	})

	t.Run("blank values are absent", func(t *testing.T) {
		got := Parse(`{"title": "  ", "company": ""}`)
		assert.Nil(t, got.Title)
		assert.Nil(t, got.Company)
	})
}

func TestParseFallback(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace", "   \n"},
		{"prose", "I could not find a job title in this text."},
		{"missing keys", `{"role": "Engineer", "employer": "Acme"}`},
		{"wrong types", `{"title": 42, "company": ["Acme"]}`},
		{"array", `["Engineer", "Acme"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.content)
			assert.Nil(t, got.Title)
			assert.Nil(t, got.Company)
		})
	}
}
