package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSQL(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "fenced sql block",
			content: "Here you go:\n```sql\nSELECT COUNT(*) FROM orders WHERE customer_id IS NULL\n```\nLet me know.",
			want:    "SELECT COUNT(*) FROM orders WHERE customer_id IS NULL",
		},
		{
			name:    "fenced block without language tag",
			content: "```\nSELECT 1\n```",
			want:    "SELECT 1",
		},
		{
			name:    "bare select statement",
			content: "  SELECT name FROM users  ",
			want:    "SELECT name FROM users",
		},
		{
			name:    "bare cte",
			content: "WITH nulls AS (SELECT 1) SELECT * FROM nulls",
			want:    "WITH nulls AS (SELECT 1) SELECT * FROM nulls",
		},
		{
			name: "last tagged block wins when clauses are fenced separately",
			content: "Sub-question 1:\n```sql\nSELECT customer_id FROM orders\n```\n" +
				"Assembled:\n```sql\nSELECT COUNT(*) FROM orders WHERE customer_id IS NULL\n```",
			want: "SELECT COUNT(*) FROM orders WHERE customer_id IS NULL",
		},
		{
			name:    "tagged block preferred over untagged",
			content: "```\nfirst draft\n```\nFinal:\n```sql\nSELECT 2\n```",
			want:    "SELECT 2",
		},
		{
			name:    "prose without sql",
			content: "I'm not sure what you mean.",
			want:    "",
		},
		{
			name:    "empty content",
			content: "",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractSQL(tt.content))
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "fenced json block",
			content: "```json\n{\"intent\": \"read\"}\n```",
			want:    "{\"intent\": \"read\"}",
		},
		{
			name:    "raw object with prose",
			content: "Sure: {\"intent\": \"delete\"} hope that helps",
			want:    "{\"intent\": \"delete\"}",
		},
		{
			name:    "trailing comma removed",
			content: "{\"a\": 1,}",
			want:    "{\"a\": 1}",
		},
		{
			name:    "no json",
			content: "plain text",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.content))
		})
	}
}

func TestExtractJSON_StripsComments(t *testing.T) {
	content := "{\n\"intent\": \"read\", // the user wants a list\n\"filter\": {\"all\": true}\n}"
	got := ExtractJSON(content)
	assert.NotContains(t, got, "//")
	assert.Contains(t, got, "\"filter\"")
}

func TestExtractJSON_PreservesSlashesInStrings(t *testing.T) {
	content := `{"url": "http://example.com/path"}`
	assert.Equal(t, content, ExtractJSON(content))
}
