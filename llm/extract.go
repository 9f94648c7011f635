package llm

import (
	"regexp"
	"strings"
)

// Pre-compiled regex patterns for extracting structured content from
// LLM responses.
var (
	// jsonBlockPattern matches JSON inside markdown code blocks: ```json { ... } ```
	jsonBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	// jsonObjectPattern matches any JSON object (greedy fallback).
	jsonObjectPattern = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	// trailingCommaPattern matches trailing commas before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
	// sqlTaggedPattern matches SQL inside tagged code blocks: ```sql ... ```
	sqlTaggedPattern = regexp.MustCompile("(?s)```(?:sql|SQL)\\s*\\n?(.*?)```")
	// fencedBlockPattern matches any fenced code block.
	fencedBlockPattern = regexp.MustCompile("(?s)```\\s*\\n?(.*?)```")
)

// ExtractJSON extracts a JSON object from an LLM response string.
// It handles markdown code blocks, JavaScript-style comments, and trailing commas.
func ExtractJSON(content string) string {
	raw := extractRawJSON(content)
	if raw == "" {
		return ""
	}
	return cleanJSON(raw)
}

// ExtractSQL extracts a SQL statement from an LLM response string.
// Tagged ```sql blocks take precedence, and the last one wins: a
// response that shows intermediate clauses before the final statement
// fences them too. Untagged fences are a fallback, then the bare
// response if it plausibly starts with a SQL keyword.
func ExtractSQL(content string) string {
	if matches := sqlTaggedPattern.FindAllStringSubmatch(content, -1); len(matches) > 0 {
		return strings.TrimSpace(matches[len(matches)-1][1])
	}
	if matches := fencedBlockPattern.FindAllStringSubmatch(content, -1); len(matches) > 0 {
		return strings.TrimSpace(matches[len(matches)-1][1])
	}

	trimmed := strings.TrimSpace(content)
	upper := strings.ToUpper(trimmed)
	for _, kw := range []string{"SELECT", "WITH", "ASSERT"} {
		if strings.HasPrefix(upper, kw) {
			return trimmed
		}
	}
	return ""
}

// extractRawJSON extracts raw JSON content before cleaning.
func extractRawJSON(content string) string {
	// Try markdown code block first
	if matches := jsonBlockPattern.FindStringSubmatch(content); len(matches) > 1 {
		return matches[1]
	}
	// Fallback to raw JSON object
	if matches := jsonObjectPattern.FindString(content); matches != "" {
		return matches
	}
	return ""
}

// cleanJSON removes JavaScript-style comments and trailing commas from JSON.
// LLMs commonly produce these invalid JSON artifacts.
func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, stripLineComment(line))
	}
	result := strings.Join(cleaned, "\n")

	// Remove trailing commas before } or ]
	result = trailingCommaPattern.ReplaceAllString(result, "$1")

	return result
}

// stripLineComment removes a // comment from a JSON line, respecting string values.
func stripLineComment(line string) string {
	// Fast path: no // at all
	if !strings.Contains(line, "//") {
		return line
	}

	// Walk the line character by character, tracking whether we're inside a string.
	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
