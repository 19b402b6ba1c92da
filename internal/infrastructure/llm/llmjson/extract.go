// Package llmjson pulls a JSON object out of free-form model output.
package llmjson

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Extract returns the first balanced JSON object in response. Markdown code
// fences and surrounding prose are ignored.
func Extract(response string) (string, error) {
	response = stripFences(strings.TrimSpace(response))

	start := strings.Index(response, "{")
	if start == -1 {
		return "", fmt.Errorf("no JSON found in response")
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(response); i++ {
		c := response[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return response[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unterminated JSON object in response")
}

// Decode extracts the first JSON object from response into v.
func Decode(response string, v any) error {
	raw, err := Extract(response)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.Index(s, "\n"); nl != -1 {
		s = s[nl+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}
