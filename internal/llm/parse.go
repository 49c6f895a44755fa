package llm

import (
	"errors"
	"strings"
)

// ErrMalformedResponse marks model output that carried no parseable JSON.
// Callers treat it as "no results", never as a fatal failure.
var ErrMalformedResponse = errors.New("malformed model response")

// ExtractJSONArray pulls the first balanced JSON array out of model output.
// Models wrap JSON in prose and code fences often enough that strict
// unmarshalling of the raw content is a losing game.
func ExtractJSONArray(content string) (string, error) {
	return extractBalanced(stripFences(content), '[', ']')
}

// ExtractJSONObject pulls the first balanced JSON object out of model output.
func ExtractJSONObject(content string) (string, error) {
	return extractBalanced(stripFences(content), '{', '}')
}

func stripFences(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		}
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
	}

	return strings.TrimSpace(content)
}

func extractBalanced(content string, open, close byte) (string, error) {
	start := strings.IndexByte(content, open)
	if start < 0 {
		return "", ErrMalformedResponse
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(content); i++ {
		ch := content[i]

		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return content[start : i+1], nil
			}
		}
	}

	return "", ErrMalformedResponse
}
