package oracle

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const systemPrompt = `You are an SEO consultant. You receive a short audit summary of one web page:
its URL, the most important problems found, and its top keywords.

Reply with a JSON array of 3 to 5 concise, actionable recommendations, each a single sentence.
Focus on the listed problems first, then on using the keywords better.

Example output:
["Add a 50-60 character title that leads with the primary keyword.", "Write a meta description that mentions free shipping."]

Respond ONLY with the JSON array, no explanation or markdown.`

func buildUserPrompt(s Summary) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary: %w", err)
	}
	return "Audit summary:\n" + string(data), nil
}

// ParseSuggestions extracts suggestions from a provider reply. The reply may
// be a JSON array of strings, or an object whose values are strings or
// string arrays (keys are visited in sorted order), optionally surrounded by
// prose or a code fence.
func ParseSuggestions(response string) ([]string, error) {
	response = strings.TrimSpace(response)
	if out, ok := decodeSuggestions(response); ok {
		return out, nil
	}

	start := strings.IndexAny(response, "[{")
	if start == -1 {
		return nil, fmt.Errorf("%w: no JSON found", ErrMalformedResponse)
	}
	end := matchingBracket(response, start)
	if end == -1 {
		return nil, fmt.Errorf("%w: no matching closing bracket found", ErrMalformedResponse)
	}
	if out, ok := decodeSuggestions(response[start:end]); ok {
		return out, nil
	}
	return nil, fmt.Errorf("%w: unexpected JSON shape", ErrMalformedResponse)
}

func decodeSuggestions(raw string) ([]string, bool) {
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return clean(list), true
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, false
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		var one string
		if err := json.Unmarshal(obj[k], &one); err == nil {
			out = append(out, one)
			continue
		}
		var many []string
		if err := json.Unmarshal(obj[k], &many); err == nil {
			out = append(out, many...)
			continue
		}
		return nil, false
	}
	return clean(out), true
}

// matchingBracket returns the index just past the bracket closing the one
// at start, skipping brackets inside JSON strings.
func matchingBracket(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

func clean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
