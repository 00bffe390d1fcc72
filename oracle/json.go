package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StringList unmarshals from either a JSON array or a single string, so
// "assigned_to": "writer" and "assigned_to": ["writer"] both parse.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*s = nil
		} else {
			*s = []string{single}
		}
		return nil
	}

	// Mixed-type arrays: stringify each element.
	var anyList []any
	if err := json.Unmarshal(data, &anyList); err == nil {
		out := make([]string, 0, len(anyList))
		for _, v := range anyList {
			out = append(out, fmt.Sprint(v))
		}
		*s = out
		return nil
	}

	return fmt.Errorf("string list: cannot unmarshal %s", string(data))
}

// extractJSON pulls the first JSON object out of a model reply. It prefers
// a fenced ```json block, then falls back to the first balanced top-level
// object found by brace scanning (string-aware, so braces inside quoted
// values do not confuse the depth counter).
func extractJSON(text string) (string, error) {
	if fenced := extractFenced(text); fenced != "" {
		return fenced, nil
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object in reply")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object in reply")
}

func extractFenced(text string) string {
	for _, marker := range []string{"```json", "```"} {
		open := strings.Index(text, marker)
		if open < 0 {
			continue
		}
		rest := text[open+len(marker):]
		closeIdx := strings.Index(rest, "```")
		if closeIdx < 0 {
			continue
		}
		body := strings.TrimSpace(rest[:closeIdx])
		if strings.HasPrefix(body, "{") {
			return body
		}
	}
	return ""
}
