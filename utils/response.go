package utils

import (
	"encoding/json"
	"strings"
)

// LimitJSONArray truncates a JSON array to at most limit elements.
// Non-array or undecodable payloads are returned unchanged, blank input becomes "[]".
func LimitJSONArray(raw string, limit int) string {
	if strings.TrimSpace(raw) == "" {
		return "[]"
	}
	if limit <= 0 {
		return raw
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return raw
	}
	if len(items) <= limit {
		return raw
	}
	b, err := json.Marshal(items[:limit])
	if err != nil {
		return raw
	}
	return string(b)
}
