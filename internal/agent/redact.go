package agent

import (
	"encoding/json"
	"strings"
)

const redacted = "[redacted]"

// sensitiveKeyParts mark a JSON key as secret when any appears in its
// lower-cased form.
var sensitiveKeyParts = []string{"password", "passwd", "secret", "token", "api_key", "apikey", "private_key", "credential"}

func sensitiveKey(k string) bool {
	k = strings.ToLower(k)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(k, part) {
			return true
		}
	}
	return false
}

// RedactInput masks secret-looking fields of a tool input before it is
// stored. Input that is not JSON is returned unchanged.
func RedactInput(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	if !scrub(v) {
		return raw
	}
	b, err := json.Marshal(v)
	if err != nil {
		return raw
	}
	return string(b)
}

// scrub masks secrets in place and reports whether it changed anything.
func scrub(v any) bool {
	changed := false
	switch t := v.(type) {
	case map[string]any:
		for k, inner := range t {
			if sensitiveKey(k) {
				t[k] = redacted
				changed = true
				continue
			}
			if scrub(inner) {
				changed = true
			}
		}
	case []any:
		for _, inner := range t {
			if scrub(inner) {
				changed = true
			}
		}
	}
	return changed
}
