package computer

import "strings"

// specialKeys maps the spellings models use onto canonical key names.
var specialKeys = map[string]string{
	"ctrl":     "ctrl",
	"control":  "ctrl",
	"alt":      "alt",
	"option":   "alt",
	"shift":    "shift",
	"command":  "command",
	"tab":      "tab",
	"enter":    "enter",
	"return":   "enter",
	"esc":      "esc",
	"escape":   "esc",
	"space":    "space",
	"spacebar": "space",
	"up":       "up",
	"down":     "down",
	"left":     "left",
	"right":    "right",
}

// NormalizeKeys splits a combination such as "Ctrl+Shift+T" into canonical
// key names: lower-cased, super/cmd mapped to command, aliases folded.
func NormalizeKeys(combo string) []string {
	combo = strings.ReplaceAll(strings.ToLower(combo), "super", "command")
	parts := strings.Split(combo, "+")
	keys := make([]string, 0, len(parts))
	for _, k := range parts {
		keys = append(keys, canonicalKey(k))
	}
	return keys
}

// NormalizeKey canonicalises a single key name such as "Shift" or "cmd".
func NormalizeKey(key string) string {
	return canonicalKey(strings.ReplaceAll(strings.ToLower(key), "super", "command"))
}

func canonicalKey(k string) string {
	k = strings.TrimSpace(k)
	if k == "cmd" {
		k = "command"
	}
	if mapped, ok := specialKeys[k]; ok {
		return mapped
	}
	return k
}

// chunks splits s into pieces of at most size runes.
func chunks(s string, size int) []string {
	runes := []rune(s)
	var out []string
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}
