package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactInput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"not json", "type hello", "type hello"},
		{"untouched keeps formatting", `{"action": "type", "text": "hi"}`, `{"action": "type", "text": "hi"}`},
		{"flat", `{"action":"type","password":"pw"}`, `{"action":"type","password":"[redacted]"}`},
		{"key fragments", `{"GitHubToken":"x","db_passwd":"y"}`, `{"GitHubToken":"[redacted]","db_passwd":"[redacted]"}`},
		{"nested", `{"auth":{"api_key":"k","keep":1},"arr":[{"secret":"s"}]}`, `{"arr":[{"secret":"[redacted]"}],"auth":{"api_key":"[redacted]","keep":1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactInput(tt.in))
		})
	}
}
