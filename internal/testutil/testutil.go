// Package testutil holds helpers shared by package tests: scratch data
// directories, an environment scrubbed of provider credentials and a
// recording desktop device.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yolodolo42/deskpilot/internal/llm"
)

// cloudEnv names the variables the Bedrock and Vertex providers read
// their region and project from.
var cloudEnv = []string{
	"AWS_REGION",
	"AWS_DEFAULT_REGION",
	"CLOUD_ML_REGION",
	"ANTHROPIC_VERTEX_PROJECT_ID",
	"GOOGLE_CLOUD_PROJECT",
}

// TempDir returns a fresh data directory laid out like ~/.deskpilot,
// removed when the test ends.
func TempDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "deskpilot")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatalf("create data dir: %v", err)
	}
	return dir
}

// SetEnv sets key for the duration of the test.
func SetEnv(t *testing.T, key, value string) {
	t.Helper()
	t.Setenv(key, value)
}

// UnsetEnv removes keys for the duration of the test. Previous values
// come back on cleanup.
func UnsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
}

// ClearProviderEnv unsets every API key and cloud setting variable so a
// test only sees credentials it configures itself.
func ClearProviderEnv(t *testing.T) {
	t.Helper()
	for _, id := range llm.AllProviderIDs() {
		if env := llm.EnvVarForProvider(id); env != "" {
			UnsetEnv(t, env)
		}
	}
	UnsetEnv(t, cloudEnv...)
}
