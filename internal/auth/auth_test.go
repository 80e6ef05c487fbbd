package auth

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yolodolo42/deskpilot/internal/llm"
	"github.com/yolodolo42/deskpilot/internal/testutil"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(testutil.TempDir(t))
	require.NoError(t, err)
	return m
}

func setProviderConfig(t *testing.T, id llm.ProviderID, field, value string) {
	t.Helper()
	key := "llm.providers." + string(id) + "." + field
	viper.Set(key, value)
	t.Cleanup(func() { viper.Set(key, nil) })
}

func TestManager_GetAPIKey(t *testing.T) {
	tests := []struct {
		name   string
		env    string
		config string
		stored string
		want   string
	}{
		{"env wins", "env-key", "config-key", "stored-key", "env-key"},
		{"config before store", "", "config-key", "stored-key", "config-key"},
		{"config substitutes env", "", "{env:DESKPILOT_TEST_KEY}", "stored-key", "from-env-ref"},
		{"store last", "", "", "stored-key", "stored-key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t)
			testutil.SetEnv(t, "OPENAI_API_KEY", tt.env)
			testutil.SetEnv(t, "DESKPILOT_TEST_KEY", "from-env-ref")
			setProviderConfig(t, llm.ProviderOpenAI, "api_key", tt.config)
			require.NoError(t, m.SetAPIKey(llm.ProviderOpenAI, tt.stored))

			got, err := m.GetAPIKey(llm.ProviderOpenAI)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("nothing configured", func(t *testing.T) {
		m := newTestManager(t)
		testutil.UnsetEnv(t, "OPENROUTER_API_KEY")
		_, err := m.GetAPIKey(llm.ProviderOpenRouter)
		require.ErrorContains(t, err, "no API key found")
		assert.False(t, m.HasCredential(llm.ProviderOpenRouter))
	})
}

func TestManager_Connected(t *testing.T) {
	m := newTestManager(t)
	testutil.ClearProviderEnv(t)

	testutil.SetEnv(t, "ANTHROPIC_API_KEY", "env-key")
	require.NoError(t, m.SetAPIKey(llm.ProviderOpenAI, "stored-key"))
	assert.Equal(t, []llm.ProviderID{llm.ProviderAnthropic, llm.ProviderOpenAI}, m.ListConnected())

	require.NoError(t, m.RemoveCredential(llm.ProviderOpenAI))
	assert.False(t, m.HasCredential(llm.ProviderOpenAI))
	assert.Equal(t, []llm.ProviderID{llm.ProviderAnthropic}, m.ListConnected())

	assert.Equal(t, llm.ProviderAnthropic, m.GetDefaultProvider())
	require.NoError(t, m.SetDefaultProvider(llm.ProviderOpenAI))
	assert.Equal(t, llm.ProviderOpenAI, m.GetDefaultProvider())
}

func TestManager_PreferredModel(t *testing.T) {
	manager := newTestManager(t)

	assert.Equal(t, "", manager.PreferredModel(llm.ProviderAnthropic))
	require.NoError(t, manager.SetPreferredModel(llm.ProviderAnthropic, "claude-sonnet-4-5"))
	assert.Equal(t, "claude-sonnet-4-5", manager.PreferredModel(llm.ProviderAnthropic))
	assert.Equal(t, "", manager.PreferredModel(llm.ProviderOpenAI))
}

func TestManager_CloudSettings(t *testing.T) {
	t.Run("bedrock region from env", func(t *testing.T) {
		manager := newTestManager(t)
		testutil.ClearProviderEnv(t)
		testutil.SetEnv(t, "AWS_REGION", "us-west-2")

		settings, err := manager.GetCloudSettings(llm.ProviderBedrock)
		require.NoError(t, err)
		assert.Equal(t, "us-west-2", settings.Region)
		assert.True(t, manager.HasCredential(llm.ProviderBedrock))
	})

	t.Run("vertex needs a project", func(t *testing.T) {
		manager := newTestManager(t)
		testutil.ClearProviderEnv(t)

		require.NoError(t, manager.SetCloudSettings(llm.ProviderVertex, CloudSettings{Region: "us-east5"}))
		_, err := manager.GetCloudSettings(llm.ProviderVertex)
		require.Error(t, err)
		assert.False(t, manager.HasCredential(llm.ProviderVertex))

		testutil.SetEnv(t, "ANTHROPIC_VERTEX_PROJECT_ID", "my-project")
		settings, err := manager.GetCloudSettings(llm.ProviderVertex)
		require.NoError(t, err)
		assert.Equal(t, "us-east5", settings.Region)
		assert.Equal(t, "my-project", settings.Project)
	})

	t.Run("env overrides stored settings", func(t *testing.T) {
		manager := newTestManager(t)
		testutil.ClearProviderEnv(t)

		require.NoError(t, manager.SetCloudSettings(llm.ProviderBedrock, CloudSettings{Region: "eu-central-1"}))
		testutil.SetEnv(t, "AWS_DEFAULT_REGION", "ap-south-1")
		settings, err := manager.GetCloudSettings(llm.ProviderBedrock)
		require.NoError(t, err)
		assert.Equal(t, "ap-south-1", settings.Region)
	})

	t.Run("API key providers are rejected", func(t *testing.T) {
		manager := newTestManager(t)

		require.Error(t, manager.SetCloudSettings(llm.ProviderAnthropic, CloudSettings{Region: "x"}))
		require.Error(t, manager.SetAPIKey(llm.ProviderBedrock, "key"))
		_, err := manager.GetAPIKey(llm.ProviderVertex)
		require.Error(t, err)
	})
}

func TestManager_GetAuthMethods(t *testing.T) {
	manager := newTestManager(t)

	methods := manager.GetAuthMethods(llm.ProviderBedrock)
	require.Len(t, methods, 1)
	assert.Equal(t, "cloud", methods[0].Type)

	methods = manager.GetAuthMethods(llm.ProviderOpenAI)
	require.Len(t, methods, 1)
	assert.Equal(t, "api", methods[0].Type)
}

func TestResolveEnvSubstitution(t *testing.T) {
	testutil.SetEnv(t, "DESKPILOT_A", "alpha")
	testutil.UnsetEnv(t, "DESKPILOT_MISSING")

	tests := []struct{ in, want string }{
		{"plain-value", "plain-value"},
		{"{env:DESKPILOT_A}", "alpha"},
		{"{env:DESKPILOT_MISSING}", ""},
		{"pre-{env:DESKPILOT_A}-post", "pre-alpha-post"},
		{"{env:DESKPILOT_A}{env:DESKPILOT_A}", "alphaalpha"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveEnvSubstitution(tt.in))
		})
	}
}
