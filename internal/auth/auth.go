package auth

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"github.com/yolodolo42/deskpilot/internal/llm"
)

// Manager handles authentication for LLM providers
type Manager struct {
	store *Store
}

// NewManager creates a new auth manager
func NewManager(dataDir string) (*Manager, error) {
	store, err := NewStore(dataDir)
	if err != nil {
		return nil, err
	}

	return &Manager{
		store: store,
	}, nil
}

// GetAPIKey returns the API key for a provider using priority resolution:
// 1. Environment variable
// 2. Config file (with env substitution)
// 3. Stored auth.json
func (m *Manager) GetAPIKey(providerID llm.ProviderID) (string, error) {
	if UsesCloudCredentials(providerID) {
		return "", fmt.Errorf("provider %s uses cloud credentials, not an API key", providerID)
	}

	// 1. Check environment variable
	envVar := llm.EnvVarForProvider(providerID)
	if envVar != "" {
		if key := os.Getenv(envVar); key != "" {
			return key, nil
		}
	}

	// 2. Check config file (with env substitution)
	if key := m.configValue(providerID, "api_key"); key != "" {
		return key, nil
	}

	// 3. Check auth.json
	cred, err := m.store.GetCredential(providerID)
	if err == nil && cred.Key != "" {
		return cred.Key, nil
	}

	return "", fmt.Errorf("no API key found for provider: %s", providerID)
}

// SetAPIKey stores an API key for a provider
func (m *Manager) SetAPIKey(providerID llm.ProviderID, key string) error {
	if UsesCloudCredentials(providerID) {
		return fmt.Errorf("provider %s uses cloud credentials, not an API key", providerID)
	}
	return m.store.SetCredential(providerID, Credential{
		Type: CredentialTypeAPI,
		Key:  key,
	})
}

// CloudSettings is the region and project used by Bedrock and Vertex.
type CloudSettings struct {
	Region  string
	Project string
}

// SetCloudSettings stores the region (and for Vertex, project) for a cloud
// provider. The credentials themselves stay with the cloud SDK.
func (m *Manager) SetCloudSettings(providerID llm.ProviderID, settings CloudSettings) error {
	if !UsesCloudCredentials(providerID) {
		return fmt.Errorf("provider %s uses an API key", providerID)
	}
	return m.store.SetCredential(providerID, Credential{
		Type:    CredentialTypeCloud,
		Region:  settings.Region,
		Project: settings.Project,
	})
}

// GetCloudSettings resolves the region and project for a cloud provider in
// the same order as API keys: environment, config file, auth.json.
func (m *Manager) GetCloudSettings(providerID llm.ProviderID) (CloudSettings, error) {
	if !UsesCloudCredentials(providerID) {
		return CloudSettings{}, fmt.Errorf("provider %s uses an API key", providerID)
	}
	info := GetProviderAuthInfo(providerID)
	stored, _ := m.store.GetCredential(providerID)

	settings := CloudSettings{
		Region:  firstNonEmpty(firstEnv(info.RegionEnv), m.configValue(providerID, "region"), stored.Region),
		Project: firstNonEmpty(firstEnv(info.ProjectEnv), m.configValue(providerID, "project"), stored.Project),
	}
	if settings.Region == "" {
		return settings, fmt.Errorf("no region configured for provider: %s", providerID)
	}
	if providerID == llm.ProviderVertex && settings.Project == "" {
		return settings, fmt.Errorf("no project configured for provider: %s", providerID)
	}
	return settings, nil
}

// GetAuthMethods returns available authentication methods for a provider
func (m *Manager) GetAuthMethods(providerID llm.ProviderID) []AuthMethod {
	return GetProviderAuthInfo(providerID).Methods
}

// RemoveCredential removes stored credentials for a provider
func (m *Manager) RemoveCredential(providerID llm.ProviderID) error {
	return m.store.RemoveCredential(providerID)
}

// HasCredential checks if a provider has usable credentials. For cloud
// providers it reports whether the region (and project) resolve.
func (m *Manager) HasCredential(providerID llm.ProviderID) bool {
	if UsesCloudCredentials(providerID) {
		_, err := m.GetCloudSettings(providerID)
		return err == nil
	}
	_, err := m.GetAPIKey(providerID)
	return err == nil
}

// ListConnected returns all providers with credentials
func (m *Manager) ListConnected() []llm.ProviderID {
	connected := make([]llm.ProviderID, 0)

	for _, id := range llm.AllProviderIDs() {
		if m.HasCredential(id) {
			connected = append(connected, id)
		}
	}

	return connected
}

// GetDefaultProvider returns the default provider ID
func (m *Manager) GetDefaultProvider() llm.ProviderID {
	return m.store.GetDefaultProvider()
}

// SetDefaultProvider sets the default provider
func (m *Manager) SetDefaultProvider(providerID llm.ProviderID) error {
	return m.store.SetDefaultProvider(providerID)
}

// PreferredModel returns the model last chosen for a provider, or "".
func (m *Manager) PreferredModel(providerID llm.ProviderID) string {
	return m.store.GetModel(providerID)
}

// SetPreferredModel remembers modelID for later sessions.
func (m *Manager) SetPreferredModel(providerID llm.ProviderID, modelID string) error {
	return m.store.SetModel(providerID, modelID)
}

func (m *Manager) configValue(providerID llm.ProviderID, field string) string {
	return resolveEnvSubstitution(viper.GetString(fmt.Sprintf("llm.providers.%s.%s", providerID, field)))
}

var envRef = regexp.MustCompile(`\{env:([^}]+)\}`)

// resolveEnvSubstitution replaces {env:VAR_NAME} with environment variable values
func resolveEnvSubstitution(value string) string {
	if !strings.Contains(value, "{env:") {
		return value
	}

	return envRef.ReplaceAllStringFunc(value, func(match string) string {
		// Extract variable name from {env:VAR_NAME}
		varName := match[5 : len(match)-1]
		return os.Getenv(varName)
	})
}

func firstEnv(names []string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
