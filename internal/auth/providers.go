package auth

import "github.com/yolodolo42/deskpilot/internal/llm"

// AuthMethod represents an available authentication method for a provider
type AuthMethod struct {
	Type        string // "api" or "cloud"
	Label       string // Display name
	Description string // Help text
}

// ProviderAuthInfo contains authentication options for a provider
type ProviderAuthInfo struct {
	Methods []AuthMethod
	// RegionEnv and ProjectEnv name the variables read for cloud providers.
	RegionEnv  []string
	ProjectEnv []string
}

// GetProviderAuthInfo returns available auth methods for a provider
func GetProviderAuthInfo(providerID llm.ProviderID) ProviderAuthInfo {
	info, ok := providerAuthConfigs[providerID]
	if !ok {
		// Default to API key only
		return ProviderAuthInfo{
			Methods: []AuthMethod{
				{Type: "api", Label: "API Key", Description: "Enter your API key"},
			},
		}
	}
	return info
}

// UsesCloudCredentials reports whether the provider authenticates through
// the cloud SDK's default credential chain instead of an API key.
func UsesCloudCredentials(providerID llm.ProviderID) bool {
	return !llm.RequiresAPIKey(providerID)
}

var providerAuthConfigs = map[llm.ProviderID]ProviderAuthInfo{
	llm.ProviderAnthropic: {
		Methods: []AuthMethod{
			{
				Type:        "api",
				Label:       "API Key",
				Description: "Get your API key from console.anthropic.com",
			},
		},
	},

	llm.ProviderBedrock: {
		Methods: []AuthMethod{
			{
				Type:        "cloud",
				Label:       "AWS credentials",
				Description: "Uses the AWS default credential chain (env, ~/.aws, SSO); set a region",
			},
		},
		RegionEnv: []string{"AWS_REGION", "AWS_DEFAULT_REGION"},
	},

	llm.ProviderVertex: {
		Methods: []AuthMethod{
			{
				Type:        "cloud",
				Label:       "Google Cloud credentials",
				Description: "Uses application default credentials (gcloud auth application-default login); set a region and project",
			},
		},
		RegionEnv:  []string{"CLOUD_ML_REGION"},
		ProjectEnv: []string{"ANTHROPIC_VERTEX_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"},
	},

	llm.ProviderOpenAI: {
		Methods: []AuthMethod{
			{
				Type:        "api",
				Label:       "API Key",
				Description: "Get your API key from platform.openai.com/api-keys",
			},
		},
	},

	llm.ProviderGemini: {
		Methods: []AuthMethod{
			{
				Type:        "api",
				Label:       "API Key",
				Description: "Get your API key from aistudio.google.com/apikey",
			},
		},
	},

	llm.ProviderOpenRouter: {
		Methods: []AuthMethod{
			{
				Type:        "api",
				Label:       "API Key",
				Description: "Get your API key from openrouter.ai/settings/keys",
			},
		},
	},
}

// GetEnvVarHint returns the environment variable name for a provider's API key
func GetEnvVarHint(providerID llm.ProviderID) string {
	return llm.EnvVarForProvider(providerID)
}
