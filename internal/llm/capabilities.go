package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// openRouterModelsURL is a variable so tests can point it at a local server.
var openRouterModelsURL = "https://openrouter.ai/api/v1/models"

const capabilitiesTTL = 6 * time.Hour

// ModelCapabilities is what the agent needs from a model: function calling
// to drive the computer tool and image input to see screenshots.
type ModelCapabilities struct {
	Tools  bool
	Vision bool
}

// CapabilitiesCache caches per-provider model capability lookups.
type CapabilitiesCache struct {
	mu      sync.Mutex
	entries map[ProviderID]capEntry
}

type capEntry struct {
	expiry  time.Time
	support map[string]ModelCapabilities
}

var capCache = &CapabilitiesCache{
	entries: make(map[ProviderID]capEntry),
}

// CapabilitiesForModel returns (caps, known) for a provider/model.
// known==false means we could not determine and callers may choose to fallback.
func CapabilitiesForModel(ctx context.Context, provider Provider, modelID string, openRouterAPIKey string) (ModelCapabilities, bool) {
	// Prefer the provider's static model list.
	for _, m := range provider.Models() {
		if m.ID == modelID {
			return ModelCapabilities{Tools: m.SupportsTools, Vision: m.SupportsVision}, true
		}
	}

	// OpenRouter's catalogue changes too often for a static list.
	if provider.ID() == ProviderOpenRouter {
		if caps, known := capCache.fetchOpenRouter(ctx, openRouterAPIKey, modelID); known {
			return caps, true
		}
	}

	return ModelCapabilities{Tools: true, Vision: true}, false // default optimistic
}

// SupportsToolsForModel returns (supports, known) for a provider/model.
func SupportsToolsForModel(ctx context.Context, provider Provider, modelID string, openRouterAPIKey string) (bool, bool) {
	caps, known := CapabilitiesForModel(ctx, provider, modelID, openRouterAPIKey)
	return caps.Tools, known
}

func (c *CapabilitiesCache) fetchOpenRouter(ctx context.Context, apiKey, targetModel string) (ModelCapabilities, bool) {
	if apiKey == "" {
		return ModelCapabilities{}, false
	}

	c.mu.Lock()
	entry, ok := c.entries[ProviderOpenRouter]
	now := time.Now()
	if ok && now.Before(entry.expiry) {
		if v, found := entry.support[targetModel]; found {
			c.mu.Unlock()
			return v, true
		}
	}
	c.mu.Unlock()

	// Refresh
	support, err := pullOpenRouterModels(ctx, apiKey)
	if err != nil {
		return ModelCapabilities{}, false
	}

	c.mu.Lock()
	c.entries[ProviderOpenRouter] = capEntry{
		expiry:  time.Now().Add(capabilitiesTTL),
		support: support,
	}
	v, found := support[targetModel]
	c.mu.Unlock()

	return v, found
}

func (c *CapabilitiesCache) reset() {
	c.mu.Lock()
	c.entries = make(map[ProviderID]capEntry)
	c.mu.Unlock()
}

func pullOpenRouterModels(ctx context.Context, apiKey string) (map[string]ModelCapabilities, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openRouterModelsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openrouter models: %s", resp.Status)
	}

	var body struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	out := make(map[string]ModelCapabilities)
	for _, raw := range body.Data {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		id, _ := m["id"].(string)
		if id == "" {
			continue
		}
		out[id] = ModelCapabilities{
			Tools:  supportsToolsInOpenRouter(m),
			Vision: supportsImagesInOpenRouter(m),
		}
	}
	return out, nil
}

func supportsToolsInOpenRouter(m map[string]any) bool {
	// supported_parameters array check
	if arr, ok := m["supported_parameters"]; ok {
		if hasToolish(arr) {
			return true
		}
	}
	// top_provider.supported_parameters
	if tp, ok := m["top_provider"].(map[string]any); ok {
		if arr, ok := tp["supported_parameters"]; ok && hasToolish(arr) {
			return true
		}
	}
	// capabilities.tools / function_calling
	if caps, ok := m["capabilities"].(map[string]any); ok {
		for _, key := range []string{"tools", "function_calling", "functions"} {
			if b, ok := caps[key].(bool); ok && b {
				return true
			}
		}
	}
	return false
}

// supportsImagesInOpenRouter reads architecture.input_modalities, falling
// back to the older "text+image->text" modality string.
func supportsImagesInOpenRouter(m map[string]any) bool {
	arch, ok := m["architecture"].(map[string]any)
	if !ok {
		return false
	}
	if mods, ok := arch["input_modalities"].([]any); ok {
		for _, v := range mods {
			if s, ok := v.(string); ok && s == "image" {
				return true
			}
		}
	}
	if s, ok := arch["modality"].(string); ok {
		in, _, _ := strings.Cut(s, "->")
		return strings.Contains(in, "image")
	}
	return false
}

func hasToolish(v any) bool {
	arr, ok := v.([]any)
	if !ok {
		return false
	}
	for _, item := range arr {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.ToLower(s)
		if strings.Contains(s, "tool") || strings.Contains(s, "function") {
			return true
		}
	}
	return false
}
