package llm

import (
	"fmt"
	"sort"
	"sync"
)

// ProviderRegistry holds the configured providers and which one is default.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[ProviderID]Provider
	defaultID ProviderID
}

// ProviderInfo summarises a registered provider for listings.
type ProviderInfo struct {
	ID            ProviderID
	Name          string
	Model         string
	IsDefault     bool
	SupportsTools bool
}

// NewProviderRegistry returns an empty registry defaulting to Anthropic.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[ProviderID]Provider),
		defaultID: ProviderAnthropic,
	}
}

// Register adds or replaces a provider.
func (r *ProviderRegistry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
}

// Get returns the provider with the given ID.
func (r *ProviderRegistry) Get(id ProviderID) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", id)
	}
	return p, nil
}

// GetDefault returns the default provider.
func (r *ProviderRegistry) GetDefault() (Provider, error) {
	r.mu.RLock()
	id := r.defaultID
	r.mu.RUnlock()
	return r.Get(id)
}

// SetDefault changes the default; the provider must be registered.
func (r *ProviderRegistry) SetDefault(id ProviderID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[id]; !ok {
		return fmt.Errorf("provider not found: %s", id)
	}
	r.defaultID = id
	return nil
}

// List returns registered provider IDs in priority order.
func (r *ProviderRegistry) List() []ProviderID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]ProviderID, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sortByPriority(ids)
	return ids
}

// ListProviders returns info for every registered provider.
func (r *ProviderRegistry) ListProviders() []ProviderInfo {
	ids := r.List()
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]ProviderInfo, 0, len(ids))
	for _, id := range ids {
		p := r.providers[id]
		infos = append(infos, ProviderInfo{
			ID:            id,
			Name:          p.Name(),
			Model:         p.DefaultModel(),
			IsDefault:     id == r.defaultID,
			SupportsTools: p.SupportsTools(),
		})
	}
	return infos
}

func sortByPriority(ids []ProviderID) {
	rank := make(map[ProviderID]int)
	for i, id := range AllProviderIDs() {
		rank[id] = i + 1
	}
	sort.SliceStable(ids, func(i, j int) bool {
		ri, rj := rank[ids[i]], rank[ids[j]]
		if ri == 0 {
			ri = len(rank) + 1
		}
		if rj == 0 {
			rj = len(rank) + 1
		}
		if ri != rj {
			return ri < rj
		}
		return ids[i] < ids[j]
	})
}
