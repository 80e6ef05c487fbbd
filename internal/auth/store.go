package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yolodolo42/deskpilot/internal/llm"
)

const (
	authFileName = "auth.json"
	filePerms    = 0o600

	// currentVersion 2 added cloud credentials and preferred models.
	currentVersion = 2
)

// CredentialType says how a provider authenticates.
type CredentialType string

const (
	CredentialTypeAPI   CredentialType = "api"
	CredentialTypeCloud CredentialType = "cloud"
)

// Credential is what auth.json keeps for one provider. Cloud providers keep
// only their region and project; the cloud SDK owns the secrets.
type Credential struct {
	Type      CredentialType `json:"type"`
	Key       string         `json:"key,omitempty"`
	Region    string         `json:"region,omitempty"`
	Project   string         `json:"project,omitempty"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
}

// AuthData is the on-disk layout of auth.json.
type AuthData struct {
	Version         int                           `json:"version"`
	Providers       map[llm.ProviderID]Credential `json:"providers"`
	DefaultProvider llm.ProviderID                `json:"default_provider"`
	// Models remembers the last model picked per provider.
	Models map[llm.ProviderID]string `json:"models,omitempty"`
}

// Store is the auth.json file behind a mutex. Every mutation is written
// through before it returns.
type Store struct {
	mu       sync.RWMutex
	filePath string
	data     *AuthData
	now      func() time.Time
}

// NewStore opens dataDir/auth.json, creating the directory if needed.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Store{
		filePath: filepath.Join(dataDir, authFileName),
		data:     emptyAuthData(),
		now:      time.Now,
	}
	if err := s.load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load auth data: %w", err)
	}
	return s, nil
}

func emptyAuthData() *AuthData {
	return &AuthData{
		Version:         currentVersion,
		Providers:       make(map[llm.ProviderID]Credential),
		DefaultProvider: llm.ProviderAnthropic,
		Models:          make(map[llm.ProviderID]string),
	}
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}
	var d AuthData
	if err := json.Unmarshal(raw, &d); err != nil {
		return fmt.Errorf("failed to parse auth file: %w", err)
	}
	s.data = migrate(&d)
	return nil
}

// migrate upgrades older files in memory. Entries for providers this build
// does not know, or credential types it cannot use, are dropped.
func migrate(d *AuthData) *AuthData {
	out := emptyAuthData()
	for id, cred := range d.Providers {
		if _, err := llm.ParseProviderID(string(id)); err != nil {
			continue
		}
		if cred.Type == "" {
			cred.Type = CredentialTypeAPI
		}
		if cred.Type != CredentialTypeAPI && cred.Type != CredentialTypeCloud {
			continue
		}
		out.Providers[id] = cred
	}
	for id, model := range d.Models {
		if _, ok := out.Providers[id]; ok && model != "" {
			out.Models[id] = model
		}
	}
	if _, err := llm.ParseProviderID(string(d.DefaultProvider)); err == nil {
		out.DefaultProvider = d.DefaultProvider
	}
	return out
}

// save writes auth.json through a temp file in the same directory, so a
// crash leaves either the old or the new file.
func (s *Store) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal auth data: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.filePath), authFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write auth file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if err := tmp.Chmod(filePerms); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write auth file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write auth file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to write auth file: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		cleanup()
		return fmt.Errorf("failed to save auth file: %w", err)
	}
	return nil
}

// GetCredential returns the stored credential for a provider.
func (s *Store) GetCredential(providerID llm.ProviderID) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.data.Providers[providerID]
	if !ok {
		return Credential{}, fmt.Errorf("no credential found for provider: %s", providerID)
	}
	return cred, nil
}

// SetCredential replaces the credential for a provider.
func (s *Store) SetCredential(providerID llm.ProviderID, cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred.UpdatedAt = s.now().UTC()
	s.data.Providers[providerID] = cred
	return s.save()
}

// RemoveCredential forgets a provider and its preferred model. Removing an
// unknown provider is not an error.
func (s *Store) RemoveCredential(providerID llm.ProviderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data.Providers, providerID)
	delete(s.data.Models, providerID)
	return s.save()
}

// GetDefaultProvider returns the default provider, anthropic if unset.
func (s *Store) GetDefaultProvider() llm.ProviderID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data.DefaultProvider == "" {
		return llm.ProviderAnthropic
	}
	return s.data.DefaultProvider
}

// SetDefaultProvider sets the default provider
func (s *Store) SetDefaultProvider(providerID llm.ProviderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.DefaultProvider = providerID
	return s.save()
}

// GetModel returns the remembered model for a provider, or "".
func (s *Store) GetModel(providerID llm.ProviderID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Models[providerID]
}

// SetModel remembers a model for a provider; "" clears it.
func (s *Store) SetModel(providerID llm.ProviderID, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if model == "" {
		delete(s.data.Models, providerID)
	} else {
		s.data.Models[providerID] = model
	}
	return s.save()
}

// ListProviders returns the providers with stored credentials in
// llm.AllProviderIDs order.
func (s *Store) ListProviders() []llm.ProviderID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]llm.ProviderID, 0, len(s.data.Providers))
	for _, id := range llm.AllProviderIDs() {
		if _, ok := s.data.Providers[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
