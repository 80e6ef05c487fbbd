package setup

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/yolodolo42/deskpilot/internal/auth"
	"github.com/yolodolo42/deskpilot/internal/device"
	"github.com/yolodolo42/deskpilot/internal/llm"
)

// BinaryCheck is one required desktop command and where it was found.
// Alternatives are listed as "a|b"; Found names the one that resolved.
type BinaryCheck struct {
	Name  string
	Found string
	Path  string
}

// OK reports whether any alternative resolved.
func (c BinaryCheck) OK() bool { return c.Path != "" }

// SetupStatus represents the current setup state
type SetupStatus struct {
	HasProvider bool
	ProviderID  llm.ProviderID

	Backend      string
	Binaries     []BinaryCheck
	DesktopReady bool

	// IsComplete means a provider is configured; a missing desktop tool is
	// reported but does not block startup.
	IsComplete bool
}

// Missing lists the binary checks that did not resolve.
func (s *SetupStatus) Missing() []string {
	var out []string
	for _, b := range s.Binaries {
		if !b.OK() {
			out = append(out, b.Name)
		}
	}
	return out
}

// lookPath is swapped in tests.
var lookPath = device.ExecRunner{}.LookPath

// DetectSetupStatus checks the current setup state for the host's default
// desktop backend.
func DetectSetupStatus(dataDir string) (*SetupStatus, error) {
	return DetectSetupStatusFor(dataDir, device.DefaultBackend(runtime.GOOS))
}

// DetectSetupStatusFor checks provider credentials and the commands the
// named backend needs.
func DetectSetupStatusFor(dataDir, backend string) (*SetupStatus, error) {
	status := &SetupStatus{Backend: backend}

	// Check for connected LLM providers
	if authManager, err := auth.NewManager(dataDir); err == nil {
		connected := authManager.ListConnected()
		if len(connected) > 0 {
			status.HasProvider = true
			status.ProviderID = connected[0]
			def := authManager.GetDefaultProvider()
			for _, id := range connected {
				if id == def {
					status.ProviderID = def
					break
				}
			}
		}
	}

	status.Binaries = CheckBinaries(backend)
	status.DesktopReady = backend != ""
	for _, b := range status.Binaries {
		if !b.OK() {
			status.DesktopReady = false
		}
	}

	status.IsComplete = status.HasProvider
	return status, nil
}

// CheckBinaries resolves every command the backend needs.
func CheckBinaries(backend string) []BinaryCheck {
	required := device.RequiredBinaries(backend)
	checks := make([]BinaryCheck, 0, len(required))
	for _, name := range required {
		check := BinaryCheck{Name: name}
		for _, alt := range strings.Split(name, "|") {
			if path, err := lookPath(alt); err == nil {
				check.Found = alt
				check.Path = path
				break
			}
		}
		checks = append(checks, check)
	}
	return checks
}

// NeedsSetup returns true if interactive setup should run
func NeedsSetup(dataDir string) bool {
	status, _ := DetectSetupStatus(dataDir)
	return !status.IsComplete
}

// GetDataDir returns the deskpilot data directory path
func GetDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".deskpilot"), nil
}
