package device

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/yolodolo42/deskpilot/internal/computer"
)

// Backend names accepted by New.
const (
	BackendAuto    = "auto"
	BackendXdotool = "xdotool"
	BackendDarwin  = "darwin"
)

// Config selects and configures a backend.
type Config struct {
	Backend       string
	DisplayNumber *int
	Runner        Runner
}

// New returns the backend named by cfg.Backend, or the one matching the
// host OS for "auto" and "".
func New(cfg Config) (computer.Device, error) {
	r := cfg.Runner
	if r == nil {
		r = ExecRunner{}
	}
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" || backend == BackendAuto {
		backend = DefaultBackend(runtime.GOOS)
	}
	switch backend {
	case BackendXdotool:
		return NewXdotool(r, cfg.DisplayNumber)
	case BackendDarwin:
		return NewDarwin(r)
	case "":
		return nil, fmt.Errorf("no desktop backend for %s", runtime.GOOS)
	default:
		return nil, fmt.Errorf("unknown device backend %q (want %s, %s or %s)", cfg.Backend, BackendAuto, BackendXdotool, BackendDarwin)
	}
}

// DefaultBackend maps an OS name to its backend, or "" if unsupported.
func DefaultBackend(goos string) string {
	switch goos {
	case "darwin":
		return BackendDarwin
	case "linux", "freebsd", "openbsd", "netbsd":
		return BackendXdotool
	default:
		return ""
	}
}

// RequiredBinaries lists the commands a backend needs, for readiness checks.
// Alternatives are joined with "|".
func RequiredBinaries(backend string) []string {
	switch backend {
	case BackendXdotool:
		return []string{"xdotool", "gnome-screenshot|scrot"}
	case BackendDarwin:
		return []string{"cliclick", "screencapture", "osascript", "swift"}
	default:
		return nil
	}
}
