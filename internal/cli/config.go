package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yolodolo42/deskpilot/internal/agent"
	"github.com/yolodolo42/deskpilot/internal/computer"
	"github.com/yolodolo42/deskpilot/internal/device"
	"github.com/yolodolo42/deskpilot/internal/llm"
)

// Settings is the resolved configuration for one command invocation.
type Settings struct {
	DataDir string

	Provider    llm.ProviderID
	Model       string
	ToolVersion computer.ToolVersion

	Agent      agent.Config
	MaxRetries int

	ScalingEnabled        bool
	Display               computer.Resolution
	DisplayNumber         *int
	Backend               string
	ScreenshotAfterAction bool
	ScreenshotDelay       time.Duration
	Policy                computer.Policy

	ScreenshotsDir string
	HistoryEnabled bool
	SessionLog     bool
	MetricsAddr    string
	LogLevel       string
}

func setDefaults(v *viper.Viper) {
	def := agent.DefaultConfig()
	v.SetDefault("tool_version", string(computer.DefaultVersion))
	v.SetDefault("max_tokens", def.MaxTokens)
	v.SetDefault("max_retries", 2)
	v.SetDefault("only_n_most_recent_images", def.OnlyNMostRecentImages)
	v.SetDefault("min_removal_threshold", def.MinRemovalThreshold)
	v.SetDefault("scaling.enabled", true)
	v.SetDefault("device.backend", "auto")
	v.SetDefault("computer.screenshot_delay", computer.DefaultScreenshotDelay)
	v.SetDefault("screenshots_dir", "screenshots")
	v.SetDefault("history.enabled", true)
	v.SetDefault("session_log.enabled", true)
	v.SetDefault("log_level", "warn")
}

// loadSettings reads v into Settings. Provider is left empty when neither
// flag nor config names one; the auth store's default applies then.
func loadSettings(v *viper.Viper, dataDir string) (*Settings, error) {
	version, err := computer.ParseToolVersion(v.GetString("tool_version"))
	if err != nil {
		return nil, err
	}

	s := &Settings{
		DataDir:     dataDir,
		Model:       v.GetString("model"),
		ToolVersion: version,
		Agent: agent.Config{
			SystemPromptSuffix:    v.GetString("system_prompt_suffix"),
			MaxTokens:             v.GetInt("max_tokens"),
			ThinkingBudget:        v.GetInt("thinking_budget"),
			TokenEfficientTools:   v.GetBool("token_efficient_tools"),
			OnlyNMostRecentImages: v.GetInt("only_n_most_recent_images"),
			MinRemovalThreshold:   v.GetInt("min_removal_threshold"),
			MaxTurns:              v.GetInt("max_turns"),
		},
		MaxRetries:     v.GetInt("max_retries"),
		ScalingEnabled: v.GetBool("scaling.enabled"),
		Display: computer.Resolution{
			Width:  v.GetInt("display.width"),
			Height: v.GetInt("display.height"),
		},
		Backend:               v.GetString("device.backend"),
		ScreenshotAfterAction: v.GetBool("computer.screenshot_after_action"),
		ScreenshotDelay:       v.GetDuration("computer.screenshot_delay"),
		ScreenshotsDir:        v.GetString("screenshots_dir"),
		HistoryEnabled:        v.GetBool("history.enabled"),
		SessionLog:            v.GetBool("session_log.enabled"),
		MetricsAddr:           v.GetString("metrics.addr"),
		LogLevel:              v.GetString("log_level"),
	}

	if p := v.GetString("provider"); p != "" {
		id, err := llm.ParseProviderID(p)
		if err != nil {
			return nil, err
		}
		s.Provider = id
	}
	if v.IsSet("display.number") {
		n := v.GetInt("display.number")
		s.DisplayNumber = &n
	}
	if err := v.UnmarshalKey("policy", &s.Policy); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	return s, nil
}

// computerConfig maps settings onto the tool's configuration.
func (s *Settings) computerConfig(logger *slog.Logger) computer.Config {
	return computer.Config{
		Version:               s.ToolVersion,
		Display:               s.Display,
		DisplayNumber:         s.DisplayNumber,
		ScalingEnabled:        s.ScalingEnabled,
		ScreenshotAfterAction: s.ScreenshotAfterAction,
		ScreenshotDelay:       s.ScreenshotDelay,
		Policy:                s.Policy,
		Logger:                logger,
	}
}

// configuredBackend resolves device.backend, mapping auto to the host's
// default.
func configuredBackend() string {
	b := strings.ToLower(strings.TrimSpace(viper.GetString("device.backend")))
	if b == "" || b == device.BackendAuto {
		return device.DefaultBackend(runtime.GOOS)
	}
	return b
}

func defaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".deskpilot"), nil
}

// newLogger writes text logs to stderr at the named level.
func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}
