// Package device drives the local display through command-line automation
// tools: xdotool on X11 and cliclick/screencapture on macOS.
package device

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner executes external commands. Tests substitute a recorder.
type Runner interface {
	Run(ctx context.Context, env []string, name string, args ...string) ([]byte, error)
	LookPath(name string) (string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// captureToFile runs a capture command that writes to a temporary PNG path
// and returns the file's bytes.
func captureToFile(ctx context.Context, r Runner, env []string, name string, args func(path string) []string) ([]byte, error) {
	f, err := os.CreateTemp("", "deskpilot-shot-*.png")
	if err != nil {
		return nil, fmt.Errorf("create screenshot file: %w", err)
	}
	path := f.Name()
	_ = f.Close()
	defer os.Remove(path)

	if _, err := r.Run(ctx, env, name, args(path)...); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read screenshot: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s produced an empty screenshot", name)
	}
	return data, nil
}
