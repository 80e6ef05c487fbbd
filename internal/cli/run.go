package cli

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yolodolo42/deskpilot/internal/agent"
	"github.com/yolodolo42/deskpilot/internal/llm"
	"github.com/yolodolo42/deskpilot/internal/ui"
)

const defaultInstruction = "Save an image of a cat to the desktop."

var (
	runScreenshotsDir string
	runShowAPI        bool
	runTranscript     bool
	runResume         string
)

var runCmd = &cobra.Command{
	Use:   "run [instruction...]",
	Short: "Run one instruction until the model stops acting",
	Long: `Send an instruction to the model and execute the computer actions it
asks for until it answers without one.

Screenshots the model receives are written to the screenshots directory as
screenshot_<tool_use_id>.png.

Examples:
  deskpilot run "Open a terminal and run uptime"
  deskpilot run --transcript "Find the weather for Lisbon"
  deskpilot run --resume ~/.deskpilot/transcripts/<id>.json "Now close the window"`,
	RunE: runInstruction,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runScreenshotsDir, "screenshots-dir", "", "directory for screenshots (default from config)")
	runCmd.Flags().BoolVar(&runShowAPI, "show-api", false, "print every model response as JSON")
	runCmd.Flags().BoolVar(&runTranscript, "transcript", false, "save a transcript under the data directory")
	runCmd.Flags().StringVar(&runResume, "resume", "", "continue from a saved transcript")
}

func runInstruction(cmd *cobra.Command, args []string) error {
	instruction := strings.TrimSpace(strings.Join(args, " "))
	if instruction == "" {
		instruction = defaultInstruction
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	dir := runScreenshotsDir
	if dir == "" {
		dir = a.settings.ScreenshotsDir
	}
	p := &printer{w: cmd.OutOrStdout(), showAPI: runShowAPI, screenshotsDir: dir, logger: a.logger}

	var (
		conv    *agent.Conversation
		history []llm.Message
	)
	switch {
	case runResume != "":
		prev, err := agent.LoadConversation(runResume)
		if err != nil {
			return fmt.Errorf("failed to load transcript: %w", err)
		}
		history = prev.ToMessages()
		// The loop re-records the replayed turns, so start the transcript empty.
		conv = &agent.Conversation{ID: prev.ID, StartedAt: prev.StartedAt}
	case runTranscript:
		conv = agent.NewConversation()
	}

	opts := []agent.Option{agent.WithCallbacks(p.callbacks())}
	if conv != nil {
		opts = append(opts, agent.WithTranscript(conv))
	}
	ag, err := a.newAgent(ctx, opts...)
	if err != nil {
		return err
	}
	defer ag.Close()

	if conv != nil {
		conv.Provider = string(ag.CurrentProvider().ID())
		conv.Model = ag.CurrentModel()
	}

	messages := append(history, llm.Message{Role: llm.RoleUser, Content: instruction})
	_, runErr := ag.Run(ctx, messages)

	if conv != nil {
		path, err := conv.Save(filepath.Join(a.settings.DataDir, "transcripts"))
		if err != nil {
			a.logger.Warn("transcript not saved", "error", err)
		} else {
			fmt.Fprintln(p.w, ui.Notice("Transcript: "+path))
		}
	}
	if errors.Is(runErr, agent.ErrMaxTurns) {
		fmt.Fprintln(p.w, ui.Failure("Stopped: turn limit reached.", ""))
		return nil
	}
	return runErr
}

// printer writes agent progress to a terminal and saves screenshots.
type printer struct {
	w              io.Writer
	showAPI        bool
	screenshotsDir string
	logger         *slog.Logger
}

func (p *printer) callbacks() agent.Callbacks {
	cb := agent.Callbacks{
		Output:     p.block,
		ToolOutput: p.toolOutput,
	}
	if p.showAPI {
		cb.APIResponse = p.apiResponse
	}
	return cb
}

func (p *printer) block(b agent.Block) {
	switch b.Type {
	case agent.BlockThinking:
		fmt.Fprintln(p.w, ui.ThinkingLine(b.Thinking))
	case agent.BlockText:
		fmt.Fprintln(p.w, ui.AssistantLine(b.Text))
	case agent.BlockToolUse:
		fmt.Fprintln(p.w, ui.ActionLine(describeCall(b.ToolCall)))
	}
}

func (p *printer) toolOutput(out agent.ToolOutput, res *agent.ToolResult) {
	text := out.Text
	if text == "" && out.HasImage {
		text = "screenshot taken"
	}
	if text != "" {
		fmt.Fprintln(p.w, ui.ResultLine(text, out.IsError))
	}
	if res == nil || res.Image == "" || p.screenshotsDir == "" {
		return
	}
	path, err := saveScreenshot(p.screenshotsDir, res.Call.ID, res.Image)
	if err != nil {
		p.logger.Warn("screenshot not saved", "tool_use_id", res.Call.ID, "error", err)
		return
	}
	fmt.Fprintln(p.w, ui.Notice("    saved "+path))
}

func (p *printer) apiResponse(resp *llm.ChatResponse, err error) {
	if err != nil {
		fmt.Fprintln(p.w, ui.Failure("API error", err.Error()))
		return
	}
	body := []byte(resp.Raw)
	if len(body) == 0 {
		body, _ = json.Marshal(resp)
	}
	fmt.Fprintln(p.w, ui.Notice(string(body)))
}

// describeCall renders a tool call as name(action k=v ...).
func describeCall(tc *llm.ToolCall) string {
	if tc == nil {
		return ""
	}
	var input map[string]any
	if err := json.Unmarshal(tc.Input, &input); err != nil || len(input) == 0 {
		return tc.Name + "()"
	}
	parts := make([]string, 0, len(input))
	if action, ok := input["action"].(string); ok {
		parts = append(parts, action)
	}
	for _, key := range []string{"coordinate", "start_coordinate", "text", "scroll_direction", "scroll_amount", "duration", "key"} {
		if v, ok := input[key]; ok {
			b, _ := json.Marshal(v)
			parts = append(parts, key+"="+truncate(string(b), 60))
		}
	}
	return tc.Name + "(" + strings.Join(parts, " ") + ")"
}

// saveScreenshot decodes a base64 PNG to dir/screenshot_<id>.png.
func saveScreenshot(dir, toolUseID, b64 string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("decode screenshot: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create screenshots dir: %w", err)
	}
	path := filepath.Join(dir, "screenshot_"+sanitizeID(toolUseID)+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	return path, nil
}

// sanitizeID keeps tool use IDs usable as file names.
func sanitizeID(id string) string {
	if id == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
