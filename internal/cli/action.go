package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yolodolo42/deskpilot/internal/agent"
	"github.com/yolodolo42/deskpilot/internal/computer"
	"github.com/yolodolo42/deskpilot/internal/ui"
)

// actionSession groups manual actions in the history.
const actionSession = "manual"

var actionScreenshotsDir string

var actionCmd = &cobra.Command{
	Use:   "action <json>",
	Short: "Execute a single computer action",
	Long: `Execute one computer action directly, without a model. The argument is
the JSON input the model would send; coordinates are in the scaled space the
model sees.

Examples:
  deskpilot action '{"action":"screenshot"}'
  deskpilot action '{"action":"left_click","coordinate":[512,384]}'
  deskpilot action '{"action":"type","text":"hello"}'
  echo '{"action":"key","text":"ctrl+l"}' | deskpilot action -`,
	Args: cobra.ExactArgs(1),
	RunE: runAction,
}

func init() {
	rootCmd.AddCommand(actionCmd)
	actionCmd.Flags().StringVar(&actionScreenshotsDir, "screenshots-dir", "", "directory for screenshots (default from config)")
}

func runAction(cmd *cobra.Command, args []string) error {
	raw, err := readActionInput(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	tool, err := a.computerTool(ctx)
	if err != nil {
		return fmt.Errorf("desktop unavailable: %w", err)
	}

	dir := actionScreenshotsDir
	if dir == "" {
		dir = a.settings.ScreenshotsDir
	}
	return executeAction(ctx, cmd.OutOrStdout(), a, tool, raw, dir)
}

// readActionInput accepts the JSON inline or, for "-", from stdin.
func readActionInput(arg string, stdin io.Reader) (json.RawMessage, error) {
	if arg == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read action: %w", err)
		}
		arg = string(b)
	}
	arg = strings.TrimSpace(arg)
	if !json.Valid([]byte(arg)) {
		return nil, fmt.Errorf("action must be a JSON object")
	}
	return json.RawMessage(arg), nil
}

func executeAction(ctx context.Context, w io.Writer, a *app, tool *computer.Tool, raw json.RawMessage, dir string) error {
	id := "manual_" + uuid.NewString()[:8]
	start := time.Now()
	res, err := agent.NewToolCollection(agent.NewComputerTool(tool)).Run(ctx, computer.Name, raw)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if store, herr := a.historyStore(); herr != nil {
		a.logger.Warn("action history disabled", "error", herr)
	} else if store != nil {
		rec := agent.ActionRecord{
			SessionID: actionSession,
			ToolUseID: id,
			Tool:      computer.Name,
			Input:     string(raw),
			Output:    res.Output,
			Error:     res.Error,
			HasImage:  res.Base64Image != "",
			Duration:  elapsed,
			CreatedAt: time.Now(),
		}
		if err := store.Record(ctx, rec); err != nil {
			a.logger.Warn("record action", "error", err)
		}
	}

	if res.Error != "" {
		fmt.Fprintln(w, ui.Mark(false)+" "+ui.Style.Error.Render(res.Error))
		return fmt.Errorf("action failed")
	}
	if res.Output != "" {
		fmt.Fprintln(w, ui.Mark(true)+" "+res.Output)
	}
	if res.Base64Image != "" && dir != "" {
		path, err := saveScreenshot(dir, id, res.Base64Image)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, ui.Notice("saved "+path))
	}
	return nil
}
