package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yolodolo42/deskpilot/internal/setup"
	"github.com/yolodolo42/deskpilot/internal/ui"
)

var setupCheckOnly bool

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Run the setup wizard",
	Long: `Run the interactive setup wizard to configure deskpilot.

This command guides you through:
  - Connecting an LLM provider (Anthropic, Bedrock, Vertex, OpenAI, ...)
  - Checking the desktop tools the backend needs (xdotool, cliclick, ...)

Use --check to print the current state without changing anything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, err := defaultDataDir()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if setupCheckOnly {
			status, err := setup.DetectSetupStatusFor(dataDir, configuredBackend())
			if err != nil {
				return err
			}
			printSetupStatus(out, status)
			if !status.IsComplete {
				return fmt.Errorf("setup incomplete")
			}
			return nil
		}

		if !setup.IsInteractive() {
			setup.PrintEnvInstructions()
			return fmt.Errorf("setup requires an interactive terminal")
		}

		result, err := setup.RunWizard(dataDir)
		if err != nil {
			return fmt.Errorf("setup failed: %w", err)
		}

		if result == nil || result.Cancelled {
			return nil
		}

		fmt.Fprintln(out, "\nSetup complete! Run 'deskpilot' to start.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
	setupCmd.Flags().BoolVar(&setupCheckOnly, "check", false, "only report provider and desktop readiness")
}

func printSetupStatus(w io.Writer, s *setup.SetupStatus) {
	ok, bad := ui.Mark(true), ui.Mark(false)

	if s.HasProvider {
		fmt.Fprintf(w, "%s Provider: %s\n", ok, s.ProviderID)
	} else {
		fmt.Fprintf(w, "%s Provider: none connected (run 'deskpilot auth connect')\n", bad)
	}

	fmt.Fprintf(w, "  Desktop backend: %s\n", s.Backend)
	for _, b := range s.Binaries {
		if b.OK() {
			fmt.Fprintf(w, "  %s %-24s %s\n", ok, b.Name, b.Path)
		} else {
			fmt.Fprintf(w, "  %s %-24s not found\n", bad, b.Name)
		}
	}
	if missing := s.Missing(); len(missing) > 0 {
		fmt.Fprintf(w, "\nInstall %s to let the model control this desktop.\n", strings.Join(missing, ", "))
	}
}
