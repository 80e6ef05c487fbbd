package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yolodolo42/deskpilot/internal/agent"
)

var displayCmd = &cobra.Command{
	Use:   "display",
	Short: "Show the display size and the scaling sent to the model",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		tool, err := a.computerTool(cmd.Context())
		if err != nil {
			return fmt.Errorf("desktop unavailable: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderBlocks(terminalWidth(), []agent.UIBlock{agent.DisplayBlock(tool)}))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(displayCmd)
}
