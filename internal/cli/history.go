package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yolodolo42/deskpilot/internal/agent"
)

var (
	historySession string
	historyLimit   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently executed computer actions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		store, err := a.historyStore()
		if err != nil {
			return err
		}
		if store == nil {
			return fmt.Errorf("action history is disabled (history.enabled=false)")
		}

		recs, err := store.Recent(cmd.Context(), historySession, historyLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(recs) == 0 {
			fmt.Fprintln(out, "No actions recorded.")
			return nil
		}
		fmt.Fprintln(out, renderBlocks(terminalWidth(), []agent.UIBlock{agent.HistoryBlock(recs)}))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historySession, "session", "", "only show actions from this session ID")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of actions")
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 120
}
