package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yolodolo42/deskpilot/internal/agent"
	"github.com/yolodolo42/deskpilot/internal/llm"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models of the connected providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		reg, err := a.providerRegistry(cmd.Context())
		if err != nil {
			return err
		}
		var blocks []agent.UIBlock
		for _, info := range reg.ListProviders() {
			p, err := reg.Get(info.ID)
			if err != nil {
				continue
			}
			blocks = append(blocks, modelsBlock(info, p.Models()))
			closeProvider(p)
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderBlocks(terminalWidth(), blocks))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func modelsBlock(info llm.ProviderInfo, models []llm.Model) agent.UIBlock {
	title := info.Name
	if info.IsDefault {
		title += " (default)"
	}
	table := &agent.UITable{
		Title:   title,
		Headers: []string{"", "Model", "Name", "Tools", "Vision", "Context"},
	}
	for _, m := range models {
		marker := ""
		if m.ID == info.Model {
			marker = "*"
		}
		ctx := ""
		if m.ContextWindow > 0 {
			ctx = strconv.Itoa(m.ContextWindow)
		}
		table.Rows = append(table.Rows, []string{marker, m.ID, m.Name, yesNo(m.SupportsTools), yesNo(m.SupportsVision), ctx})
	}
	return agent.UIBlock{Kind: agent.UIBlockTable, Table: table}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
