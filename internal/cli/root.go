package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yolodolo42/deskpilot/internal/setup"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "deskpilot",
		Short: "Let a model drive your desktop",
		Long: `deskpilot connects a vision model to your mouse, keyboard and screen.

The model sees screenshots and answers with computer actions (clicks,
typing, key presses, scrolling) that run on the local display through
xdotool on Linux or cliclick on macOS.

Run without arguments for an interactive session, or use
'deskpilot run <instruction>' for a one-shot task.`,
		SilenceUsage: true,
		RunE:         runInteractive,
	}

	replCmd = &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE:  runInteractive,
	}
)

// runInteractive runs the setup wizard when nothing is configured, then
// the REPL.
func runInteractive(cmd *cobra.Command, _ []string) error {
	dataDir, err := defaultDataDir()
	if err != nil {
		return err
	}

	// Check if setup is needed
	if setup.NeedsSetup(dataDir) {
		if !setup.IsInteractive() {
			setup.PrintEnvInstructions()
			return fmt.Errorf("setup required: run deskpilot setup or set environment variables")
		}

		result, err := setup.RunWizard(dataDir)
		if err != nil {
			return fmt.Errorf("setup failed: %w", err)
		}

		// If user cancelled setup, exit cleanly
		if result == nil || result.Cancelled {
			return nil
		}
	}

	return RunREPL(cmd.Context())
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(replCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.deskpilot/config.yaml)")
	flags.String("provider", "", "LLM provider (anthropic, bedrock, vertex, openai, openrouter, gemini)")
	flags.String("model", "", "model ID (default depends on provider)")
	flags.String("tool-version", "", "computer tool version (computer_20250124 or computer_20241022)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag("provider", flags.Lookup("provider"))
	_ = viper.BindPFlag("model", flags.Lookup("model"))
	_ = viper.BindPFlag("tool_version", flags.Lookup("tool-version"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
}

func initConfig() {
	setDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		configDir, err := defaultDataDir()
		cobra.CheckErr(err)

		if err := os.MkdirAll(configDir, 0700); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config directory: %v\n", err)
		}

		viper.AddConfigPath(configDir)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("DESKPILOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Silently ignore missing config file - it's optional
	_ = viper.ReadInConfig()
}
