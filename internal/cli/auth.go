package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yolodolo42/deskpilot/internal/auth"
	"github.com/yolodolo42/deskpilot/internal/llm"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage LLM provider authentication",
	Long:  `Connect, disconnect, and manage credentials for LLM providers.`,
}

var authConnectCmd = &cobra.Command{
	Use:   "connect [provider]",
	Short: "Connect to an LLM provider",
	Long: `Connect to an LLM provider.

Supported providers:
  anthropic   - Anthropic API (requires API key)
  bedrock     - Anthropic models on AWS Bedrock (AWS credentials, region)
  vertex      - Anthropic models on Google Vertex AI (gcloud credentials, region, project)
  openai      - OpenAI (requires API key)
  openrouter  - OpenRouter (requires API key)
  gemini      - Google Gemini (requires API key)

Bedrock and Vertex use the credentials of the AWS or Google Cloud SDK;
only the region and project are stored.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthConnect,
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List connected providers",
	RunE:  runAuthList,
}

var authDisconnectCmd = &cobra.Command{
	Use:   "disconnect <provider>",
	Short: "Disconnect from a provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthDisconnect,
}

var authDefaultCmd = &cobra.Command{
	Use:   "default [provider]",
	Short: "Get or set the default provider",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuthDefault,
}

var authTestCmd = &cobra.Command{
	Use:   "test <provider>",
	Short: "Send a short request to a provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthTest,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authConnectCmd)
	authCmd.AddCommand(authListCmd)
	authCmd.AddCommand(authDisconnectCmd)
	authCmd.AddCommand(authDefaultCmd)
	authCmd.AddCommand(authTestCmd)

	authConnectCmd.Flags().String("key", "", "API key (will prompt if not provided)")
	authConnectCmd.Flags().String("region", "", "cloud region for bedrock or vertex")
	authConnectCmd.Flags().String("project", "", "Google Cloud project for vertex")
}

func getAuthManager() (*auth.Manager, error) {
	dataDir, err := defaultDataDir()
	if err != nil {
		return nil, err
	}
	return auth.NewManager(dataDir)
}

func runAuthConnect(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())

	var providerID llm.ProviderID
	if len(args) == 0 {
		fmt.Fprintln(out, "Select a provider to connect:")
		providers := llm.AllProviderIDs()
		for i, p := range providers {
			fmt.Fprintf(out, "  %d. %s\n", i+1, p)
		}
		fmt.Fprint(out, "\nEnter number: ")

		var choice int
		_, _ = fmt.Fscanln(in, &choice)
		if choice < 1 || choice > len(providers) {
			return fmt.Errorf("invalid selection")
		}
		providerID = providers[choice-1]
	} else {
		id, err := llm.ParseProviderID(args[0])
		if err != nil {
			return err
		}
		providerID = id
	}

	manager, err := getAuthManager()
	if err != nil {
		return err
	}

	if auth.UsesCloudCredentials(providerID) {
		return connectWithCloudSettings(cmd, in, manager, providerID)
	}
	return connectWithAPIKey(cmd, manager, providerID)
}

func connectWithCloudSettings(cmd *cobra.Command, in *bufio.Reader, manager *auth.Manager, providerID llm.ProviderID) error {
	out := cmd.OutOrStdout()
	region, _ := cmd.Flags().GetString("region")
	project, _ := cmd.Flags().GetString("project")

	info := auth.GetProviderAuthInfo(providerID)
	if len(info.Methods) > 0 {
		fmt.Fprintf(out, "%s\n\n", info.Methods[0].Description)
	}

	var err error
	if region == "" {
		if region, err = promptLine(out, in, fmt.Sprintf("Region for %s: ", providerID)); err != nil {
			return err
		}
	}
	if region == "" {
		return fmt.Errorf("region is required")
	}
	if providerID == llm.ProviderVertex && project == "" {
		if project, err = promptLine(out, in, "Google Cloud project: "); err != nil {
			return err
		}
		if project == "" {
			return fmt.Errorf("project is required")
		}
	}

	if err := manager.SetCloudSettings(providerID, auth.CloudSettings{Region: region, Project: project}); err != nil {
		return fmt.Errorf("failed to save cloud settings: %w", err)
	}
	fmt.Fprintf(out, "✓ Saved %s settings (region %s)\n", providerID, region)
	return nil
}

func promptLine(out io.Writer, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func connectWithAPIKey(cmd *cobra.Command, manager *auth.Manager, providerID llm.ProviderID) error {
	out := cmd.OutOrStdout()
	apiKey, _ := cmd.Flags().GetString("key")
	if apiKey == "" {
		// Show hint about env var
		if envVar := auth.GetEnvVarHint(providerID); envVar != "" {
			fmt.Fprintf(out, "Tip: You can also set %s environment variable\n\n", envVar)
		}

		fmt.Fprintf(out, "Enter API key for %s: ", providerID)
		keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return fmt.Errorf("failed to read API key: %w", err)
		}
		apiKey = strings.TrimSpace(string(keyBytes))
	}

	if apiKey == "" {
		return fmt.Errorf("API key is required")
	}

	if err := manager.SetAPIKey(providerID, apiKey); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	fmt.Fprintf(out, "✓ Successfully connected to %s\n", providerID)
	return nil
}

func runAuthList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	manager, err := getAuthManager()
	if err != nil {
		return err
	}

	connected := manager.ListConnected()
	defaultProvider := manager.GetDefaultProvider()

	if len(connected) == 0 {
		fmt.Fprintln(out, "No providers connected.")
		fmt.Fprintln(out, "\nUse 'deskpilot auth connect <provider>' to connect a provider.")
		fmt.Fprintln(out, "Or set environment variables:")
		for _, id := range llm.AllProviderIDs() {
			if envVar := auth.GetEnvVarHint(id); envVar != "" {
				fmt.Fprintf(out, "  %-12s %s\n", id, envVar)
			}
		}
		return nil
	}

	fmt.Fprintln(out, "Connected providers:")
	for _, id := range connected {
		marker := "  "
		if id == defaultProvider {
			marker = "* "
		}
		detail := ""
		if auth.UsesCloudCredentials(id) {
			if s, err := manager.GetCloudSettings(id); err == nil {
				detail = " (region " + s.Region
				if s.Project != "" {
					detail += ", project " + s.Project
				}
				detail += ")"
			}
		}
		fmt.Fprintf(out, "%s%s%s\n", marker, id, detail)
	}

	fmt.Fprintf(out, "\n* = default provider\n")
	return nil
}

func runAuthDisconnect(cmd *cobra.Command, args []string) error {
	providerID, err := llm.ParseProviderID(args[0])
	if err != nil {
		return err
	}

	manager, err := getAuthManager()
	if err != nil {
		return err
	}

	if err := manager.RemoveCredential(providerID); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Disconnected from %s\n", providerID)
	return nil
}

func runAuthDefault(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	manager, err := getAuthManager()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		fmt.Fprintf(out, "Default provider: %s\n", manager.GetDefaultProvider())
		return nil
	}

	providerID, err := llm.ParseProviderID(args[0])
	if err != nil {
		return err
	}

	// Check if connected
	if !manager.HasCredential(providerID) {
		return fmt.Errorf("provider %s is not connected. Connect it first with 'deskpilot auth connect %s'", providerID, providerID)
	}

	if err := manager.SetDefaultProvider(providerID); err != nil {
		return fmt.Errorf("failed to set default provider: %w", err)
	}

	fmt.Fprintf(out, "Default provider set to: %s\n", providerID)
	return nil
}

func runAuthTest(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	providerID, err := llm.ParseProviderID(args[0])
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.auth.HasCredential(providerID) {
		return fmt.Errorf("no credentials found for %s", providerID)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	model := ""
	if providerID == a.providerID() {
		model = a.settings.Model
	}
	provider, err := a.createProvider(ctx, providerID, model)
	if err != nil {
		return err
	}
	defer closeProvider(provider)

	fmt.Fprintf(out, "Testing connection to %s (%s)...\n", providerID, provider.DefaultModel())

	start := time.Now()
	resp, err := provider.Chat(ctx, &llm.ChatRequest{
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: "Say 'ok' and nothing else."}},
		MaxTokens: 10,
	})
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}

	fmt.Fprintf(out, "✓ %s answered in %s (%d input / %d output tokens)\n",
		providerID, time.Since(start).Round(time.Millisecond), resp.Usage.InputTokens, resp.Usage.OutputTokens)
	return nil
}
