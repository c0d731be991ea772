package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smart-disease-client/internal/setup"
)

var setupFlags struct {
	clientConfig  string
	name          string
	binary        string
	predictionURL string
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Integrate riskctl with other tools",
}

var setupMCPClientCmd = &cobra.Command{
	Use:   "mcp-client",
	Short: "Register 'riskctl mcp' in a desktop MCP client's config",
	RunE:  runSetupMCPClient,
}

func init() {
	f := setupMCPClientCmd.Flags()
	f.StringVar(&setupFlags.clientConfig, "client-config", "", "client config file (default: the desktop client's standard location)")
	f.StringVar(&setupFlags.name, "name", setup.DefaultServerName, "server name to register")
	f.StringVar(&setupFlags.binary, "binary", "", "riskctl binary path (default: this executable)")
	f.StringVar(&setupFlags.predictionURL, "prediction-url", "", "prediction service base URL passed to the server")
	setupCmd.AddCommand(setupMCPClientCmd)
}

func runSetupMCPClient(cmd *cobra.Command, _ []string) error {
	existed, err := setup.Register(setup.Options{
		ConfigPath:    setupFlags.clientConfig,
		Name:          setupFlags.name,
		BinaryPath:    setupFlags.binary,
		ConfigFile:    rootFlags.configFile,
		PredictionURL: setupFlags.predictionURL,
	})
	if err != nil {
		return err
	}

	verb := "Registered"
	if existed {
		verb = "Updated"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s MCP server %q. Restart the client to pick it up.\n", verb, setupFlags.name)
	return nil
}
