// riskctl is the operations CLI of the disease risk assessment client:
// schema dumps, the stdio MCP server, database migrations and the audit trail.
//
// Usage:
//
//	riskctl schema [variant] [--format yaml|json]
//	riskctl mcp
//	riskctl migrate up|down|version
//	riskctl audit export [--out file]
//	riskctl audit count
//	riskctl setup mcp-client [--client-config path]
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/smart-disease-client/internal/config"
	"github.com/smart-disease-client/internal/domain"
	"github.com/smart-disease-client/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configFile string
}

var rootCmd = &cobra.Command{
	Use:   "riskctl",
	Short: "Operate the disease risk assessment client",
	Long:  "riskctl inspects the assessment schemas, serves the assessment tools over MCP\nand manages the submission audit trail.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.configFile, "config", "", "config file (default: search . ./config /etc/risk-client)")

	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads and validates configuration. Logs go to stderr so that
// command output on stdout stays machine-readable.
func loadConfig() (*config.Manager, *logrus.Logger, io.Closer, error) {
	manager, err := config.NewManager(rootFlags.configFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := manager.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logCfg := manager.GetConfig().Logging
	if logCfg.Output == "" || logCfg.Output == "stdout" {
		logCfg.Output = "stderr"
	}
	logger, closer, err := logging.New(logCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("set up logging: %w", err)
	}
	return manager, logger, closer, nil
}

func parseVariants(args []string) ([]domain.DiseaseVariant, error) {
	var out []domain.DiseaseVariant
	for _, a := range args {
		v, err := domain.ParseDiseaseVariant(a)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", err, a)
		}
		out = append(out, v)
	}
	return out, nil
}
