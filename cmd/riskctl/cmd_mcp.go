package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smart-disease-client/internal/audit"
	"github.com/smart-disease-client/internal/mcp"
	"github.com/smart-disease-client/pkg/prediction"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the assessment tools over MCP on stdio",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, _ []string) error {
	manager, logger, closer, err := loadConfig()
	if err != nil {
		return err
	}
	defer closer.Close()
	cfg := manager.GetConfig()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := audit.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	client := prediction.NewClient(cfg.Prediction, logger)
	server := mcp.NewServer(cfg.MCP, client, store, logger)
	return server.Run(ctx)
}
