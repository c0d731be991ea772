// Package main runs the disease risk assessment web client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/smart-disease-client/internal/api"
	"github.com/smart-disease-client/internal/audit"
	"github.com/smart-disease-client/internal/config"
	"github.com/smart-disease-client/internal/domain"
	"github.com/smart-disease-client/internal/health"
	"github.com/smart-disease-client/internal/logging"
	"github.com/smart-disease-client/internal/session"
	"github.com/smart-disease-client/pkg/prediction"
)

// version is set at build time via -ldflags.
var version = "dev"

var configFile string

var rootCmd = &cobra.Command{
	Use:          "server",
	Short:        "Serve the disease risk assessment web client",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         serve,
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file (default: search . ./config /etc/risk-client)")
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(cmd *cobra.Command, _ []string) error {
	// Load configuration
	configManager, err := config.NewManager(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logger, closer, err := logging.New(configManager.GetConfig().Logging)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configManager, logger); err != nil {
		logger.WithError(err).Error("Server failed")
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func run(ctx context.Context, configManager *config.Manager, logger *logrus.Logger) error {
	cfg := configManager.GetConfig()

	logger.WithFields(logrus.Fields{
		"version":        version,
		"environment":    environment(configManager),
		"prediction_url": cfg.Prediction.BaseURL,
		"audit_driver":   cfg.Audit.Driver,
	}).Info("Starting disease risk assessment client")

	client := prediction.NewClient(cfg.Prediction, logger)

	store, closeStore, err := audit.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	sessions := session.NewStore(cfg.Session, client, store, logger)
	defer sessions.Close()

	checker := health.NewHealthChecker(cfg.Health.Interval, cfg.Health.Timeout, version, logger)
	checker.RegisterCheck(&health.PredictionServiceCheck{Service: client})
	checker.RegisterCheck(&health.SessionStoreCheck{Sessions: sessions, Capacity: cfg.Session.MaxSessions})
	if cfg.Audit.Enabled {
		checker.RegisterCheck(&health.AuditStoreCheck{Store: store})
	}

	server, err := api.NewServer(cfg, api.Dependencies{
		Sessions: sessions,
		Chat:     client,
		Health:   checker,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return checker.Run(gctx) })
	g.Go(func() error { return server.Start(gctx) })

	return g.Wait()
}

func environment(m domain.ConfigManager) string {
	switch {
	case m.IsProduction():
		return "production"
	case m.IsDevelopment():
		return "development"
	default:
		return "custom"
	}
}
