package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smart-disease-client/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the Postgres audit schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrations(func(mr *database.MigrationRunner) error {
			return mr.Up(cmd.Context())
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrations(func(mr *database.MigrationRunner) error {
			return mr.Down(cmd.Context())
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrations(func(mr *database.MigrationRunner) error {
			v, dirty, err := mr.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
			return nil
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
}

func withMigrations(fn func(*database.MigrationRunner) error) error {
	manager, logger, closer, err := loadConfig()
	if err != nil {
		return err
	}
	defer closer.Close()

	mr, err := database.NewMigrationRunner(manager.GetDatabaseURL(), logger)
	if err != nil {
		return err
	}
	defer mr.Close()

	return fn(mr)
}
