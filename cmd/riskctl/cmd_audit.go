package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/smart-disease-client/internal/audit"
	"github.com/smart-disease-client/internal/domain"
)

var auditFlags struct {
	out string
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the submission audit trail",
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every audit event as JSON",
	RunE:  runAuditExport,
}

var auditCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count audit events by outcome",
	RunE:  runAuditCount,
}

func init() {
	auditExportCmd.Flags().StringVarP(&auditFlags.out, "out", "o", "", "output file (default stdout)")
	auditCmd.AddCommand(auditExportCmd, auditCountCmd)
}

func openAudit(cmd *cobra.Command) (audit.Store, func(), error) {
	manager, logger, closer, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	cfg := manager.GetConfig()
	if !cfg.Audit.Enabled {
		closer.Close()
		return nil, nil, errors.New("audit trail is disabled (audit.enabled=false)")
	}

	store, closeStore, err := audit.Open(cmd.Context(), cfg, logger)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return store, func() {
		closeStore()
		closer.Close()
	}, nil
}

func runAuditExport(cmd *cobra.Command, _ []string) error {
	store, done, err := openAudit(cmd)
	if err != nil {
		return err
	}
	defer done()

	out := cmd.OutOrStdout()
	if auditFlags.out != "" {
		f, err := os.Create(auditFlags.out)
		if err != nil {
			return fmt.Errorf("create %s: %w", auditFlags.out, err)
		}
		defer f.Close()
		out = f
	}

	if err := store.ExportJSON(cmd.Context(), out); err != nil {
		return fmt.Errorf("export audit events: %w", err)
	}
	if auditFlags.out != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported audit events to %s\n", auditFlags.out)
	}
	return nil
}

func runAuditCount(cmd *cobra.Command, _ []string) error {
	store, done, err := openAudit(cmd)
	if err != nil {
		return err
	}
	defer done()

	total, err := store.Count(cmd.Context())
	if err != nil {
		return fmt.Errorf("count audit events: %w", err)
	}
	byOutcome, err := store.CountByOutcome(cmd.Context())
	if err != nil {
		return fmt.Errorf("count audit events: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Total: %d\n", total)
	writeOutcomeCounts(out, byOutcome)
	return nil
}

func writeOutcomeCounts(out io.Writer, counts map[domain.EventOutcome]int64) {
	outcomes := make([]string, 0, len(counts))
	for o := range counts {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(out, "  %s: %d\n", o, counts[domain.EventOutcome(o)])
	}
}
