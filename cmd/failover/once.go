package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/failover/pkg/reconciler"
	"github.com/spf13/cobra"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single reconciliation pass",
	Long: `Run one reconciliation pass now and print what it did.

Examples:
  # Apply status changes
  failover once

  # Show the changes a pass would make without applying them
  failover once --dry-run`,
	RunE: runOnce,
}

func init() {
	onceCmd.Flags().Bool("dry-run", false, "Compute status changes without applying them")
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	reg, closeRegistry, err := openRegistry(cfg)
	if err != nil {
		return fmt.Errorf("failed to open registrar: %w", err)
	}
	defer closeRegistry()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recon := newReconciler(cfg, reg, nil, dryRun || cfg.DryRun)
	summary, err := recon.Run(ctx)
	if summary != nil {
		printSummary(cmd.OutOrStdout(), summary)
	}
	return err
}

func printSummary(w io.Writer, s *reconciler.PassSummary) {
	fmt.Fprintf(w, "Pass %s (%s)\n", s.PassID, s.Result())
	if s.DryRun {
		fmt.Fprintln(w, "  Dry run: no changes applied")
	}
	fmt.Fprintf(w, "  Records: %d listed over %d pages, %d matched\n", s.Listed, s.Pages, s.Matched)
	fmt.Fprintf(w, "  Nodes: %d healthy, %d unhealthy\n", s.Healthy, s.Unhealthy)
	fmt.Fprintf(w, "  Status: %d enabled, %d disabled, %d unchanged\n", s.Enabled, s.Disabled, s.Unchanged)

	for _, c := range s.Changes {
		mark := "✓"
		if !c.Applied {
			mark = "~"
		}
		fmt.Fprintf(w, "  %s %s %s → %s (%s)\n", mark, c.Record, c.From, c.To, c.Node)
	}
	for _, e := range s.Errors {
		fmt.Fprintf(w, "  ✗ %s\n", e)
	}
	fmt.Fprintf(w, "  Took %s\n", s.Duration.Round(time.Millisecond))
}
