package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check ADDRESS PORT",
	Short: "Probe one edge node with the configured canary hosts",
	Long: `Probe an edge node exactly the way a reconciliation pass would and
print the verdict. No records are read or changed.

Examples:
  failover check edge-hk-1.cdnvendor.net 443`,
	Args: cobra.ExactArgs(2),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	address := args[0]
	port, err := strconv.Atoi(args[1])
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %q", args[1])
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	verdict := newNodeChecker(cfg).Check(context.Background(), address, port)

	out := cmd.OutOrStdout()
	if verdict.Healthy {
		fmt.Fprintf(out, "✓ %s:%d is healthy (%d attempts, %s)\n",
			address, port, verdict.Attempts, verdict.Duration.Round(time.Millisecond))
		return nil
	}

	fmt.Fprintf(out, "✗ %s:%d is unhealthy after %d attempts\n", address, port, verdict.Attempts)
	fmt.Fprintf(out, "  Host: %s\n", verdict.FailedHost)
	fmt.Fprintf(out, "  Error: %v\n", verdict.Err)
	return fmt.Errorf("node %s:%d is unhealthy", address, port)
}
