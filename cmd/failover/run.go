package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/failover/pkg/api"
	"github.com/cuemby/failover/pkg/events"
	"github.com/cuemby/failover/pkg/log"
	"github.com/cuemby/failover/pkg/metrics"
	"github.com/cuemby/failover/pkg/scheduler"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the failover controller on its schedule",
	Long: `Run reconciliation passes on the configured cron schedule until
interrupted.

With runOnStart (the default) the first pass starts immediately. The status
server, when api.addr is set, serves /health, /ready, /status and /metrics.`,
	RunE: runController,
}

func runController(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	reg, closeRegistry, err := openRegistry(cfg)
	if err != nil {
		return fmt.Errorf("failed to open registrar: %w", err)
	}
	defer closeRegistry()

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	collector := metrics.NewCollector(broker)
	collector.Start()
	defer collector.Stop()

	recon := newReconciler(cfg, reg, broker, cfg.DryRun)

	sched := scheduler.NewScheduler(scheduler.Config{
		Expression: cfg.CronExpression,
		Location:   cfg.Location(),
		RunOnStart: cfg.ShouldRunOnStart(),
	}, func(ctx context.Context) {
		// Outcomes are logged by the reconciler
		_, _ = recon.Run(ctx)
	})

	var statusServer *api.HealthServer
	if cfg.API.Addr != "" {
		statusServer = api.NewHealthServer(recon).WithNextPass(sched.Next)
		if err := statusServer.Start(cfg.API.Addr); err != nil {
			return err
		}
	}

	if err := sched.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Logger.Info().Str("version", Version).Msg("Failover controller running")
	<-ctx.Done()
	log.Logger.Info().Msg("Shutting down")

	sched.Stop()

	if statusServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := statusServer.Shutdown(shutdownCtx); err != nil {
			log.Logger.Warn().Err(err).Msg("Status server shutdown failed")
		}
	}

	log.Logger.Info().Msg("Shutdown complete")
	return nil
}
