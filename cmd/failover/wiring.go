package main

import (
	"fmt"

	"github.com/cuemby/failover/pkg/config"
	"github.com/cuemby/failover/pkg/events"
	"github.com/cuemby/failover/pkg/health"
	"github.com/cuemby/failover/pkg/matcher"
	"github.com/cuemby/failover/pkg/reconciler"
	"github.com/cuemby/failover/pkg/registry"
	"github.com/cuemby/failover/pkg/registry/alidns"
	"github.com/cuemby/failover/pkg/storage"
)

// openRegistry builds the configured registrar client. The returned close
// function releases it.
func openRegistry(cfg *config.Config) (registry.Registry, func() error, error) {
	switch cfg.Registrar.Provider {
	case config.ProviderBolt:
		store, err := storage.NewBoltStore(cfg.Registrar.Path)
		if err != nil {
			return nil, nil, err
		}
		return registry.Instrument(store), store.Close, nil

	case config.ProviderAliDNS:
		reg, err := alidns.New(alidns.Config{
			RegionID:        cfg.Registrar.RegionID,
			AccessKeyID:     cfg.Registrar.AccessKeyID,
			AccessKeySecret: cfg.Registrar.AccessKeySecret,
			Timeout:         cfg.Timeout.Duration(),
		})
		if err != nil {
			return nil, nil, err
		}
		return registry.Instrument(reg), func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown registrar provider %q", cfg.Registrar.Provider)
	}
}

func newNodeChecker(cfg *config.Config) *health.NodeChecker {
	return health.NewHTTPSNodeChecker(health.Config{
		CanaryHosts: cfg.TestDomains,
		Timeout:     cfg.Timeout.Duration(),
		Retries:     cfg.RetryCount,
	})
}

func newReconciler(cfg *config.Config, reg registry.Registry, broker *events.Broker, dryRun bool) *reconciler.Reconciler {
	return reconciler.NewReconciler(
		reg,
		matcher.New(cfg.Rules(), cfg.Domain),
		newNodeChecker(cfg),
		broker,
		reconciler.Config{
			Domain:      cfg.Domain,
			PageSize:    cfg.PageSize,
			Concurrency: cfg.Concurrency,
			DryRun:      dryRun,
		},
	)
}
