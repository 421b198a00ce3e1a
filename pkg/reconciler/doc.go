/*
Package reconciler keeps the status of CDN records in line with the health
of the edge nodes they point at.

One call to Run is one reconciliation pass. The scheduler fires passes; the
reconciler makes sure only one runs at a time.

# Architecture

	┌───────────────────────────────────────────────────────────┐
	│                    Reconciler.Run(ctx)                    │
	│                 TryLock or ErrPassInProgress              │
	└────────────────┬──────────────────────────────────────────┘
	                 │
	                 ▼
	  ListRecords(domain, 1..n, pageSize)   sequential, stops at
	                 │                      the first empty page
	                 ▼
	  matcher.Select(records)               CNAME + rule + not
	                 │                      self-referencing
	                 ▼
	  ┌──────────────┴───────────────┐
	  │ errgroup, SetLimit(concurrency)
	  ▼              ▼               ▼
	Check          Check           Check     one worker per record
	  │              │               │
	desired != current ?                     healthy → ENABLE
	  │                                      unhealthy → DISABLE
	  ▼
	SetStatus(recordID, desired)

# Record State Machine

	          unhealthy
	ENABLE ─────────────▶ DISABLE
	   ▲                     │
	   └─────────────────────┘
	          healthy

A record whose status already matches its node's verdict is left alone
without an API call. There are no intermediate states and nothing is
remembered between passes: every pass starts from the registrar's view.

# Failure Isolation

Nothing that goes wrong with a single unit stops the pass:

  - a failed page is logged, counted and skipped; three failures in a row
    abort the listing and the pass
  - a failed status update leaves that record unchanged until the next pass
  - probe failures are verdicts, not errors

Per-unit failures are aggregated with go-multierror and returned from Run
together with the PassSummary. A record that survives filtering but has no
rule port aborts the pass with *types.ConfigurationError.

Cancelling the context (process shutdown) stops the pass. Verdicts reached
under a cancelled context are discarded so shutdown never disables a record.

# Dry Run

With Config.DryRun the pass runs as usual but SetStatus is never called. The
changes it would have made are returned in PassSummary.Changes with Applied
set to false and published as record.planned events.

# Example

	recon := reconciler.NewReconciler(
		registry.Instrument(reg),
		matcher.New(cfg.Rules(), cfg.Domain),
		health.NewHTTPSNodeChecker(health.Config{
			CanaryHosts: cfg.TestDomains,
			Timeout:     cfg.Timeout.Duration(),
			Retries:     cfg.RetryCount,
		}),
		broker,
		reconciler.Config{Domain: cfg.Domain, PageSize: 500, Concurrency: 16},
	)

	summary, err := recon.Run(ctx)
	if errors.Is(err, reconciler.ErrPassInProgress) {
		return
	}
	fmt.Printf("%d enabled, %d disabled\n", summary.Enabled, summary.Disabled)
*/
package reconciler
