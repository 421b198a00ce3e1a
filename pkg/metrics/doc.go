/*
Package metrics provides Prometheus metrics and component health for the
failover controller.

All metrics are registered with the default registry at package init and
served by Handler on /metrics.

# Metrics

Passes:

	failover_passes_total{result}                 success, partial, aborted, skipped
	failover_pass_duration_seconds
	failover_last_pass_timestamp_seconds
	failover_records_listed
	failover_records_matched

Registrar:

	failover_registry_requests_total{operation,result}
	failover_registry_request_duration_seconds{operation}

Probes:

	failover_node_checks_total{verdict}
	failover_probe_attempts_total{result}
	failover_node_check_duration_seconds
	failover_node_healthy{record,node}            1 or 0, from events

Status updates:

	failover_status_changes_total{status}         from events
	failover_status_update_errors_total{kind}     configuration, transport, registrar

The two event-driven metrics are maintained by Collector, which subscribes
to the events broker. The others are updated inline by the code doing the
work.

# Timing

	timer := metrics.NewTimer()
	page, err := reg.ListRecords(ctx, domain, 1, 500)
	timer.ObserveDurationVec(metrics.RegistryRequestDuration, "list_records")

# Component Health

Components report their state with RegisterComponent and UpdateComponent.
The scheduler and the registry are critical: /ready answers 503 until both
have reported healthy.

	metrics.RegisterComponent("scheduler", true, "")
	metrics.UpdateComponent("registry", false, "connection refused")

	http.Handle("/health", metrics.HealthHandler())
	http.Handle("/ready", metrics.ReadyHandler())
	http.Handle("/live", metrics.LivenessHandler())

Example /ready response while the registrar is unreachable:

	{
	  "status": "not_ready",
	  "components": {"registry": "not ready: connection refused", "scheduler": "ready"},
	  "message": "waiting for registry",
	  "version": "v1.0.0",
	  "uptime": "2m3s"
	}
*/
package metrics
