package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pass metrics
	PassesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "failover_passes_total",
			Help: "Total number of reconciliation passes by result",
		},
		[]string{"result"},
	)

	PassDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "failover_pass_duration_seconds",
			Help:    "Reconciliation pass duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	LastPassTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "failover_last_pass_timestamp_seconds",
			Help: "Unix time the last reconciliation pass finished",
		},
	)

	// Registry metrics
	RecordsListed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "failover_records_listed",
			Help: "Number of domain records listed in the last pass",
		},
	)

	RecordsMatched = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "failover_records_matched",
			Help: "Number of CDN records matched in the last pass",
		},
	)

	RegistryRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "failover_registry_requests_total",
			Help: "Total number of registrar API calls by operation and result",
		},
		[]string{"operation", "result"},
	)

	RegistryRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "failover_registry_request_duration_seconds",
			Help:    "Registrar API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Health check metrics
	NodeChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "failover_node_checks_total",
			Help: "Total number of node health checks by verdict",
		},
		[]string{"verdict"},
	)

	ProbeAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "failover_probe_attempts_total",
			Help: "Total number of probe attempts by result",
		},
		[]string{"result"},
	)

	NodeCheckDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "failover_node_check_duration_seconds",
			Help:    "Time taken to reach a verdict for one node in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Status metrics
	StatusChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "failover_status_changes_total",
			Help: "Total number of record status changes by target status",
		},
		[]string{"status"},
	)

	StatusUpdateErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "failover_status_update_errors_total",
			Help: "Total number of failed status updates by error kind",
		},
		[]string{"kind"},
	)

	NodeHealthy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "failover_node_healthy",
			Help: "Whether the edge node behind a CDN record passed its last check (1) or not (0)",
		},
		[]string{"record", "node"},
	)
)

func init() {
	prometheus.MustRegister(PassesTotal)
	prometheus.MustRegister(PassDuration)
	prometheus.MustRegister(LastPassTimestamp)
	prometheus.MustRegister(RecordsListed)
	prometheus.MustRegister(RecordsMatched)
	prometheus.MustRegister(RegistryRequestsTotal)
	prometheus.MustRegister(RegistryRequestDuration)
	prometheus.MustRegister(NodeChecksTotal)
	prometheus.MustRegister(ProbeAttemptsTotal)
	prometheus.MustRegister(NodeCheckDuration)
	prometheus.MustRegister(StatusChangesTotal)
	prometheus.MustRegister(StatusUpdateErrorsTotal)
	prometheus.MustRegister(NodeHealthy)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
