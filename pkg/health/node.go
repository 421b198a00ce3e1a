package health

import (
	"context"
	"errors"

	"github.com/cuemby/failover/pkg/log"
	"github.com/cuemby/failover/pkg/metrics"
	"github.com/cuemby/failover/pkg/types"
	"github.com/rs/zerolog"
)

// NodeChecker decides whether an edge node is healthy by probing it once
// per canary host, retrying the whole sequence up to Retries times.
type NodeChecker struct {
	prober Prober
	config Config
	logger zerolog.Logger
}

// NewNodeChecker creates a node checker. Unset timeout and retries take the
// DefaultConfig values.
func NewNodeChecker(prober Prober, cfg Config) *NodeChecker {
	return &NodeChecker{
		prober: prober,
		config: cfg.withDefaults(),
		logger: log.WithComponent("health"),
	}
}

// NewHTTPSNodeChecker creates a node checker backed by an HTTPSProber
func NewHTTPSNodeChecker(cfg Config) *NodeChecker {
	cfg = cfg.withDefaults()
	return NewNodeChecker(NewHTTPSProber(cfg.Timeout), cfg)
}

// Check probes address:port and returns the verdict. Attempts are
// sequential; the first attempt in which every canary host answers below
// 500 makes the node healthy.
func (c *NodeChecker) Check(ctx context.Context, address string, port int) types.HealthVerdict {
	timer := metrics.NewTimer()
	logger := log.WithNode(c.logger, address, port)

	verdict := types.HealthVerdict{}
	for attempt := 1; attempt <= c.config.Retries; attempt++ {
		verdict.Attempts = attempt

		host, err := c.attempt(ctx, address, port)
		if err == nil {
			metrics.ProbeAttemptsTotal.WithLabelValues("success").Inc()
			verdict.Healthy = true
			verdict.FailedHost = ""
			verdict.Err = nil
			break
		}

		metrics.ProbeAttemptsTotal.WithLabelValues("failure").Inc()
		verdict.FailedHost = host
		verdict.Err = err

		logger.Debug().
			Int("attempt", attempt).
			Int("retries", c.config.Retries).
			Str("host", host).
			Err(err).
			Msg("Probe attempt failed")

		if errors.Is(ctx.Err(), context.Canceled) {
			break
		}
	}
	verdict.Duration = timer.Duration()
	timer.ObserveDuration(metrics.NodeCheckDuration)

	if verdict.Healthy {
		metrics.NodeChecksTotal.WithLabelValues("healthy").Inc()
		logger.Info().Int("attempts", verdict.Attempts).Msg("Node is good")
	} else {
		metrics.NodeChecksTotal.WithLabelValues("unhealthy").Inc()
		logger.Warn().
			Int("attempts", verdict.Attempts).
			Str("host", verdict.FailedHost).
			Err(verdict.Err).
			Msg("Node is bad")
	}
	return verdict
}

// attempt runs one pass over the canary hosts, stopping at the first failure
func (c *NodeChecker) attempt(ctx context.Context, address string, port int) (string, error) {
	for _, host := range c.config.CanaryHosts {
		result := c.prober.Probe(ctx, address, port, host)
		if !result.Healthy {
			err := result.Err
			if err == nil {
				err = errors.New(result.Message)
			}
			return host, err
		}
	}
	return "", nil
}
