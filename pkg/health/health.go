package health

import (
	"context"
	"time"
)

// Result represents the outcome of a single probe request
type Result struct {
	Healthy    bool
	StatusCode int
	Message    string
	Err        error
	CheckedAt  time.Time
	Duration   time.Duration
}

// Prober performs one request against an edge node on behalf of a canary host
type Prober interface {
	Probe(ctx context.Context, address string, port int, host string) Result
}

// Config contains the settings shared by every node check
type Config struct {
	// CanaryHosts are sent, in order, as the Host of each probe request
	CanaryHosts []string

	// Timeout bounds each probe request independently
	Timeout time.Duration

	// Retries is the number of attempts before a node is judged unhealthy
	Retries int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout: 5 * time.Second,
		Retries: 1,
	}
}

// withDefaults fills unset timeout and retry settings from DefaultConfig
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.Retries < 1 {
		c.Retries = def.Retries
	}
	return c
}
