/*
Package health decides whether CDN edge nodes are serving traffic.

A node is the target of a CDN record (its CNAME value) plus the port the
matching rule assigns to it. The node is probed the way real traffic would
reach it: over HTTPS, with each configured canary hostname in turn as the
Host header and TLS server name.

# Architecture

	┌──────────────────────────────────────────────────────────────┐
	│                        NodeChecker                           │
	│  • Check(ctx, address, port) types.HealthVerdict             │
	│  • attempts 1..Retries, sequential, early exit on success    │
	└────────┬─────────────────────────────────────────────────────┘
	         │  one Probe per canary host, in order
	         ▼
	┌──────────────────────────────────────────────────────────────┐
	│                      Prober interface                        │
	│  • Probe(ctx, address, port, host) Result                    │
	└────────┬─────────────────────────────────────────────────────┘
	         ▼
	┌──────────────────────────────────────────────────────────────┐
	│                       HTTPSProber                            │
	│  GET https://address:port/   Host: <canary>   SNI: <canary>  │
	└──────────────────────────────────────────────────────────────┘

# Success Criterion

Any status code below 500 means the node is reachable and serving. Redirects
are not followed and 4xx answers still count as healthy:

  - 200 OK → healthy
  - 301 Moved Permanently → healthy
  - 404 Not Found → healthy
  - 503 Service Unavailable → unhealthy
  - connection refused, TLS failure, timeout → unhealthy

Certificate problems (unknown issuer, name mismatch for the canary host) are
probe failures like any other transport error.

# Retry Semantics

An attempt probes every canary host in order and fails at the first host
that fails. The first successful attempt returns a healthy verdict; when all
attempts fail the verdict is unhealthy and carries the failing host and error
of the last attempt:

	checker := health.NewHTTPSNodeChecker(health.Config{
		CanaryHosts: []string{"www.example.com", "static.example.com"},
		Timeout:     5 * time.Second,
		Retries:     3,
	})

	verdict := checker.Check(ctx, "edge-hk-1.cdnvendor.net", 443)
	if !verdict.Healthy {
		fmt.Printf("%s failed after %d attempts: %v\n",
			verdict.FailedHost, verdict.Attempts, verdict.Err)
	}

Every request gets the full timeout. Attempts for one node never overlap;
different nodes are checked concurrently by the reconciler.
*/
package health
