/*
Package api serves the controller's HTTP status endpoints.

The controller has no control API: configuration is a file and passes are
driven by the schedule. What it does expose is read-only state for probes,
dashboards and operators:

	GET /health    component health, 503 when any component is unhealthy
	GET /ready     200 once the scheduler runs and the registrar answers
	GET /live      200 while the process is up
	GET /status    last pass summary and next scheduled pass
	GET /metrics   Prometheus metrics

# Usage

	hs := api.NewHealthServer(recon).WithNextPass(sched.Next)
	if err := hs.Start(":9100"); err != nil {
		return err
	}
	defer hs.Shutdown(context.Background())

Start binds the address before returning so a busy port is reported to the
caller, then serves in the background. Shutdown drains in-flight requests.

# Status Document

	{
	  "timestamp": "2026-01-02T03:04:05Z",
	  "nextPass": "2026-01-02T03:05:00+08:00",
	  "lastPass": {
	    "passId": "6f1c...",
	    "listed": 120,
	    "matched": 8,
	    "healthy": 7,
	    "unhealthy": 1,
	    "disabled": 1,
	    "changes": [
	      {"recordId": "1001", "record": "cdn-hk.example.com",
	       "node": "edge-hk-1.cdnvendor.net:443",
	       "from": "ENABLE", "to": "DISABLE", "applied": true}
	    ]
	  }
	}

Before the first pass finishes lastPass is omitted and a message says so.
*/
package api
