/*
Package log provides structured logging for the failover controller using zerolog.

The log package wraps zerolog with a process-wide logger, component-scoped
child loggers and a handful of helpers. Until Init is called the global
logger discards everything, so library packages and tests can log freely
without configuring output.

# Architecture

	┌──────────────────── LOGGING SYSTEM ───────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐           │
	│  │            Global Logger                    │           │
	│  │  - zerolog instance, no-op until Init()     │           │
	│  │  - safe for concurrent use                  │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │         Scoped Loggers                      │           │
	│  │  - WithComponent("reconciler")              │           │
	│  │  - WithPassID(l, "5f0c...")                 │           │
	│  │  - WithRecord(l, "1234", "cdn1.example.com")│           │
	│  │  - WithNode(l, "edge.vendor.net", 443)      │           │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────────┘

# Log Levels

  - debug: every probe attempt and every matcher decision
  - info: pass start/finish, discovered records, status changes
  - warn: unhealthy nodes, skipped passes, failed pages
  - error: failed status updates, aborted passes

# Usage

Initialize once from the command entry point:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: false,
	})

Components keep a scoped logger:

	logger := log.WithComponent("health")
	logger.Debug().Int("attempt", 2).Str("host", "www.example.com").Msg("probe failed")

# Log Output Examples

Console:

	2024-10-13T10:30:00+08:00 INF changing record status component=reconciler from=ENABLE record=cdn1.example.com to=DISABLE

JSON:

	{"level":"info","component":"reconciler","pass_id":"5f0c...","record":"cdn1.example.com","from":"ENABLE","to":"DISABLE","message":"changing record status"}
*/
package log
