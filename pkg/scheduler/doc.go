// Package scheduler fires reconciliation passes on a cron schedule.
//
// The scheduler wraps robfig/cron with the parser, timezone and logging the
// failover controller needs. On every fire it calls a PassFunc with a context
// that is cancelled when the scheduler stops.
//
// # Schedules
//
// Expressions use the standard five cron fields, optionally preceded by a
// seconds field, or a descriptor:
//
//	*/5 * * * *        every five minutes
//	0 */5 * * * *      every five minutes, on second 0
//	@every 1m          every minute from start
//	@hourly            at minute 0 of every hour
//
// Expressions are evaluated in a fixed named timezone (Asia/Shanghai unless
// configured otherwise), so a schedule like "0 0 3 * * *" means 03:00 in that
// zone regardless of the host's local time.
//
// # Overlap
//
// The scheduler does not skip a fire while the previous pass is still running.
// Passes that overrun their interval are serialized by the reconciler, which
// refuses to start a pass while another one holds its guard:
//
//	sched := scheduler.NewScheduler(scheduler.Config{
//		Expression: cfg.CronExpression,
//		Location:   cfg.Location(),
//		RunOnStart: true,
//	}, func(ctx context.Context) {
//		_, _ = recon.Run(ctx) // returns ErrPassInProgress on overlap
//	})
//
// # Lifecycle
//
// Start registers the schedule and, with RunOnStart, fires one pass
// immediately. Stop stops the cron runner, cancels the context handed to
// running passes and waits for them to return.
package scheduler
