/*
Package events provides an in-memory event broker for reconciliation
activity.

The reconciler publishes what each pass does; subscribers such as the
metrics collector consume it without the reconciler knowing about them.

# Architecture

	┌──────────────┐  Publish   ┌──────────────────────────┐
	│  Reconciler  │──────────▶│  Broker                  │
	└──────────────┘            │  event channel (100)     │
	                            │  broadcast goroutine     │
	                            └────┬──────────────┬──────┘
	                                 │              │
	                         Subscriber (50)  Subscriber (50)
	                                 │              │
	                        metrics.Collector     ...

Delivery is best effort: a subscriber whose buffer is full misses the event.
Nothing is persisted and events of one pass are not replayed to later
subscribers.

# Event Types

	pass.started          a pass took the guard
	pass.completed        a pass finished, possibly with per-record failures
	pass.aborted          listing or matching failed, or the pass was cancelled
	pass.skipped          a pass was requested while another was running
	node.healthy          a node passed its check
	node.unhealthy        a node failed every attempt
	record.enabled        a record was set to ENABLE
	record.disabled       a record was set to DISABLE
	record.planned        a dry run would have changed a record
	record.update_failed  the registrar rejected or never answered SetStatus

Metadata carries the pass ID and, for record and node events, the record
ID, record name, node address and the from/to statuses.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for ev := range sub {
			fmt.Println(ev.Type, ev.Metadata[events.MetaRecord])
		}
	}()

Publishing on a nil *Broker is a no-op, so components take an optional
broker without nil checks. Publish blocks while the event channel is full
and the broker is running; start the broker before publishing to it.
*/
package events
