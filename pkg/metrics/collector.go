package metrics

import (
	"sync"

	"github.com/cuemby/failover/pkg/events"
)

// nodeSeries identifies one NodeHealthy series
type nodeSeries struct {
	record string
	node   string
}

// Collector turns reconciler events into per-record metrics. NodeHealthy
// series not reported by a completed pass are removed, so records that stop
// matching or change target drop off /metrics.
type Collector struct {
	broker *events.Broker
	sub    events.Subscriber
	stopCh chan struct{}
	wg     sync.WaitGroup

	// owned by the collect goroutine
	known map[nodeSeries]struct{}
	seen  map[nodeSeries]struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(broker *events.Broker) *Collector {
	return &Collector{
		broker: broker,
		stopCh: make(chan struct{}),
		known:  make(map[nodeSeries]struct{}),
	}
}

// Start begins consuming events
func (c *Collector) Start() {
	c.sub = c.broker.Subscribe()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case ev, ok := <-c.sub:
				if !ok {
					return
				}
				c.collect(ev)
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
	c.wg.Wait()
	c.broker.Unsubscribe(c.sub)
}

func (c *Collector) collect(ev *events.Event) {
	record := ev.Metadata[events.MetaRecord]
	node := ev.Metadata[events.MetaNode]

	switch ev.Type {
	case events.EventPassStarted:
		c.seen = make(map[nodeSeries]struct{})
	case events.EventPassCompleted:
		c.prune()
	case events.EventPassAborted:
		// a partial pass cannot tell which nodes are gone
		c.seen = nil
	case events.EventNodeHealthy:
		c.observe(record, node)
		NodeHealthy.WithLabelValues(record, node).Set(1)
	case events.EventNodeUnhealthy:
		c.observe(record, node)
		NodeHealthy.WithLabelValues(record, node).Set(0)
	case events.EventRecordEnabled, events.EventRecordDisabled:
		StatusChangesTotal.WithLabelValues(ev.Metadata[events.MetaTo]).Inc()
	}
}

func (c *Collector) observe(record, node string) {
	key := nodeSeries{record: record, node: node}
	c.known[key] = struct{}{}
	if c.seen != nil {
		c.seen[key] = struct{}{}
	}
}

// prune deletes the series the finished pass did not report. Without a
// matching pass.started nothing is pruned.
func (c *Collector) prune() {
	if c.seen == nil {
		return
	}
	for key := range c.known {
		if _, ok := c.seen[key]; !ok {
			NodeHealthy.DeleteLabelValues(key.record, key.node)
			delete(c.known, key)
		}
	}
	c.seen = nil
}
