package framework

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/failover/pkg/storage"
	"github.com/cuemby/failover/pkg/types"
)

// Waiter provides utilities for waiting on conditions with timeouts
type Waiter struct {
	timeout  time.Duration
	interval time.Duration
}

// NewWaiter creates a new Waiter with the given timeout and polling interval
func NewWaiter(timeout, interval time.Duration) *Waiter {
	return &Waiter{
		timeout:  timeout,
		interval: interval,
	}
}

// DefaultWaiter returns a waiter with a 30s timeout and 100ms interval
func DefaultWaiter() *Waiter {
	return NewWaiter(30*time.Second, 100*time.Millisecond)
}

// WaitFor waits for a condition to become true
func (w *Waiter) WaitFor(ctx context.Context, condition func() bool, description string) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Check immediately
	if condition() {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for: %s (timeout: %v)", description, w.timeout)
		case <-ticker.C:
			if condition() {
				return nil
			}
		}
	}
}

// WaitForRecordStatus waits for a record in the local registrar to reach status
func (w *Waiter) WaitForRecordStatus(ctx context.Context, store storage.Store, recordID string, status types.RecordStatus) error {
	return w.WaitFor(ctx, func() bool {
		record, err := store.GetRecord(recordID)
		if err != nil {
			return false
		}
		return record.Status == status
	}, fmt.Sprintf("record %s to be %s", recordID, status))
}
