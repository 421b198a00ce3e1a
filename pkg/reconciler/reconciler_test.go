package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cuemby/failover/pkg/events"
	"github.com/cuemby/failover/pkg/matcher"
	"github.com/cuemby/failover/pkg/registry"
	"github.com/cuemby/failover/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDomain = "example.com"

// fakeRegistry serves fixed pages and records every call
type fakeRegistry struct {
	mu       sync.Mutex
	pages    [][]types.DomainRecord
	listErrs map[int]error
	setErrs  map[string]error

	listCalls []int
	setCalls  []string
}

func (f *fakeRegistry) ListRecords(ctx context.Context, domain string, pageNumber, pageSize int) (*registry.RecordPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls = append(f.listCalls, pageNumber)
	if err := f.listErrs[pageNumber]; err != nil {
		return nil, err
	}

	page := &registry.RecordPage{PageNumber: pageNumber, PageSize: pageSize}
	if pageNumber <= len(f.pages) {
		page.Records = f.pages[pageNumber-1]
	}
	return page, nil
}

func (f *fakeRegistry) SetStatus(ctx context.Context, recordID string, status types.RecordStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.setCalls = append(f.setCalls, recordID+"="+string(status))
	return f.setErrs[recordID]
}

func (f *fakeRegistry) sets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.setCalls...)
}

// fakeChecker reports nodes listed in unhealthy as down
type fakeChecker struct {
	unhealthy map[string]bool
	block     chan struct{}
	entered   chan struct{}
	once      sync.Once
}

func (c *fakeChecker) Check(ctx context.Context, address string, port int) types.HealthVerdict {
	if c.entered != nil {
		c.once.Do(func() { close(c.entered) })
	}
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
			return types.HealthVerdict{Attempts: 1, Err: ctx.Err()}
		}
	}
	if c.unhealthy[address] {
		return types.HealthVerdict{Attempts: 1, FailedHost: "www.example.com", Err: errors.New("HTTP 503")}
	}
	return types.HealthVerdict{Healthy: true, Attempts: 1}
}

func cdnRecord(id, rr, value string, status types.RecordStatus) types.DomainRecord {
	return types.DomainRecord{
		RecordID:   id,
		DomainName: testDomain,
		RR:         rr,
		Type:       types.RecordTypeCNAME,
		Value:      value,
		Status:     status,
	}
}

func newTestReconciler(t *testing.T, reg registry.Registry, checker Checker, broker *events.Broker, dryRun bool) *Reconciler {
	t.Helper()
	rule, err := types.NewCdnRule("^cdn", 443)
	require.NoError(t, err)

	return NewReconciler(reg, matcher.New([]types.CdnRule{rule}, testDomain), checker, broker, Config{
		Domain:      testDomain,
		PageSize:    500,
		Concurrency: 4,
		DryRun:      dryRun,
	})
}

func TestRun_UnhealthyEnabledRecordIsDisabled(t *testing.T) {
	reg := &fakeRegistry{pages: [][]types.DomainRecord{{
		cdnRecord("1", "cdn1", "edge-1.cdnvendor.net", types.RecordStatusEnable),
	}}}
	checker := &fakeChecker{unhealthy: map[string]bool{"edge-1.cdnvendor.net": true}}

	summary, err := newTestReconciler(t, reg, checker, nil, false).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"1=DISABLE"}, reg.sets())
	assert.Equal(t, 1, summary.Disabled)
	assert.Equal(t, 1, summary.Unhealthy)
	assert.Equal(t, "success", summary.Result())
}

func TestRun_HealthyDisabledRecordIsEnabled(t *testing.T) {
	reg := &fakeRegistry{pages: [][]types.DomainRecord{{
		cdnRecord("1", "cdn1", "edge-1.cdnvendor.net", types.RecordStatusDisable),
	}}}

	summary, err := newTestReconciler(t, reg, &fakeChecker{}, nil, false).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"1=ENABLE"}, reg.sets())
	assert.Equal(t, 1, summary.Enabled)
	require.Len(t, summary.Changes, 1)
	assert.True(t, summary.Changes[0].Applied)
	assert.Equal(t, "cdn1.example.com", summary.Changes[0].Record)
	assert.Equal(t, "edge-1.cdnvendor.net:443", summary.Changes[0].Node)
}

func TestRun_MatchingStatusMakesNoCalls(t *testing.T) {
	reg := &fakeRegistry{pages: [][]types.DomainRecord{{
		cdnRecord("1", "cdn1", "edge-1.cdnvendor.net", types.RecordStatusEnable),
		cdnRecord("2", "cdn2", "edge-2.cdnvendor.net", types.RecordStatusDisable),
	}}}
	checker := &fakeChecker{unhealthy: map[string]bool{"edge-2.cdnvendor.net": true}}

	summary, err := newTestReconciler(t, reg, checker, nil, false).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, reg.sets())
	assert.Equal(t, 2, summary.Unchanged)
	assert.Empty(t, summary.Changes)
}

func TestRun_PaginatesUntilEmptyPage(t *testing.T) {
	page := func(offset int) []types.DomainRecord {
		records := make([]types.DomainRecord, 500)
		for i := range records {
			records[i] = types.DomainRecord{
				RecordID: fmt.Sprintf("%d", offset+i),
				RR:       fmt.Sprintf("www%d", offset+i),
				Type:     types.RecordTypeA,
				Value:    "192.0.2.1",
				Status:   types.RecordStatusEnable,
			}
		}
		return records
	}
	reg := &fakeRegistry{pages: [][]types.DomainRecord{page(0), page(500)}}

	summary, err := newTestReconciler(t, reg, &fakeChecker{}, nil, false).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, reg.listCalls)
	assert.Equal(t, 1000, summary.Listed)
	assert.Equal(t, 3, summary.Pages)
	assert.Equal(t, 0, summary.Matched)
}

func TestRun_UpdateFailureIsIsolated(t *testing.T) {
	reg := &fakeRegistry{
		pages: [][]types.DomainRecord{{
			cdnRecord("1", "cdn1", "edge-1.cdnvendor.net", types.RecordStatusEnable),
			cdnRecord("2", "cdn2", "edge-2.cdnvendor.net", types.RecordStatusEnable),
		}},
		setErrs: map[string]error{
			"1": &types.RegistrarAPIError{Op: "SetDomainRecordStatus 1", Code: "Throttling", HTTPStatus: 400},
		},
	}
	checker := &fakeChecker{unhealthy: map[string]bool{
		"edge-1.cdnvendor.net": true,
		"edge-2.cdnvendor.net": true,
	}}

	summary, err := newTestReconciler(t, reg, checker, nil, false).Run(context.Background())
	require.Error(t, err)

	var apiErr *types.RegistrarAPIError
	assert.ErrorAs(t, err, &apiErr)
	assert.ElementsMatch(t, []string{"1=DISABLE", "2=DISABLE"}, reg.sets())
	assert.Equal(t, 1, summary.Disabled)
	assert.Equal(t, 1, summary.UpdateFailures)
	assert.Equal(t, "partial", summary.Result())
	assert.Len(t, summary.Errors, 1)
}

func TestRun_FailedPageIsSkipped(t *testing.T) {
	reg := &fakeRegistry{
		pages: [][]types.DomainRecord{
			{cdnRecord("1", "cdn1", "edge-1.cdnvendor.net", types.RecordStatusDisable)},
			{cdnRecord("2", "cdn2", "edge-2.cdnvendor.net", types.RecordStatusDisable)},
		},
		listErrs: map[int]error{
			1: &types.TransportError{Op: "DescribeDomainRecords page 1", Err: errors.New("connection reset")},
		},
	}

	summary, err := newTestReconciler(t, reg, &fakeChecker{}, nil, false).Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, []int{1, 2, 3}, reg.listCalls)
	assert.Equal(t, []string{"2=ENABLE"}, reg.sets())
	assert.Equal(t, 1, summary.PageFailures)
	assert.False(t, summary.Aborted)
}

func TestRun_ConsecutivePageFailuresAbort(t *testing.T) {
	listErr := &types.TransportError{Op: "list", Err: errors.New("no route to host")}
	reg := &fakeRegistry{
		pages:    [][]types.DomainRecord{{cdnRecord("1", "cdn1", "edge-1.cdnvendor.net", types.RecordStatusDisable)}},
		listErrs: map[int]error{1: listErr, 2: listErr, 3: listErr},
	}

	summary, err := newTestReconciler(t, reg, &fakeChecker{}, nil, false).Run(context.Background())
	require.Error(t, err)

	assert.True(t, summary.Aborted)
	assert.Equal(t, "aborted", summary.Result())
	assert.Equal(t, []int{1, 2, 3}, reg.listCalls)
	assert.Empty(t, reg.sets())
}

func TestRun_SkipsWhilePassInProgress(t *testing.T) {
	reg := &fakeRegistry{pages: [][]types.DomainRecord{{
		cdnRecord("1", "cdn1", "edge-1.cdnvendor.net", types.RecordStatusEnable),
	}}}
	checker := &fakeChecker{block: make(chan struct{}), entered: make(chan struct{})}
	recon := newTestReconciler(t, reg, checker, nil, false)

	done := make(chan error, 1)
	go func() {
		_, err := recon.Run(context.Background())
		done <- err
	}()

	select {
	case <-checker.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first pass never reached the checker")
	}

	summary, err := recon.Run(context.Background())
	assert.ErrorIs(t, err, ErrPassInProgress)
	assert.Nil(t, summary)

	close(checker.block)
	require.NoError(t, <-done)

	// The guard is released once the first pass returns
	_, err = recon.Run(context.Background())
	assert.NoError(t, err)
}

func TestRun_DryRunPlansWithoutUpdating(t *testing.T) {
	reg := &fakeRegistry{pages: [][]types.DomainRecord{{
		cdnRecord("1", "cdn1", "edge-1.cdnvendor.net", types.RecordStatusEnable),
	}}}
	checker := &fakeChecker{unhealthy: map[string]bool{"edge-1.cdnvendor.net": true}}

	summary, err := newTestReconciler(t, reg, checker, nil, true).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, reg.sets())
	assert.True(t, summary.DryRun)
	assert.Equal(t, 0, summary.Disabled)
	require.Len(t, summary.Changes, 1)
	assert.False(t, summary.Changes[0].Applied)
	assert.Equal(t, types.RecordStatusDisable, summary.Changes[0].To)
}

func TestRun_CancelledPassLeavesRecordsUnchanged(t *testing.T) {
	reg := &fakeRegistry{pages: [][]types.DomainRecord{{
		cdnRecord("1", "cdn1", "edge-1.cdnvendor.net", types.RecordStatusEnable),
	}}}
	checker := &fakeChecker{block: make(chan struct{}), entered: make(chan struct{})}
	recon := newTestReconciler(t, reg, checker, nil, false)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-checker.entered
		cancel()
	}()

	summary, err := recon.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, summary.Aborted)
	assert.Empty(t, reg.sets())
}

func TestRun_SelfReferencingRecordIsNotChecked(t *testing.T) {
	reg := &fakeRegistry{pages: [][]types.DomainRecord{{
		cdnRecord("1", "cdn-main", "cdn-backup.example.com", types.RecordStatusEnable),
		cdnRecord("2", "cdn-backup", "edge-1.cdnvendor.net", types.RecordStatusEnable),
	}}}
	checker := &fakeChecker{unhealthy: map[string]bool{
		"cdn-backup.example.com": true,
		"edge-1.cdnvendor.net":   true,
	}}

	summary, err := newTestReconciler(t, reg, checker, nil, false).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, []string{"2=DISABLE"}, reg.sets())
}

func TestRun_PublishesEvents(t *testing.T) {
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	reg := &fakeRegistry{pages: [][]types.DomainRecord{{
		cdnRecord("1", "cdn1", "edge-1.cdnvendor.net", types.RecordStatusEnable),
	}}}
	checker := &fakeChecker{unhealthy: map[string]bool{"edge-1.cdnvendor.net": true}}

	summary, err := newTestReconciler(t, reg, checker, broker, false).Run(context.Background())
	require.NoError(t, err)

	want := []events.EventType{
		events.EventPassStarted,
		events.EventNodeUnhealthy,
		events.EventRecordDisabled,
		events.EventPassCompleted,
	}
	var got []events.EventType
	timeout := time.After(5 * time.Second)
	for len(got) < len(want) {
		select {
		case ev := <-sub:
			got = append(got, ev.Type)
			assert.Equal(t, summary.PassID, ev.Metadata[events.MetaPassID])
			if ev.Type == events.EventRecordDisabled {
				assert.Equal(t, "cdn1.example.com", ev.Metadata[events.MetaRecord])
				assert.Equal(t, "DISABLE", ev.Metadata[events.MetaTo])
			}
		case <-timeout:
			t.Fatalf("received %v, want %v", got, want)
		}
	}
	assert.Equal(t, want, got)
}

func TestLastSummary(t *testing.T) {
	reg := &fakeRegistry{pages: [][]types.DomainRecord{{
		cdnRecord("1", "cdn1", "edge-1.cdnvendor.net", types.RecordStatusDisable),
	}}}
	recon := newTestReconciler(t, reg, &fakeChecker{}, nil, false)
	assert.Nil(t, recon.LastSummary())

	summary, err := recon.Run(context.Background())
	require.NoError(t, err)

	last := recon.LastSummary()
	require.NotNil(t, last)
	assert.Equal(t, summary.PassID, last.PassID)
	assert.Equal(t, 1, last.Enabled)

	last.Changes[0].Record = "mutated"
	assert.Equal(t, "cdn1.example.com", recon.LastSummary().Changes[0].Record)
}
