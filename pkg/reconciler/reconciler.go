package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/failover/pkg/events"
	"github.com/cuemby/failover/pkg/log"
	"github.com/cuemby/failover/pkg/matcher"
	"github.com/cuemby/failover/pkg/metrics"
	"github.com/cuemby/failover/pkg/registry"
	"github.com/cuemby/failover/pkg/types"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrPassInProgress is returned by Run while another pass holds the guard
var ErrPassInProgress = errors.New("reconciliation pass already in progress")

// maxConsecutivePageFailures aborts listing when the registrar keeps failing
const maxConsecutivePageFailures = 3

const (
	DefaultPageSize    = 500
	DefaultConcurrency = 16
)

// Checker reaches a health verdict for one edge node
type Checker interface {
	Check(ctx context.Context, address string, port int) types.HealthVerdict
}

// Config configures a Reconciler
type Config struct {
	Domain      string
	PageSize    int
	Concurrency int

	// DryRun computes status changes without applying them
	DryRun bool
}

// Reconciler runs reconciliation passes: list the domain's records, select
// the CDN records, check their nodes and flip the status of records whose
// node health disagrees with their current status.
type Reconciler struct {
	registry registry.Registry
	matcher  *matcher.Matcher
	checker  Checker
	broker   *events.Broker
	cfg      Config
	logger   zerolog.Logger

	// running is held for the duration of a pass
	running sync.Mutex

	mu   sync.RWMutex
	last *PassSummary
}

// NewReconciler creates a new reconciler. broker may be nil.
func NewReconciler(reg registry.Registry, m *matcher.Matcher, checker Checker, broker *events.Broker, cfg Config) *Reconciler {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}

	return &Reconciler{
		registry: reg,
		matcher:  m,
		checker:  checker,
		broker:   broker,
		cfg:      cfg,
		logger:   log.WithComponent("reconciler"),
	}
}

// LastSummary returns the summary of the last finished pass, nil before
// the first one.
func (r *Reconciler) LastSummary() *PassSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.last == nil {
		return nil
	}
	summary := r.last.clone()
	return &summary
}

// Run performs one reconciliation pass. It returns ErrPassInProgress
// without doing anything when a pass is already running. Failures of single
// pages or records do not stop the pass; they are collected into the
// returned error alongside a complete summary.
func (r *Reconciler) Run(ctx context.Context) (*PassSummary, error) {
	if !r.running.TryLock() {
		metrics.PassesTotal.WithLabelValues("skipped").Inc()
		r.logger.Warn().Msg("Previous pass still running, skipping")
		r.broker.Publish(&events.Event{
			Type:    events.EventPassSkipped,
			Message: "previous pass still running",
		})
		return nil, ErrPassInProgress
	}
	defer r.running.Unlock()

	pass := newPassState(uuid.NewString(), r.cfg.DryRun)
	logger := log.WithPassID(r.logger, pass.summary.PassID)
	timer := metrics.NewTimer()

	logger.Info().
		Str("domain", r.cfg.Domain).
		Bool("dry_run", r.cfg.DryRun).
		Msg("Reconciliation pass started")
	r.broker.Publish(&events.Event{
		Type:     events.EventPassStarted,
		Message:  "reconciliation pass started",
		Metadata: map[string]string{events.MetaPassID: pass.summary.PassID},
	})

	err := r.reconcile(ctx, logger, pass)
	if err != nil {
		pass.abort(err)
	}

	summary, passErr := pass.finish()
	timer.ObserveDuration(metrics.PassDuration)
	metrics.LastPassTimestamp.Set(float64(summary.FinishedAt.Unix()))
	metrics.PassesTotal.WithLabelValues(summary.Result()).Inc()

	r.mu.Lock()
	stored := summary.clone()
	r.last = &stored
	r.mu.Unlock()

	r.logFinished(logger, &summary, passErr)
	return &summary, passErr
}

func (r *Reconciler) reconcile(ctx context.Context, logger zerolog.Logger, pass *passState) error {
	records, err := r.fetchRecords(ctx, logger, pass)
	if err != nil {
		return err
	}
	metrics.RecordsListed.Set(float64(len(records)))

	matched, err := r.matcher.Select(records)
	if err != nil {
		return err
	}
	metrics.RecordsMatched.Set(float64(len(matched)))
	pass.setCounts(len(records), len(matched))

	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)
	for i := range matched {
		rec := matched[i]
		g.Go(func() error {
			r.evaluate(ctx, logger, pass, rec)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("pass cancelled: %w", err)
	}
	return nil
}

// fetchRecords pages through the domain's records until the registrar
// returns an empty page. A failed page is recorded and skipped.
func (r *Reconciler) fetchRecords(ctx context.Context, logger zerolog.Logger, pass *passState) ([]types.DomainRecord, error) {
	var records []types.DomainRecord
	failures := 0

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("listing cancelled: %w", err)
		}

		result, err := r.registry.ListRecords(ctx, r.cfg.Domain, page, r.cfg.PageSize)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("listing cancelled: %w", ctx.Err())
			}
			failures++
			pass.pageFailed(err)
			logger.Error().
				Err(err).
				Int("page", page).
				Str("kind", types.ErrorKind(err)).
				Msg("Failed to list records page")
			if failures >= maxConsecutivePageFailures {
				return nil, fmt.Errorf("listing aborted after %d consecutive page failures: %w", failures, err)
			}
			continue
		}
		failures = 0
		pass.pageListed()

		if len(result.Records) == 0 {
			break
		}
		logger.Debug().
			Int("page", page).
			Int("records", len(result.Records)).
			Msg("Listed records page")
		records = append(records, result.Records...)
	}

	return records, nil
}

// evaluate checks one record's node and applies the status it calls for
func (r *Reconciler) evaluate(ctx context.Context, logger zerolog.Logger, pass *passState, rec types.MatchedRecord) {
	fqdn := rec.Record.FQDN(r.cfg.Domain)
	node := fmt.Sprintf("%s:%d", rec.Address(), rec.Port)
	recLogger := log.WithRecord(logger, rec.Record.RecordID, fqdn)
	meta := func(extra ...string) map[string]string {
		m := map[string]string{
			events.MetaPassID:   pass.summary.PassID,
			events.MetaRecordID: rec.Record.RecordID,
			events.MetaRecord:   fqdn,
			events.MetaNode:     node,
		}
		for i := 0; i+1 < len(extra); i += 2 {
			m[extra[i]] = extra[i+1]
		}
		return m
	}

	verdict := r.checker.Check(ctx, rec.Address(), rec.Port)
	if ctx.Err() != nil {
		// A cancelled probe says nothing about the node
		recLogger.Warn().Msg("Pass cancelled, leaving record unchanged")
		return
	}

	pass.verdict(verdict.Healthy)
	if verdict.Healthy {
		r.broker.Publish(&events.Event{Type: events.EventNodeHealthy, Message: "node healthy", Metadata: meta()})
	} else {
		r.broker.Publish(&events.Event{
			Type:     events.EventNodeUnhealthy,
			Message:  fmt.Sprintf("node failed %s after %d attempts", verdict.FailedHost, verdict.Attempts),
			Metadata: meta(events.MetaError, errString(verdict.Err)),
		})
	}

	current := rec.Record.Status
	desired := verdict.DesiredStatus()
	if current == desired {
		pass.unchanged()
		recLogger.Debug().Str("status", string(current)).Msg("Record status up to date")
		return
	}

	change := StatusChange{
		RecordID: rec.Record.RecordID,
		Record:   fqdn,
		Node:     node,
		From:     current,
		To:       desired,
	}

	if r.cfg.DryRun {
		pass.changed(change)
		recLogger.Info().
			Str("from", string(current)).
			Str("to", string(desired)).
			Msg("Dry run, status change not applied")
		r.broker.Publish(&events.Event{
			Type:     events.EventRecordPlanned,
			Message:  fmt.Sprintf("would set %s to %s", fqdn, desired),
			Metadata: meta(events.MetaFrom, string(current), events.MetaTo, string(desired)),
		})
		return
	}

	if err := r.registry.SetStatus(ctx, rec.Record.RecordID, desired); err != nil {
		kind := types.ErrorKind(err)
		metrics.StatusUpdateErrorsTotal.WithLabelValues(kind).Inc()
		pass.updateFailed(fmt.Errorf("set %s (%s) to %s: %w", fqdn, rec.Record.RecordID, desired, err))
		recLogger.Error().
			Err(err).
			Str("kind", kind).
			Str("from", string(current)).
			Str("to", string(desired)).
			Msg("Failed to update record status")
		r.broker.Publish(&events.Event{
			Type:     events.EventUpdateFailed,
			Message:  fmt.Sprintf("failed to set %s to %s", fqdn, desired),
			Metadata: meta(events.MetaFrom, string(current), events.MetaTo, string(desired), events.MetaError, err.Error()),
		})
		return
	}

	change.Applied = true
	pass.changed(change)

	eventType := events.EventRecordEnabled
	if desired == types.RecordStatusDisable {
		eventType = events.EventRecordDisabled
	}
	recLogger.Info().
		Str("from", string(current)).
		Str("to", string(desired)).
		Msg("Record status changed")
	r.broker.Publish(&events.Event{
		Type:     eventType,
		Message:  fmt.Sprintf("%s set to %s", fqdn, desired),
		Metadata: meta(events.MetaFrom, string(current), events.MetaTo, string(desired)),
	})
}

func (r *Reconciler) logFinished(logger zerolog.Logger, summary *PassSummary, err error) {
	eventType := events.EventPassCompleted
	ev := logger.Info()
	if summary.Aborted {
		eventType = events.EventPassAborted
		ev = logger.Error().Err(err)
	} else if err != nil {
		ev = logger.Warn().Err(err)
	}

	ev.Int("listed", summary.Listed).
		Int("matched", summary.Matched).
		Int("healthy", summary.Healthy).
		Int("unhealthy", summary.Unhealthy).
		Int("enabled", summary.Enabled).
		Int("disabled", summary.Disabled).
		Int("update_failures", summary.UpdateFailures).
		Int("page_failures", summary.PageFailures).
		Dur("duration", summary.Duration).
		Msg("Reconciliation pass finished")

	r.broker.Publish(&events.Event{
		Type:     eventType,
		Message:  fmt.Sprintf("pass %s", summary.Result()),
		Metadata: map[string]string{events.MetaPassID: summary.PassID, events.MetaError: errString(err)},
	})
}

// passState accumulates a pass summary across record workers
type passState struct {
	mu      sync.Mutex
	summary PassSummary
	errs    *multierror.Error
}

func newPassState(passID string, dryRun bool) *passState {
	return &passState{
		summary: PassSummary{
			PassID:    passID,
			StartedAt: time.Now(),
			DryRun:    dryRun,
		},
	}
}

func (p *passState) setCounts(listed, matched int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summary.Listed = listed
	p.summary.Matched = matched
}

func (p *passState) pageListed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summary.Pages++
}

func (p *passState) pageFailed(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summary.Pages++
	p.summary.PageFailures++
	p.errs = multierror.Append(p.errs, err)
}

func (p *passState) verdict(healthy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if healthy {
		p.summary.Healthy++
	} else {
		p.summary.Unhealthy++
	}
}

func (p *passState) unchanged() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summary.Unchanged++
}

func (p *passState) changed(change StatusChange) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summary.Changes = append(p.summary.Changes, change)
	if !change.Applied {
		return
	}
	if change.To == types.RecordStatusEnable {
		p.summary.Enabled++
	} else {
		p.summary.Disabled++
	}
}

func (p *passState) updateFailed(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summary.UpdateFailures++
	p.errs = multierror.Append(p.errs, err)
}

func (p *passState) abort(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summary.Aborted = true
	p.errs = multierror.Append(p.errs, err)
}

func (p *passState) finish() (PassSummary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.summary.FinishedAt = time.Now()
	p.summary.Duration = p.summary.FinishedAt.Sub(p.summary.StartedAt)

	err := p.errs.ErrorOrNil()
	if err != nil {
		for _, e := range p.errs.Errors {
			p.summary.Errors = append(p.summary.Errors, e.Error())
		}
	}
	return p.summary.clone(), err
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
