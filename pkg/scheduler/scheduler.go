package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/failover/pkg/log"
	"github.com/cuemby/failover/pkg/metrics"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// parser accepts standard five-field expressions, an optional leading
// seconds field, and descriptors such as @hourly or @every 5m.
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateExpression checks that expr is a schedule the scheduler can run
func ValidateExpression(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// PassFunc requests one reconciliation pass
type PassFunc func(ctx context.Context)

// Config configures the trigger schedule
type Config struct {
	Expression string
	Location   *time.Location

	// RunOnStart fires one pass as soon as the scheduler starts
	RunOnStart bool
}

// Scheduler fires reconciliation passes on a cron schedule. It does not
// prevent a pass from starting while the previous one is still running;
// serializing passes is the reconciler's job.
type Scheduler struct {
	cfg    Config
	pass   PassFunc
	cron   *cron.Cron
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	entryID cron.EntryID
	started bool
}

// NewScheduler creates a new scheduler
func NewScheduler(cfg Config, pass PassFunc) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	logger := log.WithComponent("scheduler")
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cfg:    cfg,
		pass:   pass,
		logger: logger,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(cfg.Location),
			cron.WithLogger(cronLogger{logger: logger}),
			cron.WithChain(cron.Recover(cronLogger{logger: logger})),
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start registers the schedule and begins firing passes
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}

	id, err := s.cron.AddFunc(s.cfg.Expression, s.fire)
	if err != nil {
		metrics.UpdateComponent("scheduler", false, err.Error())
		return fmt.Errorf("failed to schedule %q: %w", s.cfg.Expression, err)
	}
	s.entryID = id
	s.started = true

	s.cron.Start()
	metrics.RegisterComponent("scheduler", true, "")

	s.logger.Info().
		Str("expression", s.cfg.Expression).
		Str("timezone", s.cfg.Location.String()).
		Time("next", s.cron.Entry(id).Next).
		Msg("Scheduler started")

	if s.cfg.RunOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.pass(s.ctx)
		}()
	}

	return nil
}

// Stop stops firing new passes, cancels running ones and waits for them
func (s *Scheduler) Stop() {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()

	// Next must stay answerable while running passes drain
	s.cancel()
	if started {
		<-s.cron.Stop().Done()
	}
	s.wg.Wait()

	metrics.UpdateComponent("scheduler", false, "stopped")
	s.logger.Info().Msg("Scheduler stopped")
}

// Next returns the next time a pass will fire, zero if not started
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

func (s *Scheduler) fire() {
	s.wg.Add(1)
	defer s.wg.Done()

	if s.ctx.Err() != nil {
		return
	}
	s.pass(s.ctx)
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
