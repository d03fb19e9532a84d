// Package scheduler triggers pipeline runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"estimate-revision-model/internal/interfaces"
	"estimate-revision-model/internal/logger"
	"estimate-revision-model/internal/research/revision"
)

// DefaultRunTimeout bounds a single scheduled run
const DefaultRunTimeout = 3 * time.Hour

// Scheduler runs a CandidateFinder on a standard five-field cron expression.
// A run still in progress when the next tick fires causes that tick to be skipped.
type Scheduler struct {
	finder  interfaces.CandidateFinder
	spec    string
	cron    *cron.Cron
	log     logger.Logger
	timeout time.Duration

	mu       sync.Mutex
	ctx      context.Context
	entry    cron.EntryID
	onResult func(*revision.RunResult)
}

var _ interfaces.Scheduler = (*Scheduler)(nil)

// Option configures the scheduler
type Option func(*Scheduler)

// WithTimeout bounds each run
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.timeout = d
	}
}

// WithResultHandler is called after every successful run
func WithResultHandler(fn func(*revision.RunResult)) Option {
	return func(s *Scheduler) {
		s.onResult = fn
	}
}

// New validates spec and timezone and builds a stopped scheduler
func New(finder interfaces.CandidateFinder, spec, timezone string, log logger.Logger, opts ...Option) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}

	loc := time.Local
	if timezone != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
		}
		loc = l
	}
	if log == nil {
		log = logger.Nop()
	}

	cronLog := cronLogger{log: log}
	s := &Scheduler{
		finder:  finder,
		spec:    spec,
		log:     log,
		timeout: DefaultRunTimeout,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start registers the job and starts the cron loop. ctx is the parent of every run.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.entry != 0 {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}
	s.ctx = ctx

	id, err := s.cron.AddFunc(s.spec, s.run)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to schedule run: %w", err)
	}
	s.entry = id
	s.cron.Start()
	s.mu.Unlock()

	s.log.Info(ctx, "Scheduler started", "schedule", s.spec, "next_run", s.Next().Format(time.RFC3339))
	return nil
}

// Stop halts the cron loop. The returned context is done once a running job finishes.
func (s *Scheduler) Stop() context.Context {
	done := s.cron.Stop()
	s.log.Info(context.Background(), "Scheduler stopped")
	return done
}

// Next reports the next scheduled run, or the zero time when not started
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	id := s.entry
	s.mu.Unlock()
	if id == 0 {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

// RunNow executes a run synchronously outside the schedule
func (s *Scheduler) RunNow(ctx context.Context) (*revision.RunResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.finder.RunOnce(ctx)
}

func (s *Scheduler) run() {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()
	if parent == nil {
		parent = context.Background()
	}

	s.log.Info(parent, "Starting scheduled run")
	result, err := s.RunNow(parent)
	if err != nil {
		s.log.ErrorWithErr(parent, "Scheduled run failed", err)
		return
	}

	s.log.Info(parent, "Scheduled run completed",
		"run_id", result.RunID,
		"candidates", len(result.Candidates),
		"next_run", s.Next().Format(time.RFC3339))
	if s.onResult != nil {
		s.onResult(result)
	}
}

// cronLogger routes cron's own logging through the application logger
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(context.Background(), "cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.ErrorWithErr(context.Background(), "cron: "+msg, err, keysAndValues...)
}
