package revision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"estimate-revision-model/internal/logger"
	"estimate-revision-model/internal/types"
)

// ErrEmptyUniverse is returned when the universe provider yields no symbols
var ErrEmptyUniverse = errors.New("symbol universe is empty")

// Output persists the artifacts of a run
type Output interface {
	WriteSurprises(records []SurpriseRecord) error
	WriteCandidates(date types.Date, candidates []CandidateScore) (string, error)
}

// Recorder observes completed and failed runs
type Recorder interface {
	ObserveRun(result *RunResult, err error) error
}

// FinderConfig holds the tunables of a full run
type FinderConfig struct {
	Weights            Weights
	Limit              int
	SurpriseWindowDays int
	Analyzer           AnalyzerConfig
}

// DefaultFinderConfig mirrors the documented defaults
func DefaultFinderConfig() FinderConfig {
	return FinderConfig{
		Weights:            DefaultWeights(),
		Limit:              100,
		SurpriseWindowDays: 90,
		Analyzer:           DefaultAnalyzerConfig(),
	}
}

// Finder runs the whole pipeline: universe, tracking, analysis and ranking
type Finder struct {
	universe UniverseProvider
	store    EstimateLog
	output   Output
	recorder Recorder
	weights  Weights

	tracker   *Tracker
	analyzer  *Analyzer
	surprises *SurpriseAnalyzer

	now func() time.Time
	log logger.Logger
}

// FinderOption configures a Finder
type FinderOption func(*Finder)

// WithClock overrides the wall clock, mainly for tests
func WithClock(now func() time.Time) FinderOption {
	return func(f *Finder) {
		f.now = now
	}
}

// WithLogger sets the logger handed to every stage
func WithLogger(log logger.Logger) FinderOption {
	return func(f *Finder) {
		f.log = log
	}
}

// WithOutput persists surprises and candidates after each run
func WithOutput(out Output) FinderOption {
	return func(f *Finder) {
		f.output = out
	}
}

// WithRecorder reports every run outcome
func WithRecorder(r Recorder) FinderOption {
	return func(f *Finder) {
		f.recorder = r
	}
}

// NewFinder wires the pipeline stages. It fails on invalid weights.
func NewFinder(universe UniverseProvider, source DataSource, store EstimateLog, cfg FinderConfig, opts ...FinderOption) (*Finder, error) {
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}

	f := &Finder{
		universe: universe,
		store:    store,
		weights:  cfg.Weights,
		now:      time.Now,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}

	f.tracker = NewTracker(source, store, cfg.Limit, f.now, f.log)
	f.analyzer = NewAnalyzer(cfg.Analyzer)
	f.surprises = NewSurpriseAnalyzer(source, cfg.SurpriseWindowDays, f.log)
	return f, nil
}

// Track resolves the universe and updates the estimate logs without ranking
func (f *Finder) Track(ctx context.Context) (*TrackSummary, error) {
	symbols, err := f.symbols(ctx)
	if err != nil {
		return nil, err
	}
	summary, err := f.tracker.Track(ctx, symbols)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// RunOnce executes one complete pass and returns the ranked candidates
func (f *Finder) RunOnce(ctx context.Context) (*RunResult, error) {
	result, err := f.run(ctx)
	if f.recorder != nil {
		if recErr := f.recorder.ObserveRun(result, err); recErr != nil {
			f.log.Warn(ctx, "Failed to record run metrics", "error", recErr)
		}
	}
	return result, err
}

func (f *Finder) run(ctx context.Context) (*RunResult, error) {
	start := f.now()
	result := &RunResult{RunID: uuid.NewString(), StartedAt: start}

	op := logger.StartOperation(ctx, f.log, "revision.RunOnce", "run_id", result.RunID)
	ctx = op.Context()

	fail := func(err error) (*RunResult, error) {
		result.Duration = f.now().Sub(start)
		op.EndWithError(err)
		return nil, err
	}

	symbols, err := f.symbols(ctx)
	if err != nil {
		return fail(err)
	}
	result.SymbolCount = len(symbols)

	result.Tracked, err = f.tracker.Track(ctx, symbols)
	if err != nil {
		return fail(fmt.Errorf("tracking failed: %w", err))
	}

	quarterly, err := f.store.Load(types.PeriodQuarterly)
	if err != nil {
		return fail(fmt.Errorf("failed to reload quarterly log: %w", err))
	}
	annual, err := f.store.Load(types.PeriodAnnual)
	if err != nil {
		return fail(fmt.Errorf("failed to reload annual log: %w", err))
	}

	today := types.NewDate(start)
	revisions := f.analyzer.Analyze(symbols, quarterly, annual, today)
	result.Revisions = len(revisions)

	surprises := f.surprises.Analyze(ctx, symbols, start)
	result.Surprises = len(surprises)
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	if f.output != nil {
		if err := f.output.WriteSurprises(surprises); err != nil {
			f.log.Warn(ctx, "Failed to write surprise cache", "error", err)
		}
	}

	result.Candidates = Rank(revisions, surprises, f.weights)
	f.log.Info(ctx, "Ranked candidates",
		"run_id", result.RunID,
		"revisions", len(revisions),
		"surprises", len(surprises),
		"candidates", len(result.Candidates))

	if f.output != nil {
		path, err := f.output.WriteCandidates(today, result.Candidates)
		if err != nil {
			return fail(fmt.Errorf("failed to write candidates: %w", err))
		}
		result.ResultPath = path
	}

	result.Duration = f.now().Sub(start)
	op.End("candidates", len(result.Candidates), "result_path", result.ResultPath)
	return result, nil
}

func (f *Finder) symbols(ctx context.Context) ([]string, error) {
	symbols, err := f.universe.Symbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve universe: %w", err)
	}
	if len(symbols) == 0 {
		return nil, ErrEmptyUniverse
	}
	return symbols, nil
}
