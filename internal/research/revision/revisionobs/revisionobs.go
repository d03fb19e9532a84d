package revisionobs

import (
	"context"
	"time"

	"estimate-revision-model/internal/interfaces"
	"estimate-revision-model/internal/logger"
	"estimate-revision-model/internal/research/revision"
	"estimate-revision-model/internal/trace"
)

// observableFinder wraps CandidateFinder with logging and tracing
type observableFinder struct {
	inner interfaces.CandidateFinder
}

var _ interfaces.CandidateFinder = (*observableFinder)(nil)

// Wrap wraps a CandidateFinder with observability middleware
func Wrap(finder interfaces.CandidateFinder) interfaces.CandidateFinder {
	return &observableFinder{inner: finder}
}

func (o *observableFinder) RunOnce(ctx context.Context) (*revision.RunResult, error) {
	ctx, span := trace.StartSpan(ctx, "revision.Run")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Starting estimate revision run")
	start := time.Now()

	result, err := o.inner.RunOnce(ctx)
	if err != nil {
		span.RecordError(err)
		logger.ErrorWithErrSkip(ctx, 1, "Estimate revision run failed", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	fields := []any{
		"run_id", result.RunID,
		"symbols", result.SymbolCount,
		"appended", result.Tracked.Appended(),
		"fetch_failures", result.Tracked.Failed(),
		"candidates", len(result.Candidates),
		"result_path", result.ResultPath,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if len(result.Candidates) > 0 {
		top := result.Candidates[0]
		fields = append(fields, "top_symbol", top.Symbol, "top_score", top.WeightedScore)
	}

	logger.InfoSkip(ctx, 1, "Estimate revision run completed", fields...)
	return result, nil
}

func (o *observableFinder) Track(ctx context.Context) (*revision.TrackSummary, error) {
	ctx, span := trace.StartSpan(ctx, "revision.TrackOnly")
	defer span.End()

	start := time.Now()

	summary, err := o.inner.Track(ctx)
	if err != nil {
		span.RecordError(err)
		logger.ErrorWithErrSkip(ctx, 1, "Estimate tracking failed", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Estimate tracking completed",
		"tracked_at", summary.TrackedAt.String(),
		"appended", summary.Appended(),
		"fetch_failures", summary.Failed(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return summary, nil
}
