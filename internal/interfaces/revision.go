package interfaces

import (
	"context"

	"estimate-revision-model/internal/research/revision"
)

// CandidateFinder runs the estimate-revision pipeline
type CandidateFinder interface {
	// RunOnce tracks, analyzes and ranks the whole universe once
	RunOnce(ctx context.Context) (*revision.RunResult, error)

	// Track only refreshes the estimate logs
	Track(ctx context.Context) (*revision.TrackSummary, error)
}

// Scheduler triggers runs on a recurring schedule
type Scheduler interface {
	Start(ctx context.Context) error
	Stop() context.Context
}
