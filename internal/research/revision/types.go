package revision

import (
	"context"
	"time"

	"estimate-revision-model/internal/types"
)

// EstimateSource fetches the current analyst consensus per target period
type EstimateSource interface {
	FetchAnalystEstimates(ctx context.Context, symbol string, period types.Period, limit int) ([]types.AnalystEstimate, error)
}

// SurpriseSource fetches reported-vs-estimated earnings history
type SurpriseSource interface {
	FetchEarningsSurprises(ctx context.Context, symbol string) ([]types.EarningsSurprise, error)
}

// DataSource is the combined provider used by a full run
type DataSource interface {
	EstimateSource
	SurpriseSource
}

// UniverseProvider resolves the symbols a run covers
type UniverseProvider interface {
	Symbols(ctx context.Context) ([]string, error)
}

// EstimateLog loads and rewrites the per-period snapshot logs
type EstimateLog interface {
	Load(period types.Period) ([]types.EstimateSnapshot, error)
	Save(period types.Period, rows []types.EstimateSnapshot) error
}

// RevisionRecord summarizes one (symbol, target date) series
type RevisionRecord struct {
	Symbol           string
	TargetDate       types.Date
	EpsPercentChange float64
	AgreementScore   float64
	Snapshots        int
}

// SymbolRevision aggregates revision metrics across a symbol's future targets
type SymbolRevision struct {
	Symbol                     string  `csv:"symbol"`
	AvgQuarterlyPercentChange  float64 `csv:"avg_quarterly_percent_change"`
	AvgAnnualPercentChange     float64 `csv:"avg_annual_percent_change"`
	AvgQuarterlyAgreementScore float64 `csv:"avg_quarterly_agreement_score"`
	AvgAnnualAgreementScore    float64 `csv:"avg_annual_agreement_score"`
	UpsideScore                float64 `csv:"upside_score"`
	MagnitudeScore             float64 `csv:"magnitude_score"`
}

// SurpriseRecord is the most recent in-window earnings surprise, in percent
type SurpriseRecord struct {
	Symbol                 string     `csv:"symbol"`
	Date                   types.Date `csv:"date"`
	EarningsSurpriseChange float64    `csv:"earnings_surprise_change"`
}

// CandidateScore is one ranked output row
type CandidateScore struct {
	Symbol                     string  `csv:"symbol"`
	AvgQuarterlyPercentChange  float64 `csv:"avg_quarterly_percent_change"`
	AvgAnnualPercentChange     float64 `csv:"avg_annual_percent_change"`
	AvgQuarterlyAgreementScore float64 `csv:"avg_quarterly_agreement_score"`
	AvgAnnualAgreementScore    float64 `csv:"avg_annual_agreement_score"`
	UpsideScore                float64 `csv:"upside_score"`
	MagnitudeScore             float64 `csv:"magnitude_score"`
	EarningsSurpriseChange     float64 `csv:"earnings_surprise_change"`

	NormQuarterlyPercentChange  float64 `csv:"normalized_avg_quarterly_percent_change"`
	NormAnnualPercentChange     float64 `csv:"normalized_avg_annual_percent_change"`
	NormQuarterlyAgreementScore float64 `csv:"normalized_avg_quarterly_agreement_score"`
	NormAnnualAgreementScore    float64 `csv:"normalized_avg_annual_agreement_score"`
	NormUpsideScore             float64 `csv:"normalized_upside_score"`
	NormMagnitudeScore          float64 `csv:"normalized_magnitude_score"`
	NormEarningsSurpriseChange  float64 `csv:"normalized_earnings_surprise_change"`

	WeightedScore float64 `csv:"weighted_score"`
}

// PeriodSummary counts tracker activity for one period
type PeriodSummary struct {
	Fetched  int
	Failed   int
	Skipped  int
	Appended int
	Total    int
}

// TrackSummary reports what the tracker did across both periods
type TrackSummary struct {
	TrackedAt types.Date
	Periods   map[types.Period]PeriodSummary
}

// Appended returns the number of snapshots added across all periods
func (s TrackSummary) Appended() int {
	n := 0
	for _, p := range s.Periods {
		n += p.Appended
	}
	return n
}

// Failed returns the number of failed fetches across all periods
func (s TrackSummary) Failed() int {
	n := 0
	for _, p := range s.Periods {
		n += p.Failed
	}
	return n
}

// RunResult is returned by a complete pipeline run
type RunResult struct {
	RunID       string
	StartedAt   time.Time
	Duration    time.Duration
	SymbolCount int
	Tracked     TrackSummary
	Revisions   int
	Surprises   int
	Candidates  []CandidateScore
	ResultPath  string
}
