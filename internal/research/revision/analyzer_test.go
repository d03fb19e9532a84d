package revision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estimate-revision-model/internal/types"
)

func TestPercentChangeAndAgreement(t *testing.T) {
	tests := []struct {
		name      string
		values    []float64
		change    float64
		agreement float64
	}{
		{"flat", []float64{10, 10, 10}, 0, 0},
		{"up then down", []float64{10, 11, 9}, -18.181818, 0},
		{"single snapshot", []float64{10}, 0, 0},
		{"empty", nil, 0, 0},
		{"steady rise", []float64{1, 2, 3, 4}, 33.333333, 3},
		{"zero previous", []float64{1, 0, 5}, 0, 0},
		{"falling", []float64{4, 3, 2}, -33.333333, -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.change, PercentChange(tt.values), 1e-5)
			assert.Equal(t, tt.agreement, Agreement(tt.values))
		})
	}
}

func TestRevisionsIgnorePastTargetsAndSortByTrackingDate(t *testing.T) {
	today := types.MustParseDate("2026-06-15")
	rows := []types.EstimateSnapshot{
		snapshot("AAA", "2026-09-30", "2026-06-08", 11),
		snapshot("AAA", "2026-03-31", "2026-01-01", 1),
		snapshot("AAA", "2026-03-31", "2026-02-01", 2),
		snapshot("AAA", "2026-09-30", "2026-06-01", 10),
		snapshot("AAA", "2026-09-30", "2026-06-14", 9),
	}

	records := Revisions(rows, today)
	require.Len(t, records, 1)
	assert.Equal(t, types.MustParseDate("2026-09-30"), records[0].TargetDate)
	assert.InDelta(t, -18.181818, records[0].EpsPercentChange, 1e-5)
	assert.Equal(t, 0.0, records[0].AgreementScore)
	assert.Equal(t, 3, records[0].Snapshots)
}

func TestAnalyzeAveragesIncludeSingleSnapshotTargets(t *testing.T) {
	today := types.MustParseDate("2026-06-15")
	quarterly := []types.EstimateSnapshot{
		snapshot("AAA", "2026-06-30", "2026-06-01", 1.0),
		snapshot("AAA", "2026-06-30", "2026-06-08", 1.1),
		snapshot("AAA", "2026-09-30", "2026-06-01", 2.0),
	}
	annual := []types.EstimateSnapshot{
		snapshot("AAA", "2026-12-31", "2026-06-01", 5.0),
		snapshot("AAA", "2026-12-31", "2026-06-08", 4.0),
	}

	out := NewAnalyzer(DefaultAnalyzerConfig()).Analyze([]string{"AAA", "ZZZ"}, quarterly, annual, today)
	require.Len(t, out, 2)

	aaa := out[0]
	assert.Equal(t, "AAA", aaa.Symbol)
	assert.InDelta(t, 5.0, aaa.AvgQuarterlyPercentChange, 1e-9)
	assert.InDelta(t, 0.5, aaa.AvgQuarterlyAgreementScore, 1e-9)
	assert.InDelta(t, -20.0, aaa.AvgAnnualPercentChange, 1e-9)
	assert.InDelta(t, -1.0, aaa.AvgAnnualAgreementScore, 1e-9)

	assert.Equal(t, SymbolRevision{Symbol: "ZZZ"}, out[1])
}

func TestUpsideUsesNearestFutureAnnualTarget(t *testing.T) {
	today := types.MustParseDate("2026-06-15")
	series := []types.EstimateSnapshot{
		snapshot("AAA", "2025-12-31", "2026-06-01", 100),
		snapshot("AAA", "2027-12-31", "2026-06-01", 50),
		snapshot("AAA", "2026-12-31", "2026-01-01", 1.0),
		snapshot("AAA", "2026-12-31", "2026-06-01", 4.0),
		snapshot("AAA", "2026-12-31", "2026-06-10", 5.0),
	}

	// window mean is 4.5 (the January row is outside 90 days), latest is 5.0
	assert.InDelta(t, 11.111111, Upside(series, today, 90), 1e-5)
	assert.Zero(t, Upside(nil, today, 90))
	assert.Zero(t, Upside(series[:1], today, 90))
}

func TestUpsideZeroWithoutRecentSnapshots(t *testing.T) {
	today := types.MustParseDate("2026-06-15")
	series := []types.EstimateSnapshot{snapshot("AAA", "2026-12-31", "2026-01-01", 3.0)}

	assert.Zero(t, Upside(series, today, 90))
}

func TestMagnitudeNeedsBothYears(t *testing.T) {
	today := types.MustParseDate("2026-06-15")
	series := []types.EstimateSnapshot{
		snapshot("AAA", "2026-12-31", "2026-04-01", 1.0),
		snapshot("AAA", "2026-12-31", "2026-05-20", 2.0),
		snapshot("AAA", "2026-12-31", "2026-06-10", 2.2),
		snapshot("AAA", "2027-12-31", "2026-06-01", 4.0),
		snapshot("AAA", "2027-12-31", "2026-06-12", 3.0),
	}

	// 2026: 2.0 -> 2.2 is +10%, 2027: 4.0 -> 3.0 is -25%
	assert.InDelta(t, -7.5, Magnitude(series, today, 30), 1e-9)
	assert.Zero(t, Magnitude(series[:3], today, 30))
}
