package mock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estimate-revision-model/internal/types"
)

func fixedClock(s string) func() time.Time {
	t, _ := time.Parse(types.DateLayout, s)
	return func() time.Time { return t }
}

func TestFetchAnalystEstimatesFutureTargets(t *testing.T) {
	src := NewSource(WithClock(fixedClock("2026-05-14")))

	quarterly, err := src.FetchAnalystEstimates(context.Background(), "AAPL", types.PeriodQuarterly, 100)
	require.NoError(t, err)
	require.Len(t, quarterly, 4)
	assert.Equal(t, types.MustParseDate("2026-06-30"), quarterly[0].Date)
	assert.Equal(t, types.MustParseDate("2026-09-30"), quarterly[1].Date)
	assert.Equal(t, types.MustParseDate("2027-03-31"), quarterly[3].Date)

	annual, err := src.FetchAnalystEstimates(context.Background(), "AAPL", types.PeriodAnnual, 2)
	require.NoError(t, err)
	require.Len(t, annual, 2)
	assert.Equal(t, types.MustParseDate("2026-12-31"), annual[0].Date)
	assert.Greater(t, *annual[0].EpsHigh, *annual[0].EpsAvg)
	assert.Less(t, *annual[0].EpsLow, *annual[0].EpsAvg)
}

func TestFetchIsDeterministic(t *testing.T) {
	src := NewSource(WithClock(fixedClock("2026-05-14")))

	a, err := src.FetchAnalystEstimates(context.Background(), "MSFT", types.PeriodQuarterly, 100)
	require.NoError(t, err)
	b, err := src.FetchAnalystEstimates(context.Background(), "MSFT", types.PeriodQuarterly, 100)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMissingSymbolFails(t *testing.T) {
	src := NewSource(WithMissing("bad"))

	_, err := src.FetchAnalystEstimates(context.Background(), "BAD", types.PeriodAnnual, 100)
	assert.Error(t, err)
	_, err = src.FetchEarningsSurprises(context.Background(), "BAD")
	assert.Error(t, err)
}

func TestFetchEarningsSurprisesMostRecentFirst(t *testing.T) {
	src := NewSource(WithClock(fixedClock("2026-05-14")))

	rows, err := src.FetchEarningsSurprises(context.Background(), "NVDA")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, types.MustParseDate("2026-04-14"), rows[0].Date)
	assert.True(t, rows[0].Date.After(rows[1].Date))
}
