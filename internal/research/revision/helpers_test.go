package revision

import (
	"context"
	"fmt"

	"estimate-revision-model/internal/types"
)

type fakeSource struct {
	estimates map[string]map[types.Period][]types.AnalystEstimate
	surprises map[string][]types.EarningsSurprise
	calls     int
}

func (f *fakeSource) FetchAnalystEstimates(ctx context.Context, symbol string, period types.Period, limit int) ([]types.AnalystEstimate, error) {
	f.calls++
	if rows, ok := f.estimates[symbol][period]; ok {
		return rows, nil
	}
	return nil, fmt.Errorf("no %s estimates for %s", period, symbol)
}

func (f *fakeSource) FetchEarningsSurprises(ctx context.Context, symbol string) ([]types.EarningsSurprise, error) {
	if rows, ok := f.surprises[symbol]; ok {
		return rows, nil
	}
	return nil, fmt.Errorf("no surprises for %s", symbol)
}

type memLog struct {
	rows  map[types.Period][]types.EstimateSnapshot
	saves int
}

func newMemLog() *memLog {
	return &memLog{rows: make(map[types.Period][]types.EstimateSnapshot)}
}

func (m *memLog) Load(period types.Period) ([]types.EstimateSnapshot, error) {
	return append([]types.EstimateSnapshot(nil), m.rows[period]...), nil
}

func (m *memLog) Save(period types.Period, rows []types.EstimateSnapshot) error {
	m.saves++
	m.rows[period] = append([]types.EstimateSnapshot(nil), rows...)
	return nil
}

type staticUniverse []string

func (s staticUniverse) Symbols(ctx context.Context) ([]string, error) {
	return s, nil
}

func f64(v float64) *float64 { return &v }

func estimate(symbol, target string, avg float64) types.AnalystEstimate {
	return types.AnalystEstimate{
		Symbol:         symbol,
		Date:           types.MustParseDate(target),
		EpsAvg:         f64(avg),
		NumberAnalysts: 10,
	}
}

func snapshot(symbol, target, tracked string, avg float64) types.EstimateSnapshot {
	return types.EstimateSnapshot{
		Symbol:         symbol,
		TargetDate:     types.MustParseDate(target),
		TrackingDate:   types.MustParseDate(tracked),
		EpsAvg:         avg,
		EpsHigh:        avg,
		EpsLow:         avg,
		NumberAnalysts: 10,
	}
}

func surprise(symbol, date string, actual, est float64) types.EarningsSurprise {
	return types.EarningsSurprise{
		Symbol:    symbol,
		Date:      types.MustParseDate(date),
		Actual:    f64(actual),
		Estimated: f64(est),
	}
}
