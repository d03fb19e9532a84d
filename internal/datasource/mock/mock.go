// Package mock provides a deterministic offline data source for development and tests.
package mock

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"estimate-revision-model/internal/types"
)

// Source generates analyst estimates and earnings surprises from the symbol name
// and the current date, so consecutive daily runs see small revisions.
type Source struct {
	now     func() time.Time
	missing map[string]bool
}

// Option configures the mock source
type Option func(*Source)

// WithClock overrides the clock used to place target dates
func WithClock(now func() time.Time) Option {
	return func(s *Source) {
		s.now = now
	}
}

// WithMissing makes every fetch for the given symbols fail
func WithMissing(symbols ...string) Option {
	return func(s *Source) {
		for _, sym := range symbols {
			s.missing[strings.ToUpper(sym)] = true
		}
	}
}

// NewSource creates a mock data source
func NewSource(opts ...Option) *Source {
	s := &Source{
		now:     time.Now,
		missing: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchAnalystEstimates returns four quarterly or three annual future targets
func (s *Source) FetchAnalystEstimates(ctx context.Context, symbol string, period types.Period, limit int) ([]types.AnalystEstimate, error) {
	if s.missing[strings.ToUpper(symbol)] {
		return nil, fmt.Errorf("mock: no analyst estimates for %s", symbol)
	}

	today := types.NewDate(s.now())
	base := baseEPS(symbol)
	// day-of-year drift produces one revision per day
	drift := math.Sin(float64(today.YearDay())+float64(len(symbol))) * 0.02

	var targets []types.Date
	switch period {
	case types.PeriodAnnual:
		for i := 0; i < 3; i++ {
			targets = append(targets, types.NewDate(time.Date(today.Year()+i, time.December, 31, 0, 0, 0, 0, time.UTC)))
		}
	default:
		q := quarterEnd(today.Time)
		for i := 0; i < 4; i++ {
			targets = append(targets, types.NewDate(q))
			q = quarterEnd(q.AddDate(0, 0, 1))
		}
	}
	if limit > 0 && len(targets) > limit {
		targets = targets[:limit]
	}

	rows := make([]types.AnalystEstimate, 0, len(targets))
	for i, target := range targets {
		scale := 1.0
		if period == types.PeriodAnnual {
			scale = 4.0
		}
		avg := round(base*scale*(1+0.05*float64(i))*(1+drift), 4)
		high := round(avg*1.08, 4)
		low := round(avg*0.93, 4)
		rows = append(rows, types.AnalystEstimate{
			Symbol:         symbol,
			Date:           target,
			EpsAvg:         &avg,
			EpsHigh:        &high,
			EpsLow:         &low,
			NumberAnalysts: 8 + len(symbol)*3,
		})
	}
	return rows, nil
}

// FetchEarningsSurprises returns the last four reported quarters
func (s *Source) FetchEarningsSurprises(ctx context.Context, symbol string) ([]types.EarningsSurprise, error) {
	if s.missing[strings.ToUpper(symbol)] {
		return nil, fmt.Errorf("mock: no earnings surprises for %s", symbol)
	}

	now := s.now()
	base := baseEPS(symbol)
	surprise := (float64(symbolSeed(symbol)%21) - 8) / 100

	rows := make([]types.EarningsSurprise, 0, 4)
	for i := 0; i < 4; i++ {
		est := round(base*(1-0.03*float64(i)), 4)
		actual := round(est*(1+surprise), 4)
		rows = append(rows, types.EarningsSurprise{
			Symbol:    symbol,
			Date:      types.NewDate(now.AddDate(0, 0, -30-91*i)),
			Actual:    &actual,
			Estimated: &est,
		})
	}
	return rows, nil
}

func symbolSeed(symbol string) int {
	seed := 0
	for _, c := range strings.ToUpper(symbol) {
		seed += int(c)
	}
	return seed
}

func baseEPS(symbol string) float64 {
	return 0.5 + float64(symbolSeed(symbol)%400)/100
}

// quarterEnd returns the last day of the calendar quarter containing t
func quarterEnd(t time.Time) time.Time {
	endMonth := time.Month(((int(t.Month())-1)/3+1)*3)
	return time.Date(t.Year(), endMonth+1, 0, 0, 0, 0, 0, time.UTC)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
