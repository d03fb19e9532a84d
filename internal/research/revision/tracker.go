package revision

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"estimate-revision-model/internal/logger"
	"estimate-revision-model/internal/types"
)

// comparePlaces is the decimal precision at which two estimates count as equal
const comparePlaces = 6

// Tracker appends a snapshot to the estimate log whenever the consensus for a
// future target period changes.
type Tracker struct {
	source EstimateSource
	store  EstimateLog
	limit  int
	now    func() time.Time
	log    logger.Logger
}

// NewTracker creates a tracker. limit caps the targets requested per symbol.
func NewTracker(source EstimateSource, store EstimateLog, limit int, now func() time.Time, log logger.Logger) *Tracker {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Tracker{source: source, store: store, limit: limit, now: now, log: log}
}

// Track fetches the current consensus for every symbol and period and persists
// any changed values. Per-symbol fetch failures are logged and skipped.
func (t *Tracker) Track(ctx context.Context, symbols []string) (TrackSummary, error) {
	op := logger.StartOperation(ctx, t.log, "revision.Track", "symbols", len(symbols))
	ctx = op.Context()

	today := types.NewDate(t.now())
	summary := TrackSummary{TrackedAt: today, Periods: make(map[types.Period]PeriodSummary, len(types.Periods))}

	for _, period := range types.Periods {
		ps, err := t.trackPeriod(ctx, period, symbols, today)
		if err != nil {
			op.EndWithError(err, "period", period.String())
			return summary, err
		}
		summary.Periods[period] = ps
	}

	op.End("appended", summary.Appended(), "failed", summary.Failed())
	return summary, nil
}

func (t *Tracker) trackPeriod(ctx context.Context, period types.Period, symbols []string, today types.Date) (PeriodSummary, error) {
	var ps PeriodSummary

	rows, err := t.store.Load(period)
	if err != nil {
		return ps, fmt.Errorf("failed to load %s estimate log: %w", period, err)
	}

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return ps, err
		}

		fetched, err := t.source.FetchAnalystEstimates(ctx, symbol, period, t.limit)
		if err != nil {
			ps.Failed++
			t.log.Warn(ctx, "Skipping symbol, estimate fetch failed",
				"symbol", symbol, "period", period.String(), "error", err)
			continue
		}
		if len(fetched) == 0 {
			ps.Failed++
			t.log.Warn(ctx, "Skipping symbol, no estimates returned", "symbol", symbol, "period", period.String())
			continue
		}
		ps.Fetched++

		var appended, skipped int
		rows, appended, skipped = Merge(rows, symbol, fetched, today)
		ps.Appended += appended
		ps.Skipped += skipped

		t.log.Debug(ctx, "Merged estimates",
			"symbol", symbol, "period", period.String(), "fetched", len(fetched), "appended", appended)
	}

	ps.Total = len(rows)
	if ps.Appended > 0 {
		if err := t.store.Save(period, rows); err != nil {
			return ps, fmt.Errorf("failed to save %s estimate log: %w", period, err)
		}
	}

	t.log.Info(ctx, "Tracked estimates",
		"period", period.String(),
		"fetched", ps.Fetched,
		"failed", ps.Failed,
		"appended", ps.Appended,
		"total_rows", ps.Total)

	return ps, nil
}

// Merge appends a snapshot dated today for each fetched estimate whose target is
// not in the past and whose avg, high or low differs from the latest logged
// snapshot of the same (symbol, target). A series already tracked today is left
// alone. Existing rows are never modified. It returns the new log together with
// the number of appended rows and the number of fetched rows ignored as past or
// incomplete.
func Merge(rows []types.EstimateSnapshot, symbol string, fetched []types.AnalystEstimate, today types.Date) ([]types.EstimateSnapshot, int, int) {
	latest := make(map[types.SeriesKey]types.EstimateSnapshot)
	for _, r := range rows {
		if r.Symbol != symbol {
			continue
		}
		cur, ok := latest[r.Key()]
		if !ok || !r.TrackingDate.Before(cur.TrackingDate) {
			latest[r.Key()] = r
		}
	}

	appended, skipped := 0, 0
	for _, est := range fetched {
		if est.Date.IsZero() || est.Date.Before(today) || est.EpsAvg == nil {
			skipped++
			continue
		}

		snap := types.EstimateSnapshot{
			Symbol:         symbol,
			TargetDate:     est.Date,
			TrackingDate:   today,
			EpsAvg:         *est.EpsAvg,
			EpsHigh:        valueOr(est.EpsHigh, *est.EpsAvg),
			EpsLow:         valueOr(est.EpsLow, *est.EpsAvg),
			NumberAnalysts: est.NumberAnalysts,
		}

		prev, ok := latest[snap.Key()]
		if ok {
			if !prev.TrackingDate.Before(today) {
				continue
			}
			if !changed(prev, snap) {
				continue
			}
		}

		rows = append(rows, snap)
		latest[snap.Key()] = snap
		appended++
	}

	return rows, appended, skipped
}

func changed(prev, next types.EstimateSnapshot) bool {
	return !sameValue(prev.EpsAvg, next.EpsAvg) ||
		!sameValue(prev.EpsHigh, next.EpsHigh) ||
		!sameValue(prev.EpsLow, next.EpsLow)
}

func sameValue(a, b float64) bool {
	if !finite(a) || !finite(b) {
		return a == b
	}
	return decimal.NewFromFloat(a).Round(comparePlaces).Equal(decimal.NewFromFloat(b).Round(comparePlaces))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
