package revision

import (
	"sort"

	"estimate-revision-model/internal/types"
)

// AnalyzerConfig sets the look-back windows of the supplementary scores
type AnalyzerConfig struct {
	UpsideWindowDays    int
	MagnitudeWindowDays int
}

// DefaultAnalyzerConfig returns a three month upside window and a one month magnitude window
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{UpsideWindowDays: 90, MagnitudeWindowDays: 30}
}

// Analyzer turns the snapshot logs into per-symbol revision metrics
type Analyzer struct {
	config AnalyzerConfig
}

// NewAnalyzer creates a revision analyzer
func NewAnalyzer(config AnalyzerConfig) *Analyzer {
	return &Analyzer{config: config}
}

// Analyze returns one SymbolRevision per symbol, in input order. Symbols with
// no history get zero metrics.
func (a *Analyzer) Analyze(symbols []string, quarterly, annual []types.EstimateSnapshot, today types.Date) []SymbolRevision {
	qBySymbol := groupBySymbol(Revisions(quarterly, today))
	aBySymbol := groupBySymbol(Revisions(annual, today))
	annualSeries := seriesBySymbol(annual)

	out := make([]SymbolRevision, 0, len(symbols))
	for _, symbol := range symbols {
		qPct, qAgree := averages(qBySymbol[symbol])
		aPct, aAgree := averages(aBySymbol[symbol])

		out = append(out, SymbolRevision{
			Symbol:                     symbol,
			AvgQuarterlyPercentChange:  qPct,
			AvgAnnualPercentChange:     aPct,
			AvgQuarterlyAgreementScore: qAgree,
			AvgAnnualAgreementScore:    aAgree,
			UpsideScore:                Upside(annualSeries[symbol], today, a.config.UpsideWindowDays),
			MagnitudeScore:             Magnitude(annualSeries[symbol], today, a.config.MagnitudeWindowDays),
		})
	}
	return out
}

// Revisions computes one RevisionRecord per (symbol, target date) whose target
// is on or after today. Output is ordered by symbol then target date.
func Revisions(rows []types.EstimateSnapshot, today types.Date) []RevisionRecord {
	groups := make(map[types.SeriesKey][]types.EstimateSnapshot)
	for _, r := range rows {
		if r.TargetDate.Before(today) {
			continue
		}
		groups[r.Key()] = append(groups[r.Key()], r)
	}

	out := make([]RevisionRecord, 0, len(groups))
	for key, series := range groups {
		values := trackedValues(series)
		out = append(out, RevisionRecord{
			Symbol:           key.Symbol,
			TargetDate:       key.TargetDate,
			EpsPercentChange: PercentChange(values),
			AgreementScore:   Agreement(values),
			Snapshots:        len(values),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].TargetDate.Before(out[j].TargetDate)
	})
	return out
}

// PercentChange compares the two most recent values. It returns 0 with fewer
// than two values or a zero previous value.
func PercentChange(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	prev, last := values[n-2], values[n-1]
	if prev == 0 {
		return 0
	}
	return (last - prev) / prev * 100
}

// Agreement sums the direction of each consecutive step: +1 up, -1 down, 0 flat.
func Agreement(values []float64) float64 {
	score := 0.0
	for i := 1; i < len(values); i++ {
		switch d := values[i] - values[i-1]; {
		case d > 0:
			score++
		case d < 0:
			score--
		}
	}
	return score
}

// Upside measures the latest consensus of the nearest future annual target
// against its mean over the trailing window, in percent.
func Upside(series []types.EstimateSnapshot, today types.Date, windowDays int) float64 {
	var target types.Date
	for _, s := range series {
		if s.TargetDate.Before(today) {
			continue
		}
		if target.IsZero() || s.TargetDate.Before(target) {
			target = s.TargetDate
		}
	}
	if target.IsZero() {
		return 0
	}

	var nearest []types.EstimateSnapshot
	for _, s := range series {
		if s.TargetDate.Equal(target) {
			nearest = append(nearest, s)
		}
	}
	sortByTrackingDate(nearest)
	latest := nearest[len(nearest)-1].EpsAvg

	since := windowStart(today, windowDays)
	sum, n := 0.0, 0
	for _, s := range nearest {
		if !s.TrackingDate.Before(since) {
			sum += s.EpsAvg
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	if mean == 0 {
		return 0
	}
	return (latest - mean) / mean * 100
}

// Magnitude averages the first-to-last change over the trailing window of the
// annual targets falling in the current and the next calendar year. Both years
// must have in-window snapshots, otherwise the score is 0.
func Magnitude(series []types.EstimateSnapshot, today types.Date, windowDays int) float64 {
	since := windowStart(today, windowDays)

	change := func(year int) (float64, bool) {
		var target types.Date
		for _, s := range series {
			if s.TargetDate.Year() != year || s.TrackingDate.Before(since) {
				continue
			}
			if target.IsZero() || s.TargetDate.Before(target) {
				target = s.TargetDate
			}
		}
		if target.IsZero() {
			return 0, false
		}

		var values []types.EstimateSnapshot
		for _, s := range series {
			if s.TargetDate.Equal(target) && !s.TrackingDate.Before(since) {
				values = append(values, s)
			}
		}
		sortByTrackingDate(values)
		first, last := values[0].EpsAvg, values[len(values)-1].EpsAvg
		if first == 0 {
			return 0, true
		}
		return (last - first) / first * 100, true
	}

	current, ok := change(today.Year())
	if !ok {
		return 0
	}
	next, ok := change(today.Year() + 1)
	if !ok {
		return 0
	}
	return (current + next) / 2
}

func averages(records []RevisionRecord) (pct, agreement float64) {
	if len(records) == 0 {
		return 0, 0
	}
	for _, r := range records {
		pct += r.EpsPercentChange
		agreement += r.AgreementScore
	}
	n := float64(len(records))
	return pct / n, agreement / n
}

func groupBySymbol(records []RevisionRecord) map[string][]RevisionRecord {
	out := make(map[string][]RevisionRecord)
	for _, r := range records {
		out[r.Symbol] = append(out[r.Symbol], r)
	}
	return out
}

func seriesBySymbol(rows []types.EstimateSnapshot) map[string][]types.EstimateSnapshot {
	out := make(map[string][]types.EstimateSnapshot)
	for _, r := range rows {
		out[r.Symbol] = append(out[r.Symbol], r)
	}
	return out
}

// trackedValues orders a series by tracking date and returns its consensus averages
func trackedValues(series []types.EstimateSnapshot) []float64 {
	sorted := append([]types.EstimateSnapshot(nil), series...)
	sortByTrackingDate(sorted)
	values := make([]float64, len(sorted))
	for i, s := range sorted {
		values[i] = s.EpsAvg
	}
	return values
}

func sortByTrackingDate(series []types.EstimateSnapshot) {
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].TrackingDate.Before(series[j].TrackingDate)
	})
}

func windowStart(today types.Date, days int) types.Date {
	return types.NewDate(today.AddDate(0, 0, -days))
}
