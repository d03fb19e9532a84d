package revision

import (
	"context"
	"math"
	"time"

	"estimate-revision-model/internal/logger"
	"estimate-revision-model/internal/types"
)

// SurpriseAnalyzer derives the latest earnings surprise per symbol
type SurpriseAnalyzer struct {
	source     SurpriseSource
	windowDays int
	log        logger.Logger
}

// NewSurpriseAnalyzer creates a surprise analyzer looking back windowDays
func NewSurpriseAnalyzer(source SurpriseSource, windowDays int, log logger.Logger) *SurpriseAnalyzer {
	if log == nil {
		log = logger.Nop()
	}
	return &SurpriseAnalyzer{source: source, windowDays: windowDays, log: log}
}

// Analyze fetches surprise history for each symbol and keeps the most recent
// report inside the window. Symbols that fail to fetch, have no report in the
// window or lack values are left out.
func (s *SurpriseAnalyzer) Analyze(ctx context.Context, symbols []string, now time.Time) []SurpriseRecord {
	since := windowStart(types.NewDate(now), s.windowDays)
	out := make([]SurpriseRecord, 0, len(symbols))

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}

		history, err := s.source.FetchEarningsSurprises(ctx, symbol)
		if err != nil {
			s.log.Warn(ctx, "Skipping symbol, surprise fetch failed", "symbol", symbol, "error", err)
			continue
		}

		rec, ok := LatestSurprise(symbol, history, since)
		if !ok {
			s.log.Debug(ctx, "No usable earnings surprise in window", "symbol", symbol, "since", since.String())
			continue
		}
		out = append(out, rec)
	}

	s.log.Info(ctx, "Analyzed earnings surprises", "symbols", len(symbols), "records", len(out))
	return out
}

// LatestSurprise picks the report with the greatest date on or after since and
// converts it to a percent surprise. A zero estimate yields 0.
func LatestSurprise(symbol string, history []types.EarningsSurprise, since types.Date) (SurpriseRecord, bool) {
	var latest *types.EarningsSurprise
	for i := range history {
		h := &history[i]
		if h.Date.IsZero() || h.Date.Before(since) {
			continue
		}
		if latest == nil || h.Date.After(latest.Date) {
			latest = h
		}
	}
	if latest == nil || !usable(latest.Actual) || !usable(latest.Estimated) {
		return SurpriseRecord{}, false
	}

	return SurpriseRecord{
		Symbol:                 symbol,
		Date:                   latest.Date,
		EarningsSurpriseChange: SurprisePercent(*latest.Actual, *latest.Estimated),
	}, true
}

// SurprisePercent is (actual - estimated) / estimated * 100, or 0 for a zero estimate
func SurprisePercent(actual, estimated float64) float64 {
	if estimated == 0 {
		return 0
	}
	return (actual - estimated) / estimated * 100
}

func usable(v *float64) bool {
	return v != nil && !math.IsNaN(*v)
}
