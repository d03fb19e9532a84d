package revision

import (
	"fmt"
	"math"
	"sort"
)

const weightTolerance = 1e-9

// Weights sets each normalized metric's share of the composite score.
// Field order matches store.Weights so the two convert directly.
type Weights struct {
	QuarterlyPercentChange  float64
	AnnualPercentChange     float64
	QuarterlyAgreementScore float64
	AnnualAgreementScore    float64
	EarningsSurpriseChange  float64
	UpsideScore             float64
	MagnitudeScore          float64
}

// DefaultWeights favours quarterly revisions, with agreement and surprise as secondary signals
func DefaultWeights() Weights {
	return Weights{
		QuarterlyPercentChange:  0.6,
		QuarterlyAgreementScore: 0.2,
		EarningsSurpriseChange:  0.2,
	}
}

// Validate requires non-negative weights summing to 1
func (w Weights) Validate() error {
	all := []float64{
		w.QuarterlyPercentChange, w.AnnualPercentChange,
		w.QuarterlyAgreementScore, w.AnnualAgreementScore,
		w.EarningsSurpriseChange, w.UpsideScore, w.MagnitudeScore,
	}
	sum := 0.0
	for _, v := range all {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("weights must be non-negative, got %v", v)
		}
		sum += v
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("weights must sum to 1.0, got %.6f", sum)
	}
	return nil
}

// Normalize min-max scales values to [0,1]. A constant column maps to 0.5.
func Normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	span := hi - lo
	for i, v := range values {
		if span == 0 {
			out[i] = 0.5
			continue
		}
		out[i] = (v - lo) / span
	}
	return out
}

// Rank joins revisions with surprises on symbol, normalizes each metric across
// the joined set and orders candidates by weighted score, highest first.
// Symbols missing from either side are dropped. Ties keep revision order.
func Rank(revisions []SymbolRevision, surprises []SurpriseRecord, w Weights) []CandidateScore {
	surpriseBy := make(map[string]float64, len(surprises))
	for _, s := range surprises {
		surpriseBy[s.Symbol] = s.EarningsSurpriseChange
	}

	joined := make([]CandidateScore, 0, len(revisions))
	for _, r := range revisions {
		surprise, ok := surpriseBy[r.Symbol]
		if !ok {
			continue
		}
		joined = append(joined, CandidateScore{
			Symbol:                     r.Symbol,
			AvgQuarterlyPercentChange:  r.AvgQuarterlyPercentChange,
			AvgAnnualPercentChange:     r.AvgAnnualPercentChange,
			AvgQuarterlyAgreementScore: r.AvgQuarterlyAgreementScore,
			AvgAnnualAgreementScore:    r.AvgAnnualAgreementScore,
			UpsideScore:                r.UpsideScore,
			MagnitudeScore:             r.MagnitudeScore,
			EarningsSurpriseChange:     surprise,
		})
	}
	if len(joined) == 0 {
		return joined
	}

	column := func(get func(CandidateScore) float64) []float64 {
		col := make([]float64, len(joined))
		for i, c := range joined {
			col[i] = get(c)
		}
		return Normalize(col)
	}

	qPct := column(func(c CandidateScore) float64 { return c.AvgQuarterlyPercentChange })
	aPct := column(func(c CandidateScore) float64 { return c.AvgAnnualPercentChange })
	qAgree := column(func(c CandidateScore) float64 { return c.AvgQuarterlyAgreementScore })
	aAgree := column(func(c CandidateScore) float64 { return c.AvgAnnualAgreementScore })
	upside := column(func(c CandidateScore) float64 { return c.UpsideScore })
	magnitude := column(func(c CandidateScore) float64 { return c.MagnitudeScore })
	surprise := column(func(c CandidateScore) float64 { return c.EarningsSurpriseChange })

	for i := range joined {
		c := &joined[i]
		c.NormQuarterlyPercentChange = qPct[i]
		c.NormAnnualPercentChange = aPct[i]
		c.NormQuarterlyAgreementScore = qAgree[i]
		c.NormAnnualAgreementScore = aAgree[i]
		c.NormUpsideScore = upside[i]
		c.NormMagnitudeScore = magnitude[i]
		c.NormEarningsSurpriseChange = surprise[i]

		c.WeightedScore = w.QuarterlyPercentChange*c.NormQuarterlyPercentChange +
			w.AnnualPercentChange*c.NormAnnualPercentChange +
			w.QuarterlyAgreementScore*c.NormQuarterlyAgreementScore +
			w.AnnualAgreementScore*c.NormAnnualAgreementScore +
			w.EarningsSurpriseChange*c.NormEarningsSurpriseChange +
			w.UpsideScore*c.NormUpsideScore +
			w.MagnitudeScore*c.NormMagnitudeScore
	}

	sort.SliceStable(joined, func(i, j int) bool {
		return joined[i].WeightedScore > joined[j].WeightedScore
	})
	return joined
}
