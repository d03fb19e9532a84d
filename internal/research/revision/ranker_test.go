package revision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1}, Normalize([]float64{0, 5, 10}))
	assert.Equal(t, []float64{0.5, 0.5, 0.5}, Normalize([]float64{3, 3, 3}))
	assert.Equal(t, []float64{0.5}, Normalize([]float64{-7}))
	assert.Empty(t, Normalize(nil))
}

func TestWeightsValidate(t *testing.T) {
	require.NoError(t, DefaultWeights().Validate())

	w := DefaultWeights()
	w.UpsideScore = 0.1
	assert.Error(t, w.Validate())

	w = Weights{QuarterlyPercentChange: 1.2, AnnualPercentChange: -0.2}
	assert.Error(t, w.Validate())

	w = Weights{MagnitudeScore: 0.5, UpsideScore: 0.25, AnnualAgreementScore: 0.25}
	assert.NoError(t, w.Validate())
}

func TestRankInnerJoinDropsUnmatched(t *testing.T) {
	revisions := []SymbolRevision{
		{Symbol: "AAA", AvgQuarterlyPercentChange: 1},
		{Symbol: "BBB", AvgQuarterlyPercentChange: 2},
		{Symbol: "CCC", AvgQuarterlyPercentChange: 3},
	}
	surprises := []SurpriseRecord{
		{Symbol: "CCC", EarningsSurpriseChange: 1},
		{Symbol: "AAA", EarningsSurpriseChange: 2},
		{Symbol: "ZZZ", EarningsSurpriseChange: 9},
	}

	out := Rank(revisions, surprises, DefaultWeights())
	require.Len(t, out, 2)
	symbols := []string{out[0].Symbol, out[1].Symbol}
	assert.ElementsMatch(t, []string{"AAA", "CCC"}, symbols)
}

func TestRankAllMaxScoresOne(t *testing.T) {
	revisions := []SymbolRevision{
		{Symbol: "LOW"},
		{Symbol: "TOP", AvgQuarterlyPercentChange: 3, AvgAnnualPercentChange: 3, AvgQuarterlyAgreementScore: 2,
			AvgAnnualAgreementScore: 1, UpsideScore: 4, MagnitudeScore: 5},
	}
	surprises := []SurpriseRecord{{Symbol: "LOW"}, {Symbol: "TOP", EarningsSurpriseChange: 10}}
	w := Weights{
		QuarterlyPercentChange: 0.2, AnnualPercentChange: 0.1, QuarterlyAgreementScore: 0.1,
		AnnualAgreementScore: 0.1, EarningsSurpriseChange: 0.2, UpsideScore: 0.1, MagnitudeScore: 0.2,
	}

	out := Rank(revisions, surprises, w)
	require.Len(t, out, 2)
	assert.Equal(t, "TOP", out[0].Symbol)
	assert.InDelta(t, 1.0, out[0].WeightedScore, 1e-9)
	assert.InDelta(t, 0.0, out[1].WeightedScore, 1e-9)
}

func TestRankTiesKeepJoinOrder(t *testing.T) {
	revisions := []SymbolRevision{{Symbol: "B"}, {Symbol: "A"}, {Symbol: "C"}}
	surprises := []SurpriseRecord{{Symbol: "A"}, {Symbol: "B"}, {Symbol: "C"}}

	out := Rank(revisions, surprises, DefaultWeights())
	require.Len(t, out, 3)
	for _, c := range out {
		assert.Equal(t, 0.5, c.NormQuarterlyPercentChange)
		assert.InDelta(t, 0.5, c.WeightedScore, 1e-9)
	}
	assert.Equal(t, []string{"B", "A", "C"}, []string{out[0].Symbol, out[1].Symbol, out[2].Symbol})
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(nil, nil, DefaultWeights()))
	assert.Empty(t, Rank([]SymbolRevision{{Symbol: "A"}}, nil, DefaultWeights()))
}
