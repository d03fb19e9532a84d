package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estimate-revision-model/internal/research/revision"
	"estimate-revision-model/internal/types"
)

func TestResultPath(t *testing.T) {
	date := types.MustParseDate("2026-06-15")

	fixed := NewWriter("results", "earnings_estimate_revision_candidates.csv", false, "")
	assert.Equal(t, filepath.Join("results", "earnings_estimate_revision_candidates.csv"), fixed.ResultPath(date))

	dated := NewWriter("results", "earnings_estimate_revision_candidates.csv", true, "")
	assert.Equal(t, filepath.Join("results", "earnings_estimate_revision_candidates_2026-06-15.csv"), dated.ResultPath(date))
}

func TestWriteCandidates(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "candidates.csv", false, filepath.Join(dir, "cache", "surprises.csv"))

	path, err := w.WriteCandidates(types.MustParseDate("2026-06-15"), []revision.CandidateScore{
		{Symbol: "AAA", AvgQuarterlyPercentChange: 5, WeightedScore: 0.92},
		{Symbol: "BBB", WeightedScore: 0.1},
	})
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "symbol,avg_quarterly_percent_change,"))
	assert.True(t, strings.HasSuffix(lines[0], ",weighted_score"))
	assert.True(t, strings.HasPrefix(lines[1], "AAA,5,"))
	assert.True(t, strings.HasSuffix(lines[1], ",0.92"))

	require.NoError(t, w.WriteSurprises([]revision.SurpriseRecord{
		{Symbol: "AAA", Date: types.MustParseDate("2026-05-01"), EarningsSurpriseChange: 10},
	}))
	b, err = os.ReadFile(filepath.Join(dir, "cache", "surprises.csv"))
	require.NoError(t, err)
	assert.Equal(t, "symbol,date,earnings_surprise_change\nAAA,2026-05-01,10\n", string(b))
}

func TestPrintSummary(t *testing.T) {
	result := &revision.RunResult{
		RunID:       "abc",
		StartedAt:   time.Date(2026, 6, 15, 1, 30, 0, 0, time.UTC),
		SymbolCount: 3,
		Candidates: []revision.CandidateScore{
			{Symbol: "AAA", WeightedScore: 0.92},
			{Symbol: "CCC", WeightedScore: 0.58},
		},
	}

	var buf bytes.Buffer
	PrintSummary(&buf, result, 1)
	out := buf.String()
	assert.Contains(t, out, "TOP 1 CANDIDATES")
	assert.Contains(t, out, "AAA")
	assert.NotContains(t, out, "CCC")

	buf.Reset()
	PrintSummary(&buf, &revision.RunResult{}, 10)
	assert.Contains(t, buf.String(), "No candidates")
}
