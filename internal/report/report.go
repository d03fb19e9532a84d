// Package report writes run artifacts and renders the console summary.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"estimate-revision-model/internal/research/revision"
	"estimate-revision-model/internal/types"
)

const rule = "═══════════════════════════════════════════════════════════════"

// Writer persists candidates and the surprise cache as CSV
type Writer struct {
	resultsDir   string
	candidates   string
	dated        bool
	surprisePath string
}

var _ revision.Output = (*Writer)(nil)

// NewWriter creates a writer. With dated set the result file name carries the run date.
func NewWriter(resultsDir, candidatesFile string, dated bool, surprisePath string) *Writer {
	return &Writer{
		resultsDir:   resultsDir,
		candidates:   candidatesFile,
		dated:        dated,
		surprisePath: surprisePath,
	}
}

// ResultPath returns where the candidates of date are written
func (w *Writer) ResultPath(date types.Date) string {
	name := w.candidates
	if w.dated {
		ext := filepath.Ext(name)
		name = strings.TrimSuffix(name, ext) + "_" + date.String() + ext
	}
	return filepath.Join(w.resultsDir, name)
}

// WriteCandidates writes the ranked rows and returns the file path
func (w *Writer) WriteCandidates(date types.Date, candidates []revision.CandidateScore) (string, error) {
	path := w.ResultPath(date)
	rows := make([]*revision.CandidateScore, len(candidates))
	for i := range candidates {
		rows[i] = &candidates[i]
	}
	if err := writeCSV(path, rows); err != nil {
		return "", fmt.Errorf("failed to write candidates: %w", err)
	}
	return path, nil
}

// WriteSurprises caches the per-symbol surprise records. It is a no-op without a path.
func (w *Writer) WriteSurprises(records []revision.SurpriseRecord) error {
	if w.surprisePath == "" {
		return nil
	}
	rows := make([]*revision.SurpriseRecord, len(records))
	for i := range records {
		rows[i] = &records[i]
	}
	if err := writeCSV(w.surprisePath, rows); err != nil {
		return fmt.Errorf("failed to write surprise cache: %w", err)
	}
	return nil
}

func writeCSV(path string, rows any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := gocsv.Marshal(rows, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// PrintSummary renders a run for the terminal, listing at most topN candidates
func PrintSummary(out io.Writer, result *revision.RunResult, topN int) {
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "                  ESTIMATE REVISION SUMMARY")
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "Run ID:             %s\n", result.RunID)
	fmt.Fprintf(out, "Started:            %s\n", result.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Duration:           %s\n", result.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "Universe:           %d symbols\n", result.SymbolCount)
	fmt.Fprintf(out, "Snapshots appended: %d (%d fetch failures)\n", result.Tracked.Appended(), result.Tracked.Failed())
	fmt.Fprintf(out, "Candidates:         %d\n", len(result.Candidates))
	if result.ResultPath != "" {
		fmt.Fprintf(out, "Results:            %s\n", result.ResultPath)
	}
	fmt.Fprintln(out)

	if len(result.Candidates) == 0 {
		fmt.Fprintln(out, "⚠️  No candidates had both revision and surprise data")
		return
	}

	if topN <= 0 || topN > len(result.Candidates) {
		topN = len(result.Candidates)
	}

	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "                      TOP %d CANDIDATES\n", topN)
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "%-5s %-8s %8s %9s %9s %10s\n", "Rank", "Symbol", "Score", "Q Rev %", "Q Agree", "Surprise %")
	fmt.Fprintln(out, "─────────────────────────────────────────────────────────────")
	for i, c := range result.Candidates[:topN] {
		fmt.Fprintf(out, "%-5d %-8s %8.4f %9.2f %9.2f %10.2f\n",
			i+1, c.Symbol, c.WeightedScore,
			c.AvgQuarterlyPercentChange, c.AvgQuarterlyAgreementScore, c.EarningsSurpriseChange)
	}
	fmt.Fprintln(out)
}

// PrintTrackSummary renders a tracking-only run
func PrintTrackSummary(out io.Writer, summary *revision.TrackSummary) {
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "                 ESTIMATES TRACKED %s\n", summary.TrackedAt)
	fmt.Fprintln(out, rule)
	for _, period := range types.Periods {
		ps := summary.Periods[period]
		fmt.Fprintf(out, "%-10s fetched %4d  failed %4d  appended %5d  rows %6d\n",
			period.String(), ps.Fetched, ps.Failed, ps.Appended, ps.Total)
	}
	fmt.Fprintln(out)
}
