// Package metrics exposes run outcomes as Prometheus metrics for the node-exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"estimate-revision-model/internal/research/revision"
)

const namespace = "estimate_revision"

// Recorder holds the run metrics and optionally mirrors them to a textfile after every run
type Recorder struct {
	registry *prometheus.Registry
	textfile string

	RunsTotal          *prometheus.CounterVec
	RunDuration        prometheus.Histogram
	LastSuccessfulRun  prometheus.Gauge
	UniverseSize       prometheus.Gauge
	SnapshotsAppended  *prometheus.GaugeVec
	FetchFailures      *prometheus.GaugeVec
	CandidatesRanked   prometheus.Gauge
	TopWeightedScore   prometheus.Gauge
	SurprisesAvailable prometheus.Gauge
}

var _ revision.Recorder = (*Recorder)(nil)

// NewRecorder registers the metrics on a private registry. An empty textfile disables file output.
func NewRecorder(textfile string) *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		textfile: textfile,

		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by outcome",
		}, []string{"status"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of successful pipeline runs",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200, 1800},
		}),
		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_successful_run_timestamp_seconds",
			Help:      "Unix time the last successful run started",
		}),
		UniverseSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "universe_symbols",
			Help:      "Number of symbols in the last run",
		}),
		SnapshotsAppended: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "snapshots_appended",
			Help:      "Estimate snapshots appended in the last run",
		}, []string{"period"}),
		FetchFailures: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "fetch_failures",
			Help:      "Symbols whose estimate fetch failed in the last run",
		}, []string{"period"}),
		CandidatesRanked: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "candidates_ranked",
			Help:      "Candidates in the last result file",
		}),
		TopWeightedScore: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "top_weighted_score",
			Help:      "Weighted score of the best ranked candidate",
		}),
		SurprisesAvailable: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "surprises_available",
			Help:      "Symbols with an earnings surprise inside the window",
		}),
	}
}

// Registry returns the registry holding the run metrics
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveRun updates the metrics from a finished run and rewrites the textfile
func (r *Recorder) ObserveRun(result *revision.RunResult, err error) error {
	if err != nil || result == nil {
		r.RunsTotal.WithLabelValues("failure").Inc()
		return r.flush()
	}

	r.RunsTotal.WithLabelValues("success").Inc()
	r.RunDuration.Observe(result.Duration.Seconds())
	r.LastSuccessfulRun.Set(float64(result.StartedAt.Unix()))
	r.UniverseSize.Set(float64(result.SymbolCount))
	r.CandidatesRanked.Set(float64(len(result.Candidates)))
	r.SurprisesAvailable.Set(float64(result.Surprises))

	for period, ps := range result.Tracked.Periods {
		r.SnapshotsAppended.WithLabelValues(period.String()).Set(float64(ps.Appended))
		r.FetchFailures.WithLabelValues(period.String()).Set(float64(ps.Failed))
	}

	if len(result.Candidates) > 0 {
		r.TopWeightedScore.Set(result.Candidates[0].WeightedScore)
	} else {
		r.TopWeightedScore.Set(0)
	}
	return r.flush()
}

func (r *Recorder) flush() error {
	if r.textfile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.textfile), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(r.textfile, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
