// Package metrics records pipeline outcomes as Prometheus metrics. A run
// has no scrape endpoint; the registry is written once to a node-exporter
// textfile when the run ends.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/specialistvlad/layerstage/internal/model"
)

// Recorder stores all metrics of one run in its own registry.
type Recorder struct {
	registry *prometheus.Registry

	probes          *prometheus.CounterVec
	probeDuration   prometheus.Histogram
	fetches         *prometheus.CounterVec
	fetchAttempts   prometheus.Counter
	fetchDuration   prometheus.Histogram
	nativeArtifacts *prometheus.CounterVec
	runOK           prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		probes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "layerstage_probes_total",
				Help: "Import probes, grouped by 'loaded' and 'failed'",
			}, []string{"result"}),
		probeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "layerstage_probe_duration_seconds",
				Help:    "Wall time of a single import probe",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			}),
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "layerstage_asset_fetches_total",
				Help: "Data asset fetches, grouped by 'staged' and 'failed'",
			}, []string{"result"}),
		fetchAttempts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "layerstage_asset_fetch_attempts_total",
				Help: "Fetch attempts including retries",
			}),
		fetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "layerstage_asset_fetch_duration_seconds",
				Help:    "Wall time of a data asset fetch including retries",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			}),
		nativeArtifacts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "layerstage_native_artifacts_total",
				Help: "Compiled extension modules inspected, grouped by whether they match the target",
			}, []string{"matches_target"}),
		runOK: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "layerstage_run_ok",
				Help: "1 if the last run passed its policy, 0 otherwise",
			}),
	}
	r.registry.MustRegister(
		r.probes,
		r.probeDuration,
		r.fetches,
		r.fetchAttempts,
		r.fetchDuration,
		r.nativeArtifacts,
		r.runOK,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveProbe implements pipeline.Observer.
func (r *Recorder) ObserveProbe(res model.ProbeResult, elapsed time.Duration) {
	result := "loaded"
	if !res.Loaded {
		result = "failed"
	}
	r.probes.WithLabelValues(result).Inc()
	r.probeDuration.Observe(elapsed.Seconds())
}

// ObserveNatives implements pipeline.Observer.
func (r *Recorder) ObserveNatives(_ string, records []model.NativeArtifactRecord) {
	for _, rec := range records {
		r.nativeArtifacts.WithLabelValues(strconv.FormatBool(rec.MatchesTarget)).Inc()
	}
}

// ObserveFetch implements asset.Observer.
func (r *Recorder) ObserveFetch(_ string, ok bool, attempts int, elapsed time.Duration) {
	result := "staged"
	if !ok {
		result = "failed"
	}
	r.fetches.WithLabelValues(result).Inc()
	r.fetchAttempts.Add(float64(attempts))
	r.fetchDuration.Observe(elapsed.Seconds())
}

// RecordReport stores the final outcome of a run.
func (r *Recorder) RecordReport(report model.PipelineReport) {
	if report.OK {
		r.runOK.Set(1)
	} else {
		r.runOK.Set(0)
	}
}

// WriteTextfile writes every metric in the text exposition format, atomically
// replacing path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
