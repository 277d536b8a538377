package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exposes analysis run metrics. A nil *Recorder records nothing.
// ⭐ SSOT: Prometheus 지표 정의는 여기서만
type Recorder struct {
	registry    *prometheus.Registry
	resolutions *prometheus.CounterVec
	failures    *prometheus.CounterVec
	sourceTime  *prometheus.HistogramVec
	runs        *prometheus.CounterVec
	runTime     prometheus.Histogram
	runActive   prometheus.Gauge
	resultBytes prometheus.Gauge
}

// New creates a recorder on its own registry
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sas_analyzer_resolutions_total",
				Help: "Analyzer resolutions by result source",
			},
			[]string{"analyzer", "source"},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sas_analyzer_failures_total",
				Help: "Swallowed per-analyzer failures by step",
			},
			[]string{"analyzer", "step"},
		),
		sourceTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sas_source_duration_seconds",
				Help:    "Duration of result source reads and writes",
				Buckets: prometheus.ExponentialBuckets(0.005, 4, 9),
			},
			[]string{"step"},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sas_runs_total",
				Help: "Completed analysis runs",
			},
			[]string{"status"},
		),
		runTime: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sas_run_duration_seconds",
				Help:    "Wall-clock duration of analysis runs",
				Buckets: prometheus.ExponentialBuckets(1, 2, 14),
			},
		),
		runActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sas_run_active",
				Help: "1 while an analysis run holds the busy lock",
			},
		),
		resultBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sas_aggregated_result_bytes",
				Help: "Approximate size of the aggregated result set of the last run",
			},
		),
	}
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordResolution counts which source satisfied an analyzer
func (r *Recorder) RecordResolution(analyzer, source string) {
	if r == nil {
		return
	}
	r.resolutions.WithLabelValues(analyzer, source).Inc()
}

// RecordFailure counts a swallowed failure at step (json, cache_load, compute, cache_store, dump)
func (r *Recorder) RecordFailure(analyzer, step string) {
	if r == nil {
		return
	}
	r.failures.WithLabelValues(analyzer, step).Inc()
}

// ObserveStep records the duration of one source step
func (r *Recorder) ObserveStep(step string, d time.Duration) {
	if r == nil {
		return
	}
	r.sourceTime.WithLabelValues(step).Observe(d.Seconds())
}

// RecordRun records a finished run
func (r *Recorder) RecordRun(success bool, d time.Duration) {
	if r == nil {
		return
	}
	status := "success"
	if !success {
		status = "failed"
	}
	r.runs.WithLabelValues(status).Inc()
	r.runTime.Observe(d.Seconds())
}

// SetRunActive flips the busy gauge
func (r *Recorder) SetRunActive(active bool) {
	if r == nil {
		return
	}
	if active {
		r.runActive.Set(1)
	} else {
		r.runActive.Set(0)
	}
}

// SetResultBytes records the aggregated set size
func (r *Recorder) SetResultBytes(n int) {
	if r == nil {
		return
	}
	r.resultBytes.Set(float64(n))
}
