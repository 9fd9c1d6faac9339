// Package metrics collects per-run Prometheus metrics and can export them in
// the node_exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Clip outcomes used as the "outcome" label.
const (
	OutcomeKept         = "kept"
	OutcomeDeleted      = "deleted"
	OutcomeUnreadable   = "unreadable"
	OutcomeDeleteFailed = "delete_failed"
	OutcomeDryRun       = "dry_run"
)

// Compression statuses used as the "status" label.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// RunMetrics contains the metrics of a single clipsweep run. It owns a
// private registry so repeated runs in one process never collide.
type RunMetrics struct {
	registry *prometheus.Registry

	clipsTotal              *prometheus.CounterVec
	framesSampledTotal      prometheus.Counter
	classifyDurationSeconds prometheus.Histogram
	bytesFreedTotal         prometheus.Counter
	concatFramesTotal       prometheus.Counter
	concatSkippedTotal      prometheus.Counter
	compressTotal           *prometheus.CounterVec
	runDurationSeconds      prometheus.Gauge
}

// New creates and registers the run metrics on a fresh registry.
func New() (*RunMetrics, error) {
	m := &RunMetrics{registry: prometheus.NewRegistry()}
	m.initMetrics()
	if err := m.registry.Register(m); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	return m, nil
}

func (m *RunMetrics) initMetrics() {
	m.clipsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipsweep_clips_total",
			Help: "Clips processed, by outcome",
		},
		[]string{"outcome"},
	)
	m.framesSampledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clipsweep_frames_sampled_total",
		Help: "Frame comparisons performed by the motion classifier",
	})
	m.classifyDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "clipsweep_classify_duration_seconds",
		Help:    "Time taken to classify one clip",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
	})
	m.bytesFreedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clipsweep_bytes_freed_total",
		Help: "Bytes reclaimed by deleting static clips",
	})
	m.concatFramesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clipsweep_concat_frames_total",
		Help: "Frames written to the concatenated output",
	})
	m.concatSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clipsweep_concat_skipped_total",
		Help: "Surviving clips that could not be opened during concatenation",
	})
	m.compressTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipsweep_compress_total",
			Help: "Secondary compression passes, by status",
		},
		[]string{"status"},
	)
	m.runDurationSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "clipsweep_run_duration_seconds",
		Help: "Wall time of the whole run",
	})
}

// Describe implements the Collector interface
func (m *RunMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.clipsTotal.Describe(ch)
	m.framesSampledTotal.Describe(ch)
	m.classifyDurationSeconds.Describe(ch)
	m.bytesFreedTotal.Describe(ch)
	m.concatFramesTotal.Describe(ch)
	m.concatSkippedTotal.Describe(ch)
	m.compressTotal.Describe(ch)
	m.runDurationSeconds.Describe(ch)
}

// Collect implements the Collector interface
func (m *RunMetrics) Collect(ch chan<- prometheus.Metric) {
	m.clipsTotal.Collect(ch)
	m.framesSampledTotal.Collect(ch)
	m.classifyDurationSeconds.Collect(ch)
	m.bytesFreedTotal.Collect(ch)
	m.concatFramesTotal.Collect(ch)
	m.concatSkippedTotal.Collect(ch)
	m.compressTotal.Collect(ch)
	m.runDurationSeconds.Collect(ch)
}

// RecordClassification records one classified clip.
func (m *RunMetrics) RecordClassification(framesSampled int, d time.Duration) {
	m.framesSampledTotal.Add(float64(framesSampled))
	m.classifyDurationSeconds.Observe(d.Seconds())
}

// RecordOutcome counts a clip under outcome.
func (m *RunMetrics) RecordOutcome(outcome string) {
	m.clipsTotal.WithLabelValues(outcome).Inc()
}

// RecordBytesFreed adds the size of a deleted clip.
func (m *RunMetrics) RecordBytesFreed(bytes int64) {
	m.bytesFreedTotal.Add(float64(bytes))
}

// RecordConcat records the concatenation result.
func (m *RunMetrics) RecordConcat(frames, skipped int) {
	m.concatFramesTotal.Add(float64(frames))
	m.concatSkippedTotal.Add(float64(skipped))
}

// RecordCompress counts a compression pass.
func (m *RunMetrics) RecordCompress(ok bool) {
	status := StatusSuccess
	if !ok {
		status = StatusError
	}
	m.compressTotal.WithLabelValues(status).Inc()
}

// SetRunDuration records the total run time.
func (m *RunMetrics) SetRunDuration(d time.Duration) {
	m.runDurationSeconds.Set(d.Seconds())
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (m *RunMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
