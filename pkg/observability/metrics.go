// Package observability provides Prometheus metrics, OpenTelemetry tracing,
// and stage-completion event records for the pipeline orchestrator and sync
// engine, grounded on pkg/enrichment/observability/{metrics.go,tracing.go,
// events.go}.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments named in spec.md §6a/SPEC_FULL.md
// §4.9: per-stage latency, per-job-kind outcome counters, and queue depth.
type Metrics struct {
	PipelineStageDuration *prometheus.HistogramVec
	PipelineJobsTotal     *prometheus.CounterVec
	SyncJobsTotal         *prometheus.CounterVec
	QueueDepth            *prometheus.GaugeVec
}

// DefaultMetrics registers metrics against the global Prometheus registerer.
func DefaultMetrics() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		PipelineStageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_stage_duration_seconds",
				Help:    "Duration of each pipeline orchestrator stage",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"stage", "status"},
		),
		PipelineJobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_jobs_total",
				Help: "Total pipeline jobs processed, by outcome",
			},
			[]string{"status"},
		),
		SyncJobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sync_jobs_total",
				Help: "Total calendar sync jobs processed, by outcome",
			},
			[]string{"status"},
		),
		QueueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "queue_depth",
				Help: "Current depth of a named queue",
			},
			[]string{"queue"},
		),
	}
}

// RecordStage records one pipeline-stage completion.
func (m *Metrics) RecordStage(stage, status string, seconds float64) {
	m.PipelineStageDuration.WithLabelValues(stage, status).Observe(seconds)
}

// RecordPipelineJob records the terminal outcome of one pipeline job.
func (m *Metrics) RecordPipelineJob(status string) {
	m.PipelineJobsTotal.WithLabelValues(status).Inc()
}

// RecordSyncJob records the terminal outcome of one sync job.
func (m *Metrics) RecordSyncJob(status string) {
	m.SyncJobsTotal.WithLabelValues(status).Inc()
}

// SetQueueDepth records the current depth of a named queue, meant to be
// called on a polling interval from a queue.Queue.Depth() reading.
func (m *Metrics) SetQueueDepth(queue string, depth float64) {
	m.QueueDepth.WithLabelValues(queue).Set(depth)
}
