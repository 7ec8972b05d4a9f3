package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics contains all Prometheus metrics related to the note enrichment pipeline.
type PipelineMetrics struct {
	NotesProcessed   *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	InsightsCreated  *prometheus.CounterVec
	QuotaRejections  prometheus.Counter
	WhatsAppMessages *prometheus.CounterVec
	registry         *prometheus.Registry
}

// NewPipelineMetrics creates a new instance of PipelineMetrics.
// It requires a Prometheus registry to register the metrics.
// It returns an error if metric registration fails.
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize pipeline metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
	}
	return m, nil
}

// initMetrics initializes all metrics for PipelineMetrics.
func (m *PipelineMetrics) initMetrics() error {
	m.NotesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_notes_processed_total",
		Help: "Total number of notes run through the enrichment pipeline, by outcome.",
	}, []string{"outcome"})

	m.StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_stage_duration_seconds",
		Help:    "Duration of individual pipeline stages in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"stage"})

	m.InsightsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_insights_created_total",
		Help: "Total number of insights created, by insight type.",
	}, []string{"insight_type"})

	m.QuotaRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_quota_rejections_total",
		Help: "Total number of operations rejected by the daily quota.",
	})

	m.WhatsAppMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "whatsapp_messages_total",
		Help: "Total number of WhatsApp messages handled, by direction and status.",
	}, []string{"direction", "status"})

	return nil
}

// RecordNoteProcessed increments the pipeline outcome counter.
func (m *PipelineMetrics) RecordNoteProcessed(outcome string) {
	m.NotesProcessed.WithLabelValues(outcome).Inc()
}

// ObserveStageDuration records the duration of one pipeline stage in seconds.
func (m *PipelineMetrics) ObserveStageDuration(stage string, durationSeconds float64) {
	m.StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordInsightCreated increments the insight counter for one insight type.
func (m *PipelineMetrics) RecordInsightCreated(insightType string) {
	m.InsightsCreated.WithLabelValues(insightType).Inc()
}

// RecordQuotaRejection increments the quota rejection counter by one.
func (m *PipelineMetrics) RecordQuotaRejection() {
	m.QuotaRejections.Inc()
}

// RecordWhatsAppMessage increments the message counter for one direction and status.
func (m *PipelineMetrics) RecordWhatsAppMessage(direction, status string) {
	m.WhatsAppMessages.WithLabelValues(direction, status).Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.NotesProcessed.Collect(ch)
	m.StageDuration.Collect(ch)
	m.InsightsCreated.Collect(ch)
	ch <- m.QuotaRejections
	m.WhatsAppMessages.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.NotesProcessed.Describe(ch)
	m.StageDuration.Describe(ch)
	m.InsightsCreated.Describe(ch)
	ch <- m.QuotaRejections.Desc()
	m.WhatsAppMessages.Describe(ch)
}
