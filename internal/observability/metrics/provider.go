// Package metrics provides custom Prometheus metrics for various components of the Notara application.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics contains all Prometheus metrics related to external AI provider calls.
type ProviderMetrics struct {
	APICallsTotal   *prometheus.CounterVec
	APICallDuration *prometheus.HistogramVec
	TokensTotal     *prometheus.CounterVec
	CostTotal       *prometheus.CounterVec
	registry        *prometheus.Registry
}

// NewProviderMetrics creates a new instance of ProviderMetrics.
// It requires a Prometheus registry to register the metrics.
// It returns an error if metric registration fails.
func NewProviderMetrics(registry *prometheus.Registry) (*ProviderMetrics, error) {
	m := &ProviderMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize provider metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register provider metrics: %w", err)
	}
	return m, nil
}

// initMetrics initializes all metrics for ProviderMetrics.
func (m *ProviderMetrics) initMetrics() error {
	m.APICallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "provider_api_calls_total",
		Help: "Total number of external provider API calls.",
	}, []string{"provider", "endpoint", "status"})

	m.APICallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "provider_api_call_duration_seconds",
		Help:    "Duration of external provider API calls in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"provider", "endpoint"})

	m.TokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "provider_tokens_total",
		Help: "Total number of tokens consumed per provider.",
	}, []string{"provider"})

	m.CostTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "provider_cost_usd_total",
		Help: "Estimated cumulative provider cost in US dollars.",
	}, []string{"provider"})

	return nil
}

// RecordAPICall increments the call counter for one provider endpoint.
func (m *ProviderMetrics) RecordAPICall(provider, endpoint, status string) {
	m.APICallsTotal.WithLabelValues(provider, endpoint, status).Inc()
}

// ObserveAPICallDuration records the duration of a provider call in seconds.
func (m *ProviderMetrics) ObserveAPICallDuration(provider, endpoint string, durationSeconds float64) {
	m.APICallDuration.WithLabelValues(provider, endpoint).Observe(durationSeconds)
}

// RecordUsage adds tokens and cost for one provider call.
func (m *ProviderMetrics) RecordUsage(provider string, tokens int, cost float64) {
	m.TokensTotal.WithLabelValues(provider).Add(float64(tokens))
	m.CostTotal.WithLabelValues(provider).Add(cost)
}

// Collect implements the prometheus.Collector interface.
func (m *ProviderMetrics) Collect(ch chan<- prometheus.Metric) {
	m.APICallsTotal.Collect(ch)
	m.APICallDuration.Collect(ch)
	m.TokensTotal.Collect(ch)
	m.CostTotal.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *ProviderMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.APICallsTotal.Describe(ch)
	m.APICallDuration.Describe(ch)
	m.TokensTotal.Describe(ch)
	m.CostTotal.Describe(ch)
}
