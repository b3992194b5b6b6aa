// Package metrics exposes quota state as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joshuadavidthomas/zerolimit/internal/quota"
)

// Metrics holds every collector on its own registry.
type Metrics struct {
	// QuotaRemaining is the remaining percentage per credential model.
	QuotaRemaining *prometheus.GaugeVec
	// FetchErrors counts quota fetches that ended with an error.
	FetchErrors *prometheus.CounterVec
	// Credentials is the number of credentials per provider.
	Credentials *prometheus.GaugeVec
	// RequestLatency tracks serve API latency.
	RequestLatency *prometheus.HistogramVec
	// HTTPRequestsTotal counts serve API requests.
	HTTPRequestsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		QuotaRemaining: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "quota_remaining_percent",
				Help:      "Remaining quota percentage by provider, credential and model",
			},
			[]string{"provider", "file", "model"},
		),
		FetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quota_fetch_errors_total",
				Help:      "Quota fetches that returned an error",
			},
			[]string{"provider"},
		),
		Credentials: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "credentials",
				Help:      "Credentials stored on the server by provider",
			},
			[]string{"provider"},
		),
		RequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_latency_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"endpoint", "method", "status"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"endpoint", "method", "status"},
		),
	}

	registry.MustRegister(
		m.QuotaRemaining,
		m.FetchErrors,
		m.Credentials,
		m.RequestLatency,
		m.HTTPRequestsTotal,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSections replaces the gauges with the state in sections. Entries
// still loading keep no quota series until their fetch completes.
func (m *Metrics) ObserveSections(sections []quota.Section) {
	m.QuotaRemaining.Reset()
	m.Credentials.Reset()
	for _, s := range sections {
		m.Credentials.WithLabelValues(s.Key).Set(float64(len(s.Files)))
		for _, f := range s.Files {
			if f.Loading || f.Error != "" {
				continue
			}
			for _, q := range f.Models {
				m.QuotaRemaining.WithLabelValues(s.Key, f.FileID, q.Name).Set(q.Percentage)
			}
		}
	}
}

// ObserveResult counts a completed fetch. It matches quota.Orchestrator.OnResult.
func (m *Metrics) ObserveResult(_ context.Context, f quota.FileQuota) {
	if f.Error != "" {
		m.FetchErrors.WithLabelValues(f.ProviderKey).Inc()
	}
}

// Follow keeps the gauges in sync with o until ctx ends.
func (m *Metrics) Follow(ctx context.Context, o *quota.Orchestrator) {
	ch, cancel := o.Subscribe()
	defer cancel()
	m.ObserveSections(o.Sections())
	for {
		select {
		case <-ctx.Done():
			return
		case sections, ok := <-ch:
			if !ok {
				return
			}
			m.ObserveSections(sections)
		}
	}
}

func (m *Metrics) RecordRequest(endpoint, method, status string, durationSeconds float64) {
	m.RequestLatency.WithLabelValues(endpoint, method, status).Observe(durationSeconds)
	m.HTTPRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}
