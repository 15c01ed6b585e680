// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics defines the Prometheus instruments exported by the service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Requests      *prometheus.CounterVec
	CacheHits     prometheus.Counter
	RecoveryTiers *prometheus.CounterVec
	ModelDuration *prometheus.HistogramVec
	InFlight      prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New registers the instruments with a fresh registry, which also carries
// the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := NewWith(reg)
	m.gatherer = reg
	return m
}

// NewWith registers the instruments with reg.
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sciqa_requests_total",
			Help: "Total number of answered queries by outcome",
		}, []string{"status"}),
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "sciqa_cache_hits_total",
			Help: "Total number of queries served from the answer cache",
		}),
		RecoveryTiers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sciqa_recovery_tier_total",
			Help: "Completions recovered, by the parser tier that produced the answer",
		}, []string{"tier"}),
		ModelDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sciqa_model_call_duration_seconds",
			Help:    "Duration of model calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"provider"}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "sciqa_requests_in_flight",
			Help: "Number of queries currently being answered",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveRequest counts one finished query.
func (m *Metrics) ObserveRequest(status string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(status).Inc()
}

// ObserveCacheHit counts one cache hit.
func (m *Metrics) ObserveCacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// ObserveTier counts one recovered completion.
func (m *Metrics) ObserveTier(tier string) {
	if m == nil {
		return
	}
	m.RecoveryTiers.WithLabelValues(tier).Inc()
}

// ObserveModelCall records the duration of one model call.
func (m *Metrics) ObserveModelCall(provider string, d time.Duration) {
	if m == nil {
		return
	}
	m.ModelDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns a func that
// decrements it.
func (m *Metrics) TrackInFlight() func() {
	if m == nil {
		return func() {}
	}
	m.InFlight.Inc()
	return m.InFlight.Dec
}
