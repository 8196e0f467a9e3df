// Package metrics owns the prometheus collectors for the engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the engine's collectors on a private registry, so
// tests and embedded apps never fight over the global one.
type Metrics struct {
	registry *prometheus.Registry

	PullsTotal   *prometheus.CounterVec
	PullFailures *prometheus.CounterVec
	SolvesTotal  *prometheus.CounterVec
	TicksTotal   prometheus.Counter
	TickSeconds  prometheus.Histogram
	GraphsStored prometheus.Gauge
}

// New creates and registers the engine collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PullsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kubegraph_connector_pulls_total",
			Help: "Completed connector pulls, by connector kind.",
		}, []string{"kind"}),
		PullFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kubegraph_connector_pull_failures_total",
			Help: "Failed connector pulls, by connector kind.",
		}, []string{"kind"}),
		SolvesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kubegraph_solves_total",
			Help: "Finished solves, by resulting status.",
		}, []string{"status"}),
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kubegraph_ticks_total",
			Help: "Completed vm ticks.",
		}),
		TickSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kubegraph_tick_duration_seconds",
			Help:    "Wall time of one vm tick.",
			Buckets: prometheus.DefBuckets,
		}),
		GraphsStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kubegraph_graphs_stored",
			Help: "Graphs currently held by the store.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.PullsTotal,
		m.PullFailures,
		m.SolvesTotal,
		m.TicksTotal,
		m.TickSeconds,
		m.GraphsStored,
	)
	return m
}

// Handler serves the registry in prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gather exposes the underlying registry for tests.
func (m *Metrics) Gather() prometheus.Gatherer {
	return m.registry
}
