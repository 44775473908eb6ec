// Package metrics exposes Prometheus counters for the mutate-render pipeline
// and the HTTP surface. Metrics are registered via promauto and served on
// /metrics by the HTTP server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ModelUpdates counts committed mutations by outcome.
var ModelUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "budgetboard",
	Subsystem: "state",
	Name:      "updates_total",
	Help:      "Total model update attempts by outcome.",
}, []string{"outcome"})

// ModelRevision tracks the current model revision.
var ModelRevision = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "budgetboard",
	Subsystem: "state",
	Name:      "revision",
	Help:      "Current model revision.",
})

// TabRenders counts tab renders by tab and cache outcome.
var TabRenders = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "budgetboard",
	Subsystem: "view",
	Name:      "tab_renders_total",
	Help:      "Total tab renders by tab name.",
}, []string{"tab"})

// ChartRenders counts chart renders by slot.
var ChartRenders = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "budgetboard",
	Subsystem: "charts",
	Name:      "renders_total",
	Help:      "Total chart renders by slot.",
}, []string{"slot"})

// LiveCharts tracks the number of currently live charts.
var LiveCharts = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "budgetboard",
	Subsystem: "charts",
	Name:      "live",
	Help:      "Number of currently live charts.",
})

// HTTPRequests counts HTTP requests by method, path and status.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "budgetboard",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "Total HTTP requests by method, path and status.",
}, []string{"method", "path", "status"})

// HTTPDuration tracks request durations.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "budgetboard",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request duration in seconds.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
}, []string{"method", "path"})

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
