// Package observability provides Prometheus metrics for the dashboard server.
//
// Metrics are registered on a caller-supplied registry so tests and multiple
// servers in one process do not collide on the global default registry.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace for all metrics
const metricsNamespace = "fi_dashboard"

// Metrics holds the dashboard's Prometheus collectors.
type Metrics struct {
	// RequestsTotal counts HTTP requests.
	// Labels: route, status
	RequestsTotal *prometheus.CounterVec

	// ChartRenderSeconds measures chart build plus encode time.
	// Labels: chart (trend, forecast)
	ChartRenderSeconds *prometheus.HistogramVec

	// DatasetRows reports the row count of each loaded table.
	// Labels: dataset (enriched, forecast)
	DatasetRows *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// gets a fresh private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests by route and status code",
			},
			[]string{"route", "status"},
		),
		ChartRenderSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "chart_render_seconds",
				Help:      "Time spent building and encoding a chart in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"chart"},
		),
		DatasetRows: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "dataset_rows",
				Help:      "Number of rows in each loaded dataset",
			},
			[]string{"dataset"},
		),
		gatherer: reg,
	}
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route string, status int) {
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// ObserveChartRender records how long a chart took to produce.
func (m *Metrics) ObserveChartRender(chart string, elapsed time.Duration) {
	m.ChartRenderSeconds.WithLabelValues(chart).Observe(elapsed.Seconds())
}

// SetDatasetRows records the size of a loaded dataset.
func (m *Metrics) SetDatasetRows(dataset string, rows int) {
	m.DatasetRows.WithLabelValues(dataset).Set(float64(rows))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
