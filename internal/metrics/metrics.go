// ABOUTME: Prometheus collectors for the admin server and transfer operations.
// ABOUTME: Owns a private registry exposed through Handler for /metrics scrapes.

package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the admin records into.
type Metrics struct {
	reg *prometheus.Registry

	requests     *prometheus.CounterVec   // ekoru_admin_requests_total
	duration     *prometheus.HistogramVec // ekoru_admin_request_duration_seconds
	imports      *prometheus.CounterVec   // ekoru_admin_imports_total
	importedRows *prometheus.CounterVec   // ekoru_admin_imported_rows_total
	exports      *prometheus.CounterVec   // ekoru_admin_exports_total
	droppedCells *prometheus.CounterVec   // ekoru_admin_export_dropped_cells_total
}

// New builds the collectors on a fresh registry, along with the Go runtime
// and process collectors.
func New() (*Metrics, error) {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ekoru_admin_requests_total",
				Help: "HTTP requests handled, partitioned by method, table and status code.",
			},
			[]string{"method", "table", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ekoru_admin_request_duration_seconds",
				Help:    "HTTP request latency in seconds, partitioned by method and table.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "table"},
		),
		imports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ekoru_admin_imports_total",
				Help: "Import attempts, partitioned by table, format and result.",
			},
			[]string{"table", "format", "result"},
		),
		importedRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ekoru_admin_imported_rows_total",
				Help: "Rows written by imports, partitioned by table and outcome (created, failed).",
			},
			[]string{"table", "outcome"},
		),
		exports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ekoru_admin_exports_total",
				Help: "Exports produced, partitioned by table and format.",
			},
			[]string{"table", "format"},
		),
		droppedCells: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ekoru_admin_export_dropped_cells_total",
				Help: "Cells blanked by the export size policy, partitioned by table.",
			},
			[]string{"table"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.requests, m.duration, m.imports, m.importedRows, m.exports, m.droppedCells,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := m.reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register collector: %w", err)
		}
	}
	return m, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// ObserveRequest records one handled HTTP request. A nil receiver is a no-op,
// so callers without metrics can pass nil.
func (m *Metrics) ObserveRequest(method, table string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, table, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, table).Observe(d.Seconds())
}

// ObserveImport records an import attempt and its row outcome.
func (m *Metrics) ObserveImport(table, format string, ok bool, created, failed int) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "rejected"
	}
	m.imports.WithLabelValues(table, format, result).Inc()
	m.importedRows.WithLabelValues(table, "created").Add(float64(created))
	m.importedRows.WithLabelValues(table, "failed").Add(float64(failed))
}

// ObserveExport records a produced export and the cells it dropped.
func (m *Metrics) ObserveExport(table, format string, dropped int) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(table, format).Inc()
	if dropped > 0 {
		m.droppedCells.WithLabelValues(table).Add(float64(dropped))
	}
}
