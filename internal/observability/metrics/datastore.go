package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DatastoreMetrics contains Prometheus metrics for datastore operations
type DatastoreMetrics struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationErrors   *prometheus.CounterVec
	ledgerSize        prometheus.Gauge
}

// NewDatastoreMetrics creates and registers new datastore metrics
func NewDatastoreMetrics(registry *prometheus.Registry) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *DatastoreMetrics) initMetrics() error {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_operations_total",
			Help: "Total number of datastore operations",
		},
		[]string{"operation", "status"}, // operation: create_user, save_upload, ...; status: success, error
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datastore_operation_duration_seconds",
			Help:    "Time taken for datastore operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	m.operationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_operation_errors_total",
			Help: "Total number of datastore operation errors",
		},
		[]string{"operation", "error_type"}, // error_type: duplicate, not_found, unavailable, database
	)

	m.ledgerSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "datastore_ledger_rows",
			Help: "Total identification events recorded",
		},
	)

	return nil
}

func (m *DatastoreMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.operationsTotal,
		m.operationDuration,
		m.operationErrors,
		m.ledgerSize,
	}
}

// Describe implements the Collector interface
func (m *DatastoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *DatastoreMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// RecordOperation records a datastore operation with its status and duration
func (m *DatastoreMetrics) RecordOperation(operation, status string, duration float64) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordOperationError records a datastore operation error
func (m *DatastoreMetrics) RecordOperationError(operation, errorType string) {
	m.operationErrors.WithLabelValues(operation, errorType).Inc()
}

// SetLedgerSize updates the ledger row gauge
func (m *DatastoreMetrics) SetLedgerSize(rows float64) {
	m.ledgerSize.Set(rows)
}
