package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// IdentificationMetrics contains Prometheus metrics for species
// identification operations
type IdentificationMetrics struct {
	registry *prometheus.Registry

	identificationsTotal   *prometheus.CounterVec
	identificationDuration *prometheus.HistogramVec
	identificationErrors   *prometheus.CounterVec
	confidenceDistribution *prometheus.HistogramVec
	fallbacksTotal         *prometheus.CounterVec
}

// NewIdentificationMetrics creates and registers new identification metrics
func NewIdentificationMetrics(registry *prometheus.Registry) (*IdentificationMetrics, error) {
	m := &IdentificationMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *IdentificationMetrics) initMetrics() error {
	m.identificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identifications_total",
			Help: "Total number of identification attempts",
		},
		[]string{"method", "species"}, // method: heuristic, vision-api
	)

	m.identificationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "identification_duration_seconds",
			Help:    "Time taken for identification",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	m.identificationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identification_errors_total",
			Help: "Total number of identification errors",
		},
		[]string{"method", "error_type"},
	)

	m.confidenceDistribution = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "identification_confidence",
			Help:    "Distribution of identification confidence scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"method"},
	)

	m.fallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identification_fallbacks_total",
			Help: "Total number of fallbacks to the secondary identifier",
		},
		[]string{"reason"}, // reason: error, low_confidence, unknown
	)

	return nil
}

func (m *IdentificationMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.identificationsTotal,
		m.identificationDuration,
		m.identificationErrors,
		m.confidenceDistribution,
		m.fallbacksTotal,
	}
}

// Describe implements the Collector interface
func (m *IdentificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *IdentificationMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// RecordIdentification records a completed identification with its outcome
func (m *IdentificationMetrics) RecordIdentification(method, species string, confidence, duration float64) {
	m.identificationsTotal.WithLabelValues(method, species).Inc()
	m.identificationDuration.WithLabelValues(method).Observe(duration)
	m.confidenceDistribution.WithLabelValues(method).Observe(confidence)
}

// RecordIdentificationError records a failed identification attempt
func (m *IdentificationMetrics) RecordIdentificationError(method, errorType string) {
	m.identificationErrors.WithLabelValues(method, errorType).Inc()
}

// RecordFallback records a fallback to the secondary identifier
func (m *IdentificationMetrics) RecordFallback(reason string) {
	m.fallbacksTotal.WithLabelValues(reason).Inc()
}
