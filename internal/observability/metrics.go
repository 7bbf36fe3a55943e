// Package observability provides metrics and monitoring capabilities.
package observability

import (
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aquatrace/aquatrace-go/internal/errors"
	"github.com/aquatrace/aquatrace-go/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry       *prometheus.Registry
	HTTP           *metrics.HTTPMetrics
	Identification *metrics.IdentificationMetrics
	Datastore      *metrics.DatastoreMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric
// collectors. It returns an error if any collector fails to initialize.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, errors.New(err).
			Component("observability").
			Category(errors.CategorySystem).
			Context("collector", "http").
			Build()
	}

	identificationMetrics, err := metrics.NewIdentificationMetrics(registry)
	if err != nil {
		return nil, errors.New(err).
			Component("observability").
			Category(errors.CategorySystem).
			Context("collector", "identification").
			Build()
	}

	datastoreMetrics, err := metrics.NewDatastoreMetrics(registry)
	if err != nil {
		return nil, errors.New(err).
			Component("observability").
			Category(errors.CategorySystem).
			Context("collector", "datastore").
			Build()
	}

	return &Metrics{
		registry:       registry,
		HTTP:           httpMetrics,
		Identification: identificationMetrics,
		Datastore:      datastoreMetrics,
	}, nil
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      log.New(os.Stderr, "metrics handler: ", log.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// Gather exposes the underlying registry for tests.
func (m *Metrics) Gather() (prometheus.Gatherer, error) {
	if m.registry == nil {
		return nil, errors.NewStd("metrics registry not initialized")
	}
	return m.registry, nil
}
