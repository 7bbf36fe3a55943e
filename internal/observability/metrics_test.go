package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersCollectors(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)
	require.NotNil(t, m.HTTP)
	require.NotNil(t, m.Identification)
	require.NotNil(t, m.Datastore)

	m.HTTP.RecordHTTPRequest("POST", "/api/v2/uploads", "200", 0.05)
	m.HTTP.RecordAuthOperation("login", "success")
	m.Identification.RecordIdentification("heuristic", "blue-shark", 0.92, 0.001)
	m.Identification.RecordFallback("low_confidence")
	m.Datastore.RecordOperation("save_upload", "success", 0.002)
	m.Datastore.SetLedgerSize(3)

	gatherer, err := m.Gather()
	require.NoError(t, err)
	families, err := gatherer.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, family := range families {
		names[family.GetName()] = true
	}
	assert.True(t, names["http_requests_total"])
	assert.True(t, names["auth_operations_total"])
	assert.True(t, names["identifications_total"])
	assert.True(t, names["identification_fallbacks_total"])
	assert.True(t, names["datastore_operations_total"])
	assert.True(t, names["datastore_ledger_rows"])
}

func TestMetricsHandlerServesExposition(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)
	m.HTTP.RecordHTTPRequest("GET", "/api/v2/health", "200", 0.001)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	m.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
