package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalStats(t *testing.T) {
	h := newTestHarness(t)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/v2/stats", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	var empty StatsResponse
	decodeJSON(t, rec.Body, &empty)
	assert.Zero(t, empty.TotalIdentifications)
	assert.Zero(t, empty.TotalUsers)
	assert.Positive(t, empty.CatalogSpecies)

	h.register(t, "diver", "correct horse")
	cookie, _ := h.login(t, "diver", "correct horse")
	req := multipartUpload(t, "shark.jpg", fakePNG, nil)
	req.AddCookie(cookie)
	rec = h.do(req)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(httptest.NewRequest(http.MethodGet, "/api/v2/stats", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats StatsResponse
	decodeJSON(t, rec.Body, &stats)
	assert.Equal(t, int64(1), stats.TotalIdentifications)
	assert.Equal(t, int64(1), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.TotalSpecies)
}

func TestExportHistory(t *testing.T) {
	h := newTestHarness(t)
	h.register(t, "diver", "correct horse")
	cookie, _ := h.login(t, "diver", "correct horse")

	for _, filename := range []string{"shark_1.jpg", "turtle_2.jpg"} {
		req := multipartUpload(t, filename, fakePNG, nil)
		req.AddCookie(cookie)
		rec := h.do(req)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v2/export", http.NoBody)
	req.AddCookie(cookie)
	rec := h.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	var resp struct {
		Total   int           `json:"total"`
		Entries []ExportEntry `json:"entries"`
	}
	decodeJSON(t, rec.Body, &resp)
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Entries, 2)
	assert.NotEmpty(t, resp.Entries[0].SpeciesID)
}

func TestExportRequiresAuth(t *testing.T) {
	h := newTestHarness(t)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/v2/export", http.NoBody))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfileUpdate(t *testing.T) {
	h := newTestHarness(t)
	h.register(t, "diver", "correct horse")
	cookie, _ := h.login(t, "diver", "correct horse")

	req := jsonRequest(http.MethodPatch, "/api/v2/profile", ProfileRequest{
		Username: "deepdiver",
		Bio:      "marine biologist",
	})
	req.AddCookie(cookie)
	rec := h.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ProfileResponse
	decodeJSON(t, rec.Body, &resp)
	assert.Equal(t, "deepdiver", resp.Username)
	assert.Equal(t, "diver@example.com", resp.Email, "empty email keeps current value")
	assert.Equal(t, "marine biologist", resp.Bio)
}

func TestProfileUpdateConflict(t *testing.T) {
	h := newTestHarness(t)
	h.register(t, "diver", "correct horse")
	h.register(t, "taken", "correct horse")
	cookie, _ := h.login(t, "diver", "correct horse")

	req := jsonRequest(http.MethodPatch, "/api/v2/profile", ProfileRequest{Username: "taken"})
	req.AddCookie(cookie)
	rec := h.do(req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetProfile(t *testing.T) {
	h := newTestHarness(t)
	h.register(t, "diver", "correct horse")
	cookie, _ := h.login(t, "diver", "correct horse")

	req := httptest.NewRequest(http.MethodGet, "/api/v2/profile", http.NoBody)
	req.AddCookie(cookie)
	rec := h.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProfileResponse
	decodeJSON(t, rec.Body, &resp)
	assert.Equal(t, "diver", resp.Username)
	assert.Equal(t, "diver@example.com", resp.Email)
}
