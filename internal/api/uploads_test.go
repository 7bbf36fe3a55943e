package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fakePNG = []byte("\x89PNG\r\n\x1a\nnot really an image")

func TestUploadRequiresAuth(t *testing.T) {
	h := newTestHarness(t)

	rec := h.do(multipartUpload(t, "shark.jpg", fakePNG, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadIdentifiesAndRecords(t *testing.T) {
	h := newTestHarness(t)
	h.register(t, "diver", "correct horse")
	cookie, _ := h.login(t, "diver", "correct horse")

	req := multipartUpload(t, "great_shark_sighting.jpg", fakePNG, map[string]string{
		"latitude":  "3.2",
		"longitude": "73.2",
	})
	req.AddCookie(cookie)
	rec := h.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp UploadResponse
	decodeJSON(t, rec.Body, &resp)
	assert.Equal(t, "blue-shark", resp.SpeciesID)
	assert.Equal(t, "Blue Shark", resp.SpeciesName)
	assert.InDelta(t, 0.92, resp.Confidence, 0.001)
	assert.Equal(t, "heuristic", resp.Method)
	assert.NotEmpty(t, resp.Facts)
	assert.NotEmpty(t, resp.Status)
	require.NotNil(t, resp.Latitude)
	assert.InDelta(t, 3.2, *resp.Latitude, 0.001)

	// The stored filename is timestamped and the file is on disk.
	assert.NotEqual(t, "great_shark_sighting.jpg", resp.Filename)
	assert.Contains(t, resp.Filename, "great_shark_sighting.jpg")
	stored := filepath.Join(h.controller.uploadDir, resp.Filename)
	_, err := os.Stat(stored)
	assert.NoError(t, err)

	// The ledger gained exactly one row.
	upload, err := h.store.GetUploadByFilename(1, resp.Filename)
	require.NoError(t, err)
	assert.Equal(t, "blue-shark", upload.SpeciesID)
}

func TestUploadUnknownSpecies(t *testing.T) {
	h := newTestHarness(t)
	h.register(t, "diver", "correct horse")
	cookie, _ := h.login(t, "diver", "correct horse")

	req := multipartUpload(t, "mystery_creature.png", fakePNG, nil)
	req.AddCookie(cookie)
	rec := h.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp UploadResponse
	decodeJSON(t, rec.Body, &resp)
	assert.Equal(t, "unknown", resp.SpeciesID)
	assert.Nil(t, resp.Latitude)
}

func TestUploadNoFile(t *testing.T) {
	h := newTestHarness(t)
	h.register(t, "diver", "correct horse")
	cookie, _ := h.login(t, "diver", "correct horse")

	req := multipartUpload(t, "", nil, map[string]string{"latitude": "1", "longitude": "2"})
	req.AddCookie(cookie)
	rec := h.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadRejectsExtension(t *testing.T) {
	h := newTestHarness(t)
	h.register(t, "diver", "correct horse")
	cookie, _ := h.login(t, "diver", "correct horse")

	for _, filename := range []string{"script.exe", "notes.txt", "noextension"} {
		req := multipartUpload(t, filename, fakePNG, nil)
		req.AddCookie(cookie)
		rec := h.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "filename %q", filename)
	}
}

func TestUploadRejectsBadCoordinates(t *testing.T) {
	h := newTestHarness(t)
	h.register(t, "diver", "correct horse")
	cookie, _ := h.login(t, "diver", "correct horse")

	cases := []map[string]string{
		{"latitude": "91", "longitude": "0"},
		{"latitude": "0", "longitude": "181"},
		{"latitude": "abc", "longitude": "0"},
		{"latitude": "1.0"}, // longitude missing
	}
	for _, fields := range cases {
		req := multipartUpload(t, "shark.jpg", fakePNG, fields)
		req.AddCookie(cookie)
		rec := h.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "fields %v", fields)
	}
}

func TestListUploads(t *testing.T) {
	h := newTestHarness(t)
	h.register(t, "diver", "correct horse")
	cookie, _ := h.login(t, "diver", "correct horse")

	for _, filename := range []string{"shark_1.jpg", "turtle_2.jpg", "octopus_3.jpg"} {
		req := multipartUpload(t, filename, fakePNG, nil)
		req.AddCookie(cookie)
		rec := h.do(req)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v2/uploads?limit=2", http.NoBody)
	req.AddCookie(cookie)
	rec := h.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Uploads []map[string]any `json:"uploads"`
		Total   int64            `json:"total"`
	}
	decodeJSON(t, rec.Body, &resp)
	assert.Equal(t, int64(3), resp.Total)
	assert.Len(t, resp.Uploads, 2)
}

func TestTimestampedFilenameSanitizes(t *testing.T) {
	name := timestampedFilename("../../../etc/passwd")
	assert.NotContains(t, name, "/")
	assert.NotContains(t, name, "..")

	name = timestampedFilename("my photo (1).jpg")
	assert.NotContains(t, name, " ")
	assert.Contains(t, name, ".jpg")

	// Degenerate input still yields a usable name.
	name = timestampedFilename("...")
	assert.Contains(t, name, "upload")
}

func TestServeUploadOwnership(t *testing.T) {
	h := newTestHarness(t)
	h.register(t, "alice", "correct horse")
	h.register(t, "bob", "correct horse")
	aliceCookie, _ := h.login(t, "alice", "correct horse")
	bobCookie, _ := h.login(t, "bob", "correct horse")

	req := multipartUpload(t, "shark.jpg", fakePNG, nil)
	req.AddCookie(aliceCookie)
	rec := h.do(req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp UploadResponse
	decodeJSON(t, rec.Body, &resp)

	// Owner fetches the image.
	req = httptest.NewRequest(http.MethodGet, "/api/v2/media/uploads/"+resp.Filename, http.NoBody)
	req.AddCookie(aliceCookie)
	rec = h.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, fakePNG, rec.Body.Bytes())

	// Another user cannot.
	req = httptest.NewRequest(http.MethodGet, "/api/v2/media/uploads/"+resp.Filename, http.NoBody)
	req.AddCookie(bobCookie)
	rec = h.do(req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Unauthenticated cannot.
	req = httptest.NewRequest(http.MethodGet, "/api/v2/media/uploads/"+resp.Filename, http.NoBody)
	rec = h.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
