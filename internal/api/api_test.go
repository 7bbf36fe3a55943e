package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquatrace/aquatrace-go/internal/conf"
	"github.com/aquatrace/aquatrace-go/internal/datastore"
	"github.com/aquatrace/aquatrace-go/internal/identify"
	"github.com/aquatrace/aquatrace-go/internal/security"
	"github.com/aquatrace/aquatrace-go/internal/species"
)

// testHarness bundles a fully wired controller and its collaborators.
type testHarness struct {
	controller *Controller
	echo       *echo.Echo
	store      datastore.Interface
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	settings := &conf.Settings{}
	settings.WebServer.Debug = true
	settings.Security.Debug = true
	settings.Security.SessionTTL = time.Hour
	settings.Security.SessionSecret = "test-session-secret"
	settings.Security.JWTSecret = "test-jwt-secret"
	settings.Security.JWTExpiry = time.Hour
	settings.Security.BcryptCost = 4
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = ":memory:"
	settings.Identify.Threshold = 0.85
	settings.Identify.UploadPath = t.TempDir()
	settings.Identify.MaxUploadSizeMB = 5
	settings.Identify.AllowedExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"}

	store := datastore.New(settings)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	catalog, err := species.New("")
	require.NoError(t, err)

	e := echo.New()
	controller, err := New(e, store, settings, catalog,
		identify.NewStub(catalog),
		security.NewSessionManager(settings),
		security.NewTokenIssuer(settings),
		security.NewLocalVerifier(store),
		nil)
	require.NoError(t, err)

	return &testHarness{controller: controller, echo: e, store: store}
}

// do executes a request against the wired echo instance.
func (h *testHarness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.echo.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target string, payload any) *http.Request {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

// register creates an account through the API.
func (h *testHarness) register(t *testing.T, username, password string) {
	t.Helper()
	rec := h.do(jsonRequest(http.MethodPost, "/api/v2/auth/register", RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: password,
	}))
	require.Equal(t, http.StatusCreated, rec.Code, "register failed: %s", rec.Body.String())
}

// login signs in and returns the session cookie and bearer token.
func (h *testHarness) login(t *testing.T, identifier, password string) (*http.Cookie, string) {
	t.Helper()
	rec := h.do(jsonRequest(http.MethodPost, "/api/v2/auth/login", LoginRequest{
		Identifier: identifier,
		Password:   password,
	}))
	require.Equal(t, http.StatusOK, rec.Code, "login failed: %s", rec.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == security.SessionCookieName {
			return cookie, resp.Token
		}
	}
	t.Fatal("login response carried no session cookie")
	return nil, ""
}

// multipartUpload builds a POST /api/v2/uploads request.
func multipartUpload(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v2/uploads", &buf)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func decodeJSON(t *testing.T, body io.Reader, target any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(body).Decode(target))
}

func TestHealthCheck(t *testing.T) {
	h := newTestHarness(t)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/v2/health", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	decodeJSON(t, rec.Body, &resp)
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "connected", resp["database_status"])
	assert.Positive(t, resp["catalog_species"])
}

func TestErrorResponseCarriesCorrelationID(t *testing.T) {
	resp := NewErrorResponse(nil, "something failed", http.StatusBadRequest)
	assert.Equal(t, "something failed", resp.Error)
	assert.Len(t, resp.CorrelationID, 8)

	other := NewErrorResponse(nil, "something failed", http.StatusBadRequest)
	assert.NotEqual(t, resp.CorrelationID, other.CorrelationID)
}
