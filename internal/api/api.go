// Package api implements the JSON API under /api/v2.
package api

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aquatrace/aquatrace-go/internal/conf"
	"github.com/aquatrace/aquatrace-go/internal/datastore"
	"github.com/aquatrace/aquatrace-go/internal/errors"
	"github.com/aquatrace/aquatrace-go/internal/identify"
	"github.com/aquatrace/aquatrace-go/internal/logging"
	"github.com/aquatrace/aquatrace-go/internal/observability"
	"github.com/aquatrace/aquatrace-go/internal/security"
	"github.com/aquatrace/aquatrace-go/internal/species"
)

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	DS       datastore.Interface
	Settings *conf.Settings
	Catalog  *species.Catalog

	identifier   identify.Identifier
	sessions     *security.SessionManager
	tokens       *security.TokenIssuer
	verifier     security.CredentialVerifier
	loginLimiter *security.LoginLimiter
	metrics      *observability.Metrics
	uploadDir    string
	apiLogger    *slog.Logger
	startTime    time.Time
}

// New creates the API controller and registers all routes on the given Echo
// instance.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings,
	catalog *species.Catalog, identifier identify.Identifier,
	sessions *security.SessionManager, tokens *security.TokenIssuer,
	verifier security.CredentialVerifier,
	metrics *observability.Metrics) (*Controller, error) {

	uploadDir := settings.Identify.UploadPath
	if uploadDir == "" {
		return nil, errors.Newf("identify.uploadpath must not be empty").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if !filepath.IsAbs(uploadDir) {
		workDir, err := os.Getwd()
		if err != nil {
			return nil, errors.New(err).
				Component("api").
				Category(errors.CategoryFileIO).
				Context("operation", "resolve_upload_dir").
				Build()
		}
		uploadDir = filepath.Join(workDir, uploadDir)
	}
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, errors.New(err).
			Component("api").
			Category(errors.CategoryFileIO).
			Context("path", uploadDir).
			Build()
	}

	c := &Controller{
		Echo:         e,
		DS:           ds,
		Settings:     settings,
		Catalog:      catalog,
		identifier:   identifier,
		sessions:     sessions,
		tokens:       tokens,
		verifier:     verifier,
		loginLimiter: security.NewLoginLimiter(settings),
		metrics:      metrics,
		uploadDir:    uploadDir,
		apiLogger:    logging.ForService("api"),
		startTime:    time.Now(),
	}

	c.Group = e.Group("/api/v2")
	c.Group.Use(c.metricsMiddleware)
	c.initRoutes()

	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	return c, nil
}

// initRoutes registers all route groups.
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	c.initAuthRoutes()
	c.initUploadRoutes()
	c.initDashboardRoutes()
	c.initSpeciesRoutes()
	c.initAnalyticsRoutes()
	c.initProfileRoutes()
	c.initMediaRoutes()
}

// HealthCheck handles GET /api/v2/health
func (c *Controller) HealthCheck(ctx echo.Context) error {
	response := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(c.startTime).String(),
	}

	dbStatus := "connected"
	if _, err := c.DS.CountUsers(); err != nil {
		dbStatus = "disconnected"
		response["status"] = "degraded"
		response["database_error"] = err.Error()
	}
	response["database_status"] = dbStatus
	response["catalog_species"] = c.Catalog.Len()

	return ctx.JSON(http.StatusOK, response)
}

// ErrorResponse is the error payload returned by every failing endpoint.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	correlationID := generateCorrelationID()

	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: correlationID,
	}
}

// generateCorrelationID creates a unique identifier for error tracking using
// cryptographic randomness.
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError logs the error with a correlation id and writes the JSON error
// response.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)

	c.apiLogger.Error("request failed",
		"correlation_id", errorResp.CorrelationID,
		"message", message,
		"error", errorResp.Error,
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"ip", ctx.RealIP(),
	)

	if c.metrics != nil {
		c.metrics.HTTP.RecordHTTPRequestError(ctx.Request().Method, ctx.Path(), errorType(code))
	}

	return ctx.JSON(code, errorResp)
}

func errorType(code int) string {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return "auth"
	case code == http.StatusConflict || code == http.StatusBadRequest || code == http.StatusNotFound:
		return "validation"
	case code >= 500:
		return "system"
	default:
		return "other"
	}
}

// Debug logs a debug message when web server debugging is enabled.
func (c *Controller) Debug(format string, v ...any) {
	if c.Settings.WebServer.Debug {
		c.apiLogger.Debug(fmt.Sprintf(format, v...))
	}
}
