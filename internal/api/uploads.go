package api

import (
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aquatrace/aquatrace-go/internal/datastore"
	"github.com/aquatrace/aquatrace-go/internal/errors"
	"github.com/aquatrace/aquatrace-go/internal/identify"
	"github.com/aquatrace/aquatrace-go/internal/species"
)

// ErrNoFileProvided is returned when the multipart file part is missing or
// has an empty filename.
var ErrNoFileProvided = errors.NewStd("no file provided")

const bytesPerMB = 1 << 20

// unsafeFilenameChars matches everything not allowed in a stored filename.
var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// UploadResponse is the rendered identification joined with catalog detail.
type UploadResponse struct {
	UploadID        uint     `json:"upload_id"`
	Filename        string   `json:"filename"`
	SpeciesID       string   `json:"species_id"`
	SpeciesName     string   `json:"species_name"`
	ScientificName  string   `json:"scientific_name"`
	Confidence      float64  `json:"confidence"`
	Method          string   `json:"method"`
	Facts           string   `json:"facts"`
	FunFact         string   `json:"fun_fact"`
	Status          string   `json:"conservation_status"`
	Habitat         string   `json:"habitat"`
	Diet            string   `json:"diet"`
	Size            string   `json:"size"`
	Threats         string   `json:"threats"`
	PopulationTrend string   `json:"population_trend"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
}

func (c *Controller) initUploadRoutes() {
	uploads := c.Group.Group("/uploads", c.authMiddleware)
	uploads.POST("", c.CreateUpload)
	uploads.GET("", c.ListUploads)
}

// CreateUpload handles POST /api/v2/uploads. The image travels as the
// multipart part named "file"; optional latitude/longitude form fields tag
// the sighting location.
func (c *Controller) CreateUpload(ctx echo.Context) error {
	userID, ok := currentUserID(ctx)
	if !ok {
		return c.HandleError(ctx, errors.NewStd("missing principal"),
			"Authentication required", http.StatusUnauthorized)
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil || fileHeader.Filename == "" {
		return c.HandleError(ctx, ErrNoFileProvided, "No file provided", http.StatusBadRequest)
	}

	if maxMB := c.Settings.Identify.MaxUploadSizeMB; maxMB > 0 && fileHeader.Size > maxMB*bytesPerMB {
		return c.HandleError(ctx, errors.Newf("file exceeds %d MB", maxMB).
			Component("api").
			Category(errors.CategoryValidation).
			Build(),
			"File too large", http.StatusRequestEntityTooLarge)
	}

	if !c.allowedExtension(fileHeader.Filename) {
		return c.HandleError(ctx,
			errors.Newf("extension %q not allowed", filepath.Ext(fileHeader.Filename)).
				Component("api").
				Category(errors.CategoryValidation).
				Build(),
			"Invalid file type, upload an image (PNG, JPG, JPEG, GIF, BMP, WEBP)",
			http.StatusBadRequest)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to read upload", http.StatusBadRequest)
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to read upload", http.StatusBadRequest)
	}

	latitude, longitude, err := parseLocation(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid coordinates", http.StatusBadRequest)
	}

	storedName := timestampedFilename(fileHeader.Filename)
	if err := c.storeUploadFile(storedName, content); err != nil {
		return c.HandleError(ctx, err, "Failed to store upload", http.StatusInternalServerError)
	}

	started := time.Now()
	result, err := c.identifier.Identify(ctx.Request().Context(), identify.Payload{
		Filename: fileHeader.Filename,
		Content:  content,
	})
	if err != nil {
		c.recordIdentification(result, time.Since(started), err)
		return c.HandleError(ctx, err, "Identification failed", http.StatusInternalServerError)
	}
	c.recordIdentification(result, time.Since(started), nil)

	upload := &datastore.Upload{
		UserID:         userID,
		Filename:       storedName,
		SpeciesID:      result.SpeciesID,
		SpeciesName:    result.CommonName,
		ScientificName: result.ScientificName,
		Confidence:     result.Confidence,
		Latitude:       latitude,
		Longitude:      longitude,
		Method:         result.Method,
	}
	if err := c.DS.SaveUpload(upload); err != nil {
		if errors.Is(err, datastore.ErrStoreUnavailable) {
			return c.HandleError(ctx, err, "Service temporarily unavailable", http.StatusServiceUnavailable)
		}
		return c.HandleError(ctx, err, "Failed to record identification", http.StatusInternalServerError)
	}

	record, found := c.Catalog.Get(result.SpeciesID)
	if !found {
		record = c.Catalog.Unknown()
	}

	c.apiLogger.Info("upload identified",
		"user_id", userID,
		"filename", storedName,
		"species", result.SpeciesID,
		"confidence", result.Confidence,
		"method", result.Method,
	)

	return ctx.JSON(http.StatusCreated, UploadResponse{
		UploadID:        upload.ID,
		Filename:        storedName,
		SpeciesID:       result.SpeciesID,
		SpeciesName:     record.CommonName,
		ScientificName:  record.ScientificName,
		Confidence:      result.Confidence,
		Method:          result.Method,
		Facts:           record.Description,
		FunFact:         record.FunFact,
		Status:          record.ConservationStatus,
		Habitat:         record.Habitat,
		Diet:            record.Diet,
		Size:            record.Size,
		Threats:         record.Threats,
		PopulationTrend: record.PopulationTrend,
		Latitude:        latitude,
		Longitude:       longitude,
	})
}

// ListUploads handles GET /api/v2/uploads with limit/offset paging.
func (c *Controller) ListUploads(ctx echo.Context) error {
	userID, ok := currentUserID(ctx)
	if !ok {
		return c.HandleError(ctx, errors.NewStd("missing principal"),
			"Authentication required", http.StatusUnauthorized)
	}

	limit := intQueryParam(ctx, "limit", 20)
	offset := intQueryParam(ctx, "offset", 0)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	uploads, err := c.DS.GetUploadsByUser(userID, limit, offset)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list uploads", http.StatusInternalServerError)
	}
	total, err := c.DS.CountUploadsByUser(userID)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list uploads", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"uploads": uploads,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

func (c *Controller) recordIdentification(result identify.Result, elapsed time.Duration, err error) {
	if c.metrics == nil {
		return
	}
	if err != nil {
		c.metrics.Identification.RecordIdentificationError(result.Method, "identify")
		return
	}
	speciesLabel := result.SpeciesID
	if speciesLabel == "" {
		speciesLabel = species.UnknownID
	}
	c.metrics.Identification.RecordIdentification(result.Method, speciesLabel, result.Confidence, elapsed.Seconds())
}

func (c *Controller) allowedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return false
	}
	for _, allowed := range c.Settings.Identify.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// timestampedFilename sanitizes the client filename and prefixes it with the
// upload time so stored names never collide with earlier uploads.
func timestampedFilename(original string) string {
	base := filepath.Base(original)
	base = unsafeFilenameChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "upload"
	}
	return time.Now().Format("20060102_150405_") + base
}

func parseLocation(ctx echo.Context) (lat, lng *float64, err error) {
	latStr := ctx.FormValue("latitude")
	lngStr := ctx.FormValue("longitude")
	if latStr == "" && lngStr == "" {
		return nil, nil, nil
	}
	if latStr == "" || lngStr == "" {
		return nil, nil, errors.NewStd("latitude and longitude must be provided together")
	}

	latVal, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, nil, errors.NewStd("invalid latitude")
	}
	lngVal, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, nil, errors.NewStd("invalid longitude")
	}
	if latVal < -90 || latVal > 90 || lngVal < -180 || lngVal > 180 {
		return nil, nil, errors.NewStd("coordinates out of range")
	}
	return &latVal, &lngVal, nil
}

func intQueryParam(ctx echo.Context, name string, fallback int) int {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
