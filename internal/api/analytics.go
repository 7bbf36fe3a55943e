package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aquatrace/aquatrace-go/internal/errors"
)

// StatsResponse is the global statistics payload.
type StatsResponse struct {
	TotalIdentifications int64     `json:"total_identifications"`
	TotalUsers           int64     `json:"total_users"`
	TotalSpecies         int64     `json:"total_species"`
	CatalogSpecies       int       `json:"catalog_species"`
	GeneratedAt          time.Time `json:"generated_at"`
}

// ExportEntry is one row of a user's identification history export.
type ExportEntry struct {
	Filename       string    `json:"filename"`
	SpeciesID      string    `json:"species_id"`
	SpeciesName    string    `json:"species_name"`
	ScientificName string    `json:"scientific_name"`
	Confidence     float64   `json:"confidence"`
	Method         string    `json:"method"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (c *Controller) initAnalyticsRoutes() {
	c.Group.GET("/stats", c.GlobalStats)
	c.Group.GET("/export", c.ExportHistory, c.authMiddleware)
}

// GlobalStats handles GET /api/v2/stats
func (c *Controller) GlobalStats(ctx echo.Context) error {
	stats, err := c.DS.GlobalStats()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load statistics", http.StatusInternalServerError)
	}

	if c.metrics != nil {
		c.metrics.Datastore.SetLedgerSize(float64(stats.TotalIdentifications))
	}

	return ctx.JSON(http.StatusOK, StatsResponse{
		TotalIdentifications: stats.TotalIdentifications,
		TotalUsers:           stats.TotalUsers,
		TotalSpecies:         stats.TotalSpecies,
		CatalogSpecies:       c.Catalog.Len(),
		GeneratedAt:          stats.GeneratedAt,
	})
}

// ExportHistory handles GET /api/v2/export. It returns the caller's full
// identification history as a JSON attachment.
func (c *Controller) ExportHistory(ctx echo.Context) error {
	userID, ok := currentUserID(ctx)
	if !ok {
		return c.HandleError(ctx, errors.NewStd("missing principal"),
			"Authentication required", http.StatusUnauthorized)
	}

	const pageSize = 500
	entries := []ExportEntry{}
	for offset := 0; ; offset += pageSize {
		uploads, err := c.DS.GetUploadsByUser(userID, pageSize, offset)
		if err != nil {
			return c.HandleError(ctx, err, "Failed to export history", http.StatusInternalServerError)
		}
		for i := range uploads {
			entries = append(entries, ExportEntry{
				Filename:       uploads[i].Filename,
				SpeciesID:      uploads[i].SpeciesID,
				SpeciesName:    uploads[i].SpeciesName,
				ScientificName: uploads[i].ScientificName,
				Confidence:     uploads[i].Confidence,
				Method:         uploads[i].Method,
				Latitude:       uploads[i].Latitude,
				Longitude:      uploads[i].Longitude,
				CreatedAt:      uploads[i].CreatedAt,
			})
		}
		if len(uploads) < pageSize {
			break
		}
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="identification_history.json"`)
	return ctx.JSON(http.StatusOK, map[string]any{
		"exported_at": time.Now(),
		"total":       len(entries),
		"entries":     entries,
	})
}
