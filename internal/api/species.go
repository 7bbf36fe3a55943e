package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aquatrace/aquatrace-go/internal/errors"
	"github.com/aquatrace/aquatrace-go/internal/species"
)

// SightingLocation is one coordinate where a species was recorded or is
// known to live.
type SightingLocation struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Source     string  `json:"source"` // "sighting" or "distribution"
	Name       string  `json:"name,omitempty"`
	Population string  `json:"population,omitempty"`
}

// SpeciesLocationsResponse joins recorded sightings with the static
// distribution regions of the species.
type SpeciesLocationsResponse struct {
	SpeciesID  string             `json:"species_id"`
	CommonName string             `json:"common_name"`
	Locations  []SightingLocation `json:"locations"`
}

func (c *Controller) initSpeciesRoutes() {
	speciesGroup := c.Group.Group("/species")
	speciesGroup.GET("", c.ListSpecies)
	speciesGroup.GET("/:id", c.GetSpecies)
	speciesGroup.GET("/:id/locations", c.GetSpeciesLocations)
}

// ListSpecies handles GET /api/v2/species. Premium entries appear in the
// listing only for authenticated callers.
func (c *Controller) ListSpecies(ctx echo.Context) error {
	includePremium := c.isAuthenticated(ctx)
	filter := ctx.QueryParam("filter")

	var records []species.Record
	if filter != "" {
		records = c.Catalog.Search(filter, includePremium)
	} else {
		records = c.Catalog.All(includePremium)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"species": records,
		"total":   len(records),
	})
}

// GetSpecies handles GET /api/v2/species/:id. Premium records require
// authentication; unauthenticated callers get 401, not 404, so the premium
// tier is discoverable.
func (c *Controller) GetSpecies(ctx echo.Context) error {
	id := ctx.Param("id")
	record, found := c.Catalog.Get(id)
	if !found {
		return c.HandleError(ctx, errors.Newf("species %q not in catalog", id).
			Component("api").
			Category(errors.CategoryNotFound).
			Build(),
			"Species not found", http.StatusNotFound)
	}

	if record.Premium && !c.isAuthenticated(ctx) {
		return c.HandleError(ctx, errors.NewStd("premium species requires login"),
			"Sign in to view premium species", http.StatusUnauthorized)
	}

	return ctx.JSON(http.StatusOK, record)
}

// GetSpeciesLocations handles GET /api/v2/species/:id/locations. The
// response merges coordinates from recorded sightings in the ledger with
// the species' static distribution regions.
func (c *Controller) GetSpeciesLocations(ctx echo.Context) error {
	id := ctx.Param("id")
	record, found := c.Catalog.Get(id)
	if !found {
		return c.HandleError(ctx, errors.Newf("species %q not in catalog", id).
			Component("api").
			Category(errors.CategoryNotFound).
			Build(),
			"Species not found", http.StatusNotFound)
	}

	if record.Premium && !c.isAuthenticated(ctx) {
		return c.HandleError(ctx, errors.NewStd("premium species requires login"),
			"Sign in to view premium species", http.StatusUnauthorized)
	}

	uploads, err := c.DS.GetUploadsBySpecies(record.ID)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load sightings", http.StatusInternalServerError)
	}

	locations := make([]SightingLocation, 0, len(uploads)+len(record.Regions))
	for i := range uploads {
		if !uploads[i].HasLocation() {
			continue
		}
		locations = append(locations, SightingLocation{
			Latitude:  *uploads[i].Latitude,
			Longitude: *uploads[i].Longitude,
			Source:    "sighting",
		})
	}

	regions, err := c.Catalog.Distribution(record.ID)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load distribution", http.StatusInternalServerError)
	}
	for _, region := range regions {
		locations = append(locations, SightingLocation{
			Latitude:   region.Latitude,
			Longitude:  region.Longitude,
			Source:     "distribution",
			Name:       region.Name,
			Population: region.Population,
		})
	}

	return ctx.JSON(http.StatusOK, SpeciesLocationsResponse{
		SpeciesID:  record.ID,
		CommonName: record.CommonName,
		Locations:  locations,
	})
}
