package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aquatrace/aquatrace-go/internal/datastore"
	"github.com/aquatrace/aquatrace-go/internal/errors"
)

const dashboardRecentLimit = 10

// DashboardResponse is the per-user summary shown after login.
type DashboardResponse struct {
	Username        string             `json:"username"`
	TotalUploads    int64              `json:"total_uploads"`
	DistinctSpecies int64              `json:"distinct_species"`
	Recent          []datastore.Upload `json:"recent"`
}

func (c *Controller) initDashboardRoutes() {
	c.Group.GET("/dashboard", c.Dashboard, c.authMiddleware)
}

// Dashboard handles GET /api/v2/dashboard. A user with no uploads gets a
// zero-valued summary, never an error.
func (c *Controller) Dashboard(ctx echo.Context) error {
	userID, ok := currentUserID(ctx)
	if !ok {
		return c.HandleError(ctx, errors.NewStd("missing principal"),
			"Authentication required", http.StatusUnauthorized)
	}

	summary, err := c.DS.UserSummary(userID, dashboardRecentLimit)
	if err != nil {
		if errors.Is(err, datastore.ErrStoreUnavailable) {
			return c.HandleError(ctx, err, "Service temporarily unavailable", http.StatusServiceUnavailable)
		}
		return c.HandleError(ctx, err, "Failed to load dashboard", http.StatusInternalServerError)
	}

	username, _ := ctx.Get(ctxUsername).(string)
	recent := summary.Recent
	if recent == nil {
		recent = []datastore.Upload{}
	}

	return ctx.JSON(http.StatusOK, DashboardResponse{
		Username:        username,
		TotalUploads:    summary.TotalUploads,
		DistinctSpecies: summary.DistinctSpecies,
		Recent:          recent,
	})
}
