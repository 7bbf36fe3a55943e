package api

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/aquatrace/aquatrace-go/internal/datastore"
	"github.com/aquatrace/aquatrace-go/internal/errors"
)

// ProfileRequest carries the updatable account fields. Empty username or
// email keep their current values; bio is always replaced.
type ProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Bio      string `json:"bio"`
}

// ProfileResponse is the account state after an update.
type ProfileResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Bio      string `json:"bio"`
}

func (c *Controller) initProfileRoutes() {
	c.Group.PATCH("/profile", c.UpdateProfile, c.authMiddleware)
	c.Group.GET("/profile", c.GetProfile, c.authMiddleware)
}

// GetProfile handles GET /api/v2/profile
func (c *Controller) GetProfile(ctx echo.Context) error {
	userID, ok := currentUserID(ctx)
	if !ok {
		return c.HandleError(ctx, errors.NewStd("missing principal"),
			"Authentication required", http.StatusUnauthorized)
	}

	user, err := c.DS.GetUserByID(userID)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load profile", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, ProfileResponse{
		Username: user.Username,
		Email:    user.Email,
		Bio:      user.Bio,
	})
}

// UpdateProfile handles PATCH /api/v2/profile
func (c *Controller) UpdateProfile(ctx echo.Context) error {
	userID, ok := currentUserID(ctx)
	if !ok {
		return c.HandleError(ctx, errors.NewStd("missing principal"),
			"Authentication required", http.StatusUnauthorized)
	}

	var req ProfileRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid profile request", http.StatusBadRequest)
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if len(req.Username) > maxUsernameLength {
		return c.HandleError(ctx, errors.NewStd("username too long"),
			"Username too long", http.StatusBadRequest)
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return c.HandleError(ctx, errors.NewStd("invalid email address"),
				"Invalid email address", http.StatusBadRequest)
		}
	}

	if err := c.DS.UpdateUserProfile(userID, req.Username, req.Email, req.Bio); err != nil {
		switch {
		case errors.Is(err, datastore.ErrDuplicateUser):
			return c.HandleError(ctx, err, "Username or email already taken", http.StatusConflict)
		case errors.Is(err, datastore.ErrUserNotFound):
			return c.HandleError(ctx, err, "Account not found", http.StatusNotFound)
		default:
			return c.HandleError(ctx, err, "Failed to update profile", http.StatusInternalServerError)
		}
	}

	user, err := c.DS.GetUserByID(userID)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load profile", http.StatusInternalServerError)
	}

	c.apiLogger.Info("profile updated", "user_id", userID, "username", user.Username)
	return ctx.JSON(http.StatusOK, ProfileResponse{
		Username: user.Username,
		Email:    user.Email,
		Bio:      user.Bio,
	})
}
