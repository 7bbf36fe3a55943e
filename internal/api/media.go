package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/aquatrace/aquatrace-go/internal/datastore"
	"github.com/aquatrace/aquatrace-go/internal/errors"
)

func (c *Controller) initMediaRoutes() {
	media := c.Group.Group("/media", c.authMiddleware)
	media.GET("/uploads/:filename", c.ServeUpload)
}

// storeUploadFile writes the upload content under the upload directory.
func (c *Controller) storeUploadFile(filename string, content []byte) error {
	path, err := c.uploadFilePath(filename)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategoryFileIO).
			Context("operation", "store_upload").
			Build()
	}
	return nil
}

// uploadFilePath resolves a stored filename inside the upload directory and
// rejects any name that would escape it.
func (c *Controller) uploadFilePath(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", errors.Newf("invalid filename %q", filename).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	path := filepath.Join(c.uploadDir, filename)
	if !strings.HasPrefix(path, c.uploadDir+string(filepath.Separator)) {
		return "", errors.Newf("filename escapes upload directory").
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	return path, nil
}

// ServeUpload handles GET /api/v2/media/uploads/:filename. Only the owner of
// the ledger row may fetch the stored image.
func (c *Controller) ServeUpload(ctx echo.Context) error {
	userID, ok := currentUserID(ctx)
	if !ok {
		return c.HandleError(ctx, errors.NewStd("missing principal"),
			"Authentication required", http.StatusUnauthorized)
	}

	filename := ctx.Param("filename")
	path, err := c.uploadFilePath(filename)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid filename", http.StatusBadRequest)
	}

	// Ownership check keeps one user's images invisible to another.
	if _, err := c.DS.GetUploadByFilename(userID, filename); err != nil {
		if errors.Is(err, datastore.ErrUploadNotFound) {
			return c.HandleError(ctx, err, "Not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "Failed to check ownership", http.StatusInternalServerError)
	}

	if _, err := os.Stat(path); err != nil {
		return c.HandleError(ctx, err, "Not found", http.StatusNotFound)
	}
	return ctx.File(path)
}
