// handlers_profile.go - Preflight profiling handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/step-fragments/backend/internal/profile"
	"github.com/step-fragments/backend/internal/storage"
)

// ProfileHandlerImpl implements the ProfileHandler interface
type ProfileHandlerImpl struct {
	store storage.Store
}

// NewProfileHandler creates a new profile handler instance
func NewProfileHandler(store storage.Store) ProfileHandler {
	return &ProfileHandlerImpl{store: store}
}

// HandleProfileFile profiles an uploaded file without converting it:
// size tier, header validity, schema identifier and memory advisories.
func (h *ProfileHandlerImpl) HandleProfileFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	path, err := h.store.GetFilePath(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}

	prof, err := profile.Profile(path)
	if err != nil {
		return NewInternalError("failed to profile file", err)
	}

	return c.JSON(http.StatusOK, prof)
}
