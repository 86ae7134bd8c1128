// handlers_status.go - Overall system status handler
package api

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/step-fragments/backend/internal/storage"
)

// StatusHandlerImpl implements the StatusHandler interface
type StatusHandlerImpl struct {
	store        storage.Store
	fragmentsDir string
}

// NewStatusHandler creates a new status handler instance
func NewStatusHandler(store storage.Store, fragmentsDir string) StatusHandler {
	return &StatusHandlerImpl{store: store, fragmentsDir: fragmentsDir}
}

// HandleStatus reports uploaded exchange file and fragment artifact counts
func (h *StatusHandlerImpl) HandleStatus(c echo.Context) error {
	files, err := h.store.List(1000)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}
	exchangeCount := len(filterExchangeFiles(files))

	matches, err := filepath.Glob(filepath.Join(h.fragmentsDir, "*.frag"))
	if err != nil {
		return NewInternalError("failed to scan fragments directory", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":             "running",
		"exchangeFiles":      exchangeCount,
		"fragmentFiles":      len(matches),
		"conversionComplete": len(matches) > 0,
		"timestamp":          time.Now().Format(time.RFC3339),
	})
}
