// handlers_fragments.go - Catalogued fragment handlers
package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/step-fragments/backend/internal/catalog"
	"github.com/step-fragments/backend/internal/models"
)

// FragmentHandlerImpl implements the FragmentHandler interface
type FragmentHandlerImpl struct {
	catalog      *catalog.Catalog
	fragmentsDir string
}

// NewFragmentHandler creates a new fragment handler instance
func NewFragmentHandler(cat *catalog.Catalog, fragmentsDir string) FragmentHandler {
	return &FragmentHandlerImpl{catalog: cat, fragmentsDir: fragmentsDir}
}

// HandleListFragments lists the fragment artifacts on disk
func (h *FragmentHandlerImpl) HandleListFragments(c echo.Context) error {
	matches, err := filepath.Glob(filepath.Join(h.fragmentsDir, "*.frag"))
	if err != nil {
		return NewInternalError("failed to scan fragments directory", err)
	}

	fragments := make([]models.FragmentInfo, 0, len(matches))
	var totalMB float64
	for _, path := range matches {
		stat, err := os.Stat(path)
		if err != nil {
			continue
		}
		sizeMB := float64(stat.Size()) / (1024 * 1024)
		totalMB += sizeMB
		fragments = append(fragments, models.FragmentInfo{
			Filename: filepath.Base(path),
			SizeMB:   sizeMB,
			Modified: stat.ModTime(),
			URL:      "/api/fragments/" + filepath.Base(path),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"fragments":   fragments,
		"count":       len(fragments),
		"totalSizeMb": totalMB,
	})
}

// HandleListRecords returns recent conversion records. Pass format=msgpack
// for a MessagePack response instead of JSON.
func (h *FragmentHandlerImpl) HandleListRecords(c echo.Context) error {
	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return NewBadRequestError("limit must be a positive integer", err)
		}
		limit = parsed
	}

	records, err := h.catalog.Records(limit)
	if err != nil {
		return NewInternalError("failed to list records", err)
	}

	if c.QueryParam("format") == "msgpack" {
		data, err := msgpack.Marshal(records)
		if err != nil {
			return NewInternalError("failed to encode msgpack", err)
		}
		return c.Blob(http.StatusOK, "application/msgpack", data)
	}

	return c.JSON(http.StatusOK, records)
}

// HandleGetFragment streams a catalogued fragment artifact
func (h *FragmentHandlerImpl) HandleGetFragment(c echo.Context) error {
	name := c.Param("name")
	if name == "" {
		return NewValidationError("name")
	}

	data, err := h.catalog.Fragment(name)
	if err != nil {
		return NewNotFoundError("fragment", name)
	}

	c.Response().Header().Set("Content-Disposition", "attachment; filename="+name)
	return c.Blob(http.StatusOK, "application/octet-stream", data)
}

// HandleCatalogStats returns catalog totals
func (h *FragmentHandlerImpl) HandleCatalogStats(c echo.Context) error {
	stats, err := h.catalog.Stats()
	if err != nil {
		return NewInternalError("failed to query stats", err)
	}

	return c.JSON(http.StatusOK, stats)
}
