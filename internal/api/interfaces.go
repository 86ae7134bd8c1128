// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
)

// UploadHandler handles exchange file upload operations
type UploadHandler interface {
	HandleUploadFile(c echo.Context) error
	HandleUploadChunk(c echo.Context) error
	HandleCompleteUpload(c echo.Context) error
	HandleUploadBinary(c echo.Context) error
	HandleGetRecentFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
}

// ConvertHandler handles conversion job operations
type ConvertHandler interface {
	HandleStartConversion(c echo.Context) error
	HandleGetJob(c echo.Context) error
	HandleListJobs(c echo.Context) error
}

// ProfileHandler handles preflight file profiling
type ProfileHandler interface {
	HandleProfileFile(c echo.Context) error
}

// FragmentHandler handles catalogued fragment artifacts
type FragmentHandler interface {
	HandleListFragments(c echo.Context) error
	HandleListRecords(c echo.Context) error
	HandleGetFragment(c echo.Context) error
	HandleCatalogStats(c echo.Context) error
}

// StatusHandler reports overall system status
type StatusHandler interface {
	HandleStatus(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}
