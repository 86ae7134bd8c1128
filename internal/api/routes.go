// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/step-fragments/backend/internal/catalog"
	"github.com/step-fragments/backend/internal/jobs"
	"github.com/step-fragments/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store        storage.Store
	JobMgr       *jobs.Manager
	Catalog      *catalog.Catalog
	FragmentsDir string
	Version      string
}

// Handlers holds all handler instances
type Handlers struct {
	Health   HealthHandler
	Upload   UploadHandler
	Convert  ConvertHandler
	Profile  ProfileHandler
	Fragment FragmentHandler
	Status   StatusHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(deps.Version),
		Upload:   NewUploadHandler(deps.Store),
		Convert:  NewConvertHandler(deps.Store, deps.JobMgr),
		Profile:  NewProfileHandler(deps.Store),
		Fragment: NewFragmentHandler(deps.Catalog, deps.FragmentsDir),
		Status:   NewStatusHandler(deps.Store, deps.FragmentsDir),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	// Health check
	e.GET("/health", handlers.Health.HandleHealth)

	// File upload routes
	fileGroup := e.Group("/api/files")
	fileGroup.POST("/upload", handlers.Upload.HandleUploadFile)
	fileGroup.POST("/upload/chunk", handlers.Upload.HandleUploadChunk)
	fileGroup.POST("/upload/complete", handlers.Upload.HandleCompleteUpload)
	fileGroup.POST("/upload/binary", handlers.Upload.HandleUploadBinary)
	fileGroup.GET("/recent", handlers.Upload.HandleGetRecentFiles)
	fileGroup.GET("/:id", handlers.Upload.HandleGetFile)
	fileGroup.DELETE("/:id", handlers.Upload.HandleDeleteFile)
	fileGroup.GET("/:id/profile", handlers.Profile.HandleProfileFile)

	// Preflight profile (also reachable under /api/files/:id/profile)
	e.GET("/api/profile/:id", handlers.Profile.HandleProfileFile)

	// Conversion routes
	convertGroup := e.Group("/api/convert")
	convertGroup.POST("/:id", handlers.Convert.HandleStartConversion)
	convertGroup.GET("/jobs", handlers.Convert.HandleListJobs)
	convertGroup.GET("/jobs/:jobId", handlers.Convert.HandleGetJob)

	// Fragment routes: artifacts on disk plus the catalog views
	fragmentGroup := e.Group("/api/fragments")
	fragmentGroup.GET("", handlers.Fragment.HandleListFragments)
	fragmentGroup.GET("/records", handlers.Fragment.HandleListRecords)
	fragmentGroup.GET("/stats", handlers.Fragment.HandleCatalogStats)
	fragmentGroup.GET("/:name", handlers.Fragment.HandleGetFragment)

	// System status
	e.GET("/api/status", handlers.Status.HandleStatus)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler
}
