// handlers_convert.go - Conversion job handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/step-fragments/backend/internal/jobs"
	"github.com/step-fragments/backend/internal/storage"
)

// ConvertHandlerImpl implements the ConvertHandler interface
type ConvertHandlerImpl struct {
	store  storage.Store
	jobMgr *jobs.Manager
}

// NewConvertHandler creates a new conversion handler instance
func NewConvertHandler(store storage.Store, jobMgr *jobs.Manager) ConvertHandler {
	return &ConvertHandlerImpl{
		store:  store,
		jobMgr: jobMgr,
	}
}

// HandleStartConversion starts an async conversion of an uploaded file
func (h *ConvertHandlerImpl) HandleStartConversion(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	info, err := h.store.Get(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}

	job := h.jobMgr.StartJob(info.ID, info.Name)

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"jobId":  job.ID,
		"status": job.Status,
	})
}

// HandleGetJob returns the state of a conversion job
func (h *ConvertHandlerImpl) HandleGetJob(c echo.Context) error {
	jobID := c.Param("jobId")
	if jobID == "" {
		return NewValidationError("jobId")
	}

	job, ok := h.jobMgr.GetJob(jobID)
	if !ok {
		return NewNotFoundError("job", jobID)
	}

	return c.JSON(http.StatusOK, job)
}

// HandleListJobs returns all known conversion jobs
func (h *ConvertHandlerImpl) HandleListJobs(c echo.Context) error {
	return c.JSON(http.StatusOK, h.jobMgr.ListJobs())
}
