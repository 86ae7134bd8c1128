// handlers_convert_test.go - Tests for conversion, profile and fragment handlers
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/step-fragments/backend/internal/convert"
	"github.com/step-fragments/backend/internal/fragment"
	"github.com/step-fragments/backend/internal/jobs"
	"github.com/step-fragments/backend/internal/models"
	"github.com/step-fragments/backend/internal/testutil"
)

const sampleExchange = `ISO-10303-21;
HEADER;
FILE_SCHEMA(('IFC4'));
ENDSEC;
DATA;
#1= IFCWALL('guid',$,'Wall',$,$,$,$,$,$);
ENDSEC;
END-ISO-10303-21;
`

func newConvertFixture(t *testing.T) (*testutil.MockStorage, *jobs.Manager) {
	t.Helper()
	store := testutil.NewMockStorageAt(t.TempDir())
	converter := convert.NewConverter(fragment.NewEncoder())
	jobMgr := jobs.NewManager(t.TempDir(), store, nil, converter)
	return store, jobMgr
}

func waitForJob(t *testing.T, jobMgr *jobs.Manager, id string) *jobs.Job {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := jobMgr.GetJob(id)
		require.True(t, ok, "job disappeared")
		if job.Status == jobs.StatusComplete || job.Status == jobs.StatusError {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not finish in time")
	return nil
}

func TestConvertHandler_HandleStartConversion(t *testing.T) {
	e := echo.New()
	store, jobMgr := newConvertFixture(t)
	info := store.AddFile("f1", "model.ifc", []byte(sampleExchange))
	handler := NewConvertHandler(store, jobMgr)

	t.Run("starts job for stored file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/convert/f1", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues(info.ID)

		require.NoError(t, handler.HandleStartConversion(c))
		assert.Equal(t, http.StatusAccepted, rec.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		jobID, _ := response["jobId"].(string)
		require.NotEmpty(t, jobID)

		done := waitForJob(t, jobMgr, jobID)
		assert.Equal(t, jobs.StatusComplete, done.Status)
		require.NotNil(t, done.Profile)
		assert.Equal(t, "IFC4", done.Profile.SchemaID)
	})

	t.Run("unknown file yields 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/convert/nope", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("nope")

		err := handler.HandleStartConversion(c)
		apiErr, ok := err.(*APIError)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, apiErr.Status)
	})
}

func TestConvertHandler_HandleGetJob(t *testing.T) {
	e := echo.New()
	store, jobMgr := newConvertFixture(t)
	info := store.AddFile("f1", "model.ifc", []byte(sampleExchange))
	handler := NewConvertHandler(store, jobMgr)

	job := jobMgr.StartJob(info.ID, info.Name)
	waitForJob(t, jobMgr, job.ID)

	t.Run("existing job", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/convert/jobs/"+job.ID, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("jobId")
		c.SetParamValues(job.ID)

		require.NoError(t, handler.HandleGetJob(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"complete"`)
	})

	t.Run("unknown job yields 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/convert/jobs/nope", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("jobId")
		c.SetParamValues("nope")

		err := handler.HandleGetJob(c)
		apiErr, ok := err.(*APIError)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, apiErr.Status)
	})
}

func TestConvertHandler_HandleListJobs(t *testing.T) {
	e := echo.New()
	store, jobMgr := newConvertFixture(t)
	info := store.AddFile("f1", "model.ifc", []byte(sampleExchange))
	handler := NewConvertHandler(store, jobMgr)

	job := jobMgr.StartJob(info.ID, info.Name)
	waitForJob(t, jobMgr, job.ID)

	req := httptest.NewRequest(http.MethodGet, "/api/convert/jobs", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, handler.HandleListJobs(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var list []*jobs.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestProfileHandler_HandleProfileFile(t *testing.T) {
	e := echo.New()
	store := testutil.NewMockStorageAt(t.TempDir())
	info := store.AddFile("f1", "model.ifc", []byte(sampleExchange))
	handler := NewProfileHandler(store)

	t.Run("profiles stored file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/files/f1/profile", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues(info.ID)

		require.NoError(t, handler.HandleProfileFile(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var prof models.FileProfile
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prof))
		assert.True(t, prof.HeaderValid)
		assert.Equal(t, "IFC4", prof.SchemaID)
		assert.Equal(t, models.SizeTierSmall, prof.SizeTier)
	})

	t.Run("unknown file yields 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/files/nope/profile", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("nope")

		err := handler.HandleProfileFile(c)
		apiErr, ok := err.(*APIError)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, apiErr.Status)
	})
}
