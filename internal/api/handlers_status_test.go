// handlers_status_test.go - Tests for the system status handler
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/step-fragments/backend/internal/testutil"
)

func TestStatusHandler_HandleStatus(t *testing.T) {
	e := echo.New()
	store := testutil.NewMockStorage()
	fragmentsDir := t.TempDir()
	handler := NewStatusHandler(store, fragmentsDir)

	t.Run("empty system", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, handler.HandleStatus(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "running", resp["status"])
		assert.Equal(t, float64(0), resp["exchangeFiles"])
		assert.Equal(t, float64(0), resp["fragmentFiles"])
		assert.Equal(t, false, resp["conversionComplete"])
	})

	t.Run("counts exchange files and artifacts", func(t *testing.T) {
		_, err := store.Save("model.ifc", strings.NewReader("ISO-10303-21;"))
		require.NoError(t, err)
		_, err = store.Save("settings.yaml", strings.NewReader("chunkSizeKB: 256"))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(fragmentsDir, "model.frag"), []byte("bytes"), 0644))

		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, handler.HandleStatus(c))

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		// The yaml upload is not an exchange file
		assert.Equal(t, float64(1), resp["exchangeFiles"])
		assert.Equal(t, float64(1), resp["fragmentFiles"])
		assert.Equal(t, true, resp["conversionComplete"])
	})
}
