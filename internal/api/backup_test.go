package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/recipebox/internal/model"
	"github.com/pageza/recipebox/internal/service"
)

func TestExportImport(t *testing.T) {
	env := setupTestRouter(t)
	env.seed(t, fixture("Fried Rice", "Asian"), fixture("Risotto", "Italian"))

	w := PerformRequest(env.router, http.MethodGet, "/api/v1/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "recipes-backup-")

	var file service.ExportFile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &file))
	assert.Equal(t, service.ExportVersion, file.Version)
	require.Len(t, file.Recipes, 2)

	t.Run("merge appends with fresh ids", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/import?mode=merge", bytes.NewReader(w.Body.Bytes()))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var res service.ImportResult
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
		assert.Equal(t, service.ImportResult{Imported: 2}, res)

		all, err := env.store.GetAll(t.Context())
		require.NoError(t, err)
		require.Len(t, all, 4)
		original := map[string]bool{file.Recipes[0].ID: true, file.Recipes[1].ID: true}
		assert.False(t, original[all[2].ID])
		assert.False(t, original[all[3].ID])
	})

	t.Run("replace with a bare array", func(t *testing.T) {
		data, err := json.Marshal([]model.Recipe{fixture("Only One", "French")})
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/import?mode=replace", bytes.NewReader(data)))
		require.Equal(t, http.StatusOK, rr.Code)

		assert.Len(t, env.collection.Recipes(), 1)
	})

	t.Run("rejects an invalid file", func(t *testing.T) {
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/import", strings.NewReader(`"hello"`)))
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Len(t, env.collection.Recipes(), 1)
	})
}

func TestExportRemote(t *testing.T) {
	env := setupTestRouter(t)
	env.seed(t, fixture("Fried Rice", "Asian"))

	w := PerformRequest(env.router, http.MethodPost, "/api/v1/export/remote", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, err := os.ReadFile(resp["location"])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Fried Rice")
}
