package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/recipebox/internal/apperr"
	"github.com/pageza/recipebox/internal/middleware"
	"github.com/pageza/recipebox/internal/model"
	"github.com/pageza/recipebox/internal/service"
	"github.com/pageza/recipebox/internal/textparse"
)

func TestExtractURL(t *testing.T) {
	t.Run("desktop clients go through the relay", func(t *testing.T) {
		env := setupTestRouter(t)
		w := PerformRequest(env.router, http.MethodPost, "/api/v1/extract/url", map[string]string{"url": env.pageURL})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var resp ExtractionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Relay Soup", resp.Recipe.Name)
		assert.Equal(t, env.pageURL, resp.Recipe.URL)
		assert.Equal(t, model.MethodURL, resp.Recipe.ExtractionMethod)
		assert.Equal(t, "Soup Co", resp.Recipe.Source)
		assert.Equal(t, service.StateDone, resp.Trace[len(resp.Trace)-1])
		assert.Equal(t, 1, env.relayHits)

		assert.Len(t, env.collection.Recipes(), 1)
	})

	t.Run("constrained clients fetch directly first", func(t *testing.T) {
		env := setupTestRouter(t)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/extract/url", bytes.NewBufferString(`{"url":"`+env.pageURL+`"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148 Safari/604.1")
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Zero(t, env.relayHits)
	})

	t.Run("missing credential", func(t *testing.T) {
		env := setupTestRouter(t)
		env.key = ""
		w := PerformRequest(env.router, http.MethodPost, "/api/v1/extract/url", map[string]string{"url": env.pageURL})
		assert.Equal(t, http.StatusPreconditionRequired, w.Code)

		var body middleware.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, string(apperr.CredentialMissing), body.Kind)
	})

	t.Run("bad client class header", func(t *testing.T) {
		env := setupTestRouter(t)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/extract/url", bytes.NewBufferString(`{"url":"`+env.pageURL+`"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(ClientClassHeader, "toaster")
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing url", func(t *testing.T) {
		env := setupTestRouter(t)
		w := PerformRequest(env.router, http.MethodPost, "/api/v1/extract/url", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func photoRequest(t *testing.T, data []byte, fallback string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("photo", "recipe.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	if fallback != "" {
		require.NoError(t, mw.WriteField("fallback", fallback))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract/photo", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestExtractPhoto(t *testing.T) {
	t.Run("model reads the photo", func(t *testing.T) {
		env := setupTestRouter(t)
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, photoRequest(t, pngBytes(t), ""))

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var resp ExtractionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Relay Soup", resp.Recipe.Name)
		assert.Equal(t, model.MethodPhoto, resp.Recipe.ExtractionMethod)
		assert.False(t, resp.UsedFallback)
	})

	t.Run("no credential falls back offline", func(t *testing.T) {
		env := setupTestRouter(t)
		env.key = ""
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, photoRequest(t, pngBytes(t), ""))

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var resp ExtractionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.UsedFallback)
		assert.Equal(t, model.MethodPhoto, resp.Recipe.ExtractionMethod)
		assert.Equal(t, model.StringArray{textparse.MissingIngredients}, resp.Recipe.Ingredients)
	})

	t.Run("rejects non-images", func(t *testing.T) {
		env := setupTestRouter(t)
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, photoRequest(t, []byte("%PDF-1.4 not a photo"), ""))
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
		assert.Empty(t, w.Header().Get(FallbackAvailableHeader))
	})

	t.Run("requires a file", func(t *testing.T) {
		env := setupTestRouter(t)
		w := PerformRequest(env.router, http.MethodPost, "/api/v1/extract/photo", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestExtractionRateLimit(t *testing.T) {
	env := setupTestRouter(t)
	env.key = ""

	r := gin.New()
	SetupAPI(r, Deps{
		Collection: env.collection,
		Extractor: service.NewExtractor(service.ExtractorDeps{
			Keys: service.CredentialFunc(func() string { return "" }),
		}),
		ExtractLimiter: middleware.NewExtractionRateLimiter(middleware.NewMemoryCounter(8, time.Hour), 1),
	})

	first := PerformRequest(r, http.MethodPost, "/api/v1/extract/url", gin.H{"url": env.pageURL})
	assert.Equal(t, http.StatusPreconditionRequired, first.Code)

	second := PerformRequest(r, http.MethodPost, "/api/v1/extract/url", gin.H{"url": env.pageURL})
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	assert.Equal(t, http.StatusOK, PerformRequest(r, http.MethodGet, "/api/v1/recipes", nil).Code)
}
