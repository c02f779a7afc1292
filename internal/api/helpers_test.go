package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/pageza/recipebox/internal/backup"
	"github.com/pageza/recipebox/internal/database"
	"github.com/pageza/recipebox/internal/fetch"
	"github.com/pageza/recipebox/internal/model"
	"github.com/pageza/recipebox/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const modelReply = `{"name":"Relay Soup","cuisine":"French","prepTime":"10 min","cookTime":"25 min","servings":4,
"difficulty":"Easy","tags":["Soup"],"ingredients":["2 onions","1 l stock"],"instructions":["Soften the onions.","Add stock and simmer."],
"source":"Website","url":""}`

type testEnv struct {
	router     *gin.Engine
	store      *service.RecipeService
	collection *service.Collection
	key        string
	relayHits  int
	backupDir  string
	pageURL    string
}

// setupTestRouter wires the API to a SQLite store in a temp dir, a page relay
// and a model stub served by httptest.
func setupTestRouter(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{key: "test-key"}

	path := filepath.Join(t.TempDir(), "recipes.db")
	db, err := database.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	env.store = service.NewRecipeService(db, database.NewStoreLock(path))
	env.collection = service.NewCollection(env.store)

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html><head><meta property=\"og:site_name\" content=\"Soup Co\"></head><body><p>Relay soup.</p></body></html>")
	}))
	t.Cleanup(page.Close)
	env.pageURL = page.URL + "/soup"

	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.relayHits++
		resp, err := http.Get(r.URL.Query().Get("url"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		_ = json.NewEncoder(w).Encode(map[string]string{"contents": string(body)})
	}))
	t.Cleanup(relay.Close)

	gemini := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{"text": modelReply}}},
			}},
		})
	}))
	t.Cleanup(gemini.Close)

	opts := fetch.DefaultOptions()
	opts.DesktopProxies = []fetch.Proxy{{Name: "test", URL: relay.URL + "/get?url={url}", Format: fetch.FormatJSON, Field: "contents"}}
	opts.ConstrainedProxies = opts.DesktopProxies
	opts.RetryDelay = 0

	extractor := service.NewExtractor(service.ExtractorDeps{
		Fetcher: fetch.New(opts),
		LLM:     service.NewLLMService(gemini.URL, "gemini-test", 5*time.Second),
		Store:   env.store,
		Keys:    service.CredentialFunc(func() string { return env.key }),
		Publish: env.collection.Publish,
	})

	env.backupDir = filepath.Join(t.TempDir(), "backups")
	env.router = gin.New()
	SetupAPI(env.router, Deps{
		Collection: env.collection,
		Extractor:  extractor,
		Backup:     backup.NewFileStore(env.backupDir),
		Health:     func(ctx context.Context) error { return database.HealthCheck(ctx, db) },
	})

	return env
}

func (e *testEnv) seed(t *testing.T, recipes ...model.Recipe) []model.Recipe {
	t.Helper()
	var out []model.Recipe
	for _, r := range recipes {
		saved, err := e.store.Add(context.Background(), r)
		require.NoError(t, err)
		out = append(out, saved)
	}
	require.NoError(t, e.collection.Refresh(context.Background()))
	return out
}

// PerformRequest sends a JSON request through the router.
func PerformRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func fixture(name, cuisine string, tags ...string) model.Recipe {
	return model.Recipe{
		Name:         name,
		Source:       "Test",
		Image:        model.PlaceholderImage,
		Cuisine:      cuisine,
		Tags:         tags,
		PrepTime:     "10 min",
		CookTime:     "20 min",
		Servings:     2,
		Difficulty:   model.DifficultyEasy,
		Ingredients:  model.StringArray{"1/2 cup rice", "3 eggs", "salt to taste"},
		Instructions: model.StringArray{"Cook the rice.", "Fry the eggs."},
	}
}
