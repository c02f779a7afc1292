package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/recipebox/internal/apperr"
	"github.com/pageza/recipebox/internal/model"
)

func filterFixture() []model.Recipe {
	pasta := testRecipe("Spaghetti Carbonara")
	pasta.ID = "pasta"
	pasta.Tags = model.StringArray{"Quick", "Comfort"}
	pasta.CookTime = "15 min"

	curry := testRecipe("Chickpea Curry")
	curry.ID = "curry"
	curry.Cuisine = "Indian"
	curry.Difficulty = model.DifficultyMedium
	curry.Tags = model.StringArray{"Vegetarian", "Healthy"}
	curry.CookTime = "45 min"

	stew := testRecipe("Slow Stew")
	stew.ID = "stew"
	stew.Cuisine = "French"
	stew.Difficulty = model.DifficultyHard
	stew.Tags = model.StringArray{"Comfort"}
	stew.CookTime = "overnight"

	return []model.Recipe{pasta, curry, stew}
}

func ids(recipes []model.Recipe) []string {
	out := make([]string, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, r.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	recipes := filterFixture()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no criteria", Filter{}, []string{"pasta", "curry", "stew"}},
		{"search name case insensitive", Filter{Search: "CURRY"}, []string{"curry"}},
		{"search cuisine", Filter{Search: "fren"}, []string{"stew"}},
		{"search tag", Filter{Search: "health"}, []string{"curry"}},
		{"cuisine", Filter{Cuisine: "Italian"}, []string{"pasta"}},
		{"difficulty", Filter{Difficulty: model.DifficultyHard}, []string{"stew"}},
		{"any selected tag", Filter{Tags: []string{"Comfort", "Healthy"}}, []string{"pasta", "curry", "stew"}},
		{"single tag", Filter{Tags: []string{"Vegetarian"}}, []string{"curry"}},
		{"max cook time excludes unparseable", Filter{MaxCookTime: 60}, []string{"pasta", "curry"}},
		{"max cook time", Filter{MaxCookTime: 30}, []string{"pasta"}},
		{"criteria are anded", Filter{Tags: []string{"Comfort"}, Cuisine: "French"}, []string{"stew"}},
		{"no match", Filter{Search: "sushi"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(ApplyFilter(recipes, tt.filter)))
		})
	}
}

func TestLeadingInt(t *testing.T) {
	n, ok := LeadingInt("25 min")
	assert.True(t, ok)
	assert.Equal(t, 25, n)

	_, ok = LeadingInt("about 20 min")
	assert.False(t, ok)
}

func TestCollection_LoadSeedsSamples(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	c := NewCollection(store)

	require.NoError(t, c.Load(ctx))

	recipes := c.Recipes()
	require.Len(t, recipes, len(model.SampleRecipes()))
	assert.Equal(t, model.SampleRecipes()[0].Name, recipes[0].Name)
	assert.Len(t, store.recipes, len(model.SampleRecipes()))

	// A second load must not seed again.
	require.NoError(t, NewCollection(store).Load(ctx))
	assert.Len(t, store.recipes, len(model.SampleRecipes()))
}

func TestCollection_LoadFallsBackToSamples(t *testing.T) {
	store := &fakeStore{failing: true}
	c := NewCollection(store)

	err := c.Load(context.Background())
	assert.Error(t, err)
	assert.Equal(t, ids(model.SampleRecipes()), ids(c.Recipes()))
}

func TestCollection_Options(t *testing.T) {
	c := NewCollection(&fakeStore{})
	c.Publish(filterFixture())

	assert.Equal(t, []string{"Italian", "Indian", "French"}, c.Cuisines())
	assert.Equal(t, []string{"Quick", "Comfort", "Vegetarian", "Healthy"}, c.Tags())
	assert.Equal(t, []string{"curry"}, ids(c.Filter(Filter{Cuisine: "Indian"})))
}

func TestCollection_SetRatingAndNotes(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	saved, err := store.Add(ctx, testRecipe("Pesto"))
	require.NoError(t, err)

	c := NewCollection(store)
	require.NoError(t, c.Load(ctx))

	updated, err := c.SetRating(ctx, saved.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)

	_, err = c.SetNotes(ctx, saved.ID, "Use basil from the garden")
	require.NoError(t, err)

	got, err := c.Get(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Rating)
	assert.Equal(t, "Use basil from the garden", got.Notes)

	t.Run("should reject out of range rating", func(t *testing.T) {
		_, err := c.SetRating(ctx, saved.ID, 6)
		assert.Equal(t, apperr.Invalid, apperr.KindOf(err))
		_, err = c.SetRating(ctx, saved.ID, -1)
		assert.Equal(t, apperr.Invalid, apperr.KindOf(err))
	})

	t.Run("should keep prior state when the store fails", func(t *testing.T) {
		store.setFailing(true)
		defer store.setFailing(false)

		_, err := c.SetRating(ctx, saved.ID, 1)
		assert.Error(t, err)

		got, err := c.Get(saved.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, got.Rating)
	})
}

func TestCollection_Delete(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	a, err := store.Add(ctx, testRecipe("A"))
	require.NoError(t, err)
	b, err := store.Add(ctx, testRecipe("B"))
	require.NoError(t, err)

	c := NewCollection(store)
	require.NoError(t, c.Load(ctx))

	store.setFailing(true)
	assert.Error(t, c.Delete(ctx, a.ID))
	assert.Len(t, c.Recipes(), 2)
	store.setFailing(false)

	require.NoError(t, c.Delete(ctx, a.ID))
	assert.Equal(t, []string{b.ID}, ids(c.Recipes()))
}

func TestCollection_ExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := &fakeStore{}
	for _, n := range []string{"One", "Two", "Three"} {
		_, err := src.Add(ctx, testRecipe(n))
		require.NoError(t, err)
	}

	data, err := NewCollection(src).Export(ctx)
	require.NoError(t, err)

	var file ExportFile
	require.NoError(t, json.Unmarshal(data, &file))
	assert.Equal(t, ExportVersion, file.Version)
	_, err = time.Parse(time.RFC3339, file.ExportDate)
	assert.NoError(t, err)
	require.Len(t, file.Recipes, 3)

	dst := &fakeStore{}
	c := NewCollection(dst)
	res, err := c.Import(ctx, data, ImportReplace)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Imported: 3}, res)

	got := c.Recipes()
	require.Len(t, got, 3)
	for i, r := range got {
		assert.Equal(t, file.Recipes[i].Name, r.Name)
		assert.Equal(t, file.Recipes[i].Ingredients, r.Ingredients)
		assert.NotEqual(t, file.Recipes[i].ID, r.ID)
	}
}

func TestCollection_ImportModes(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	_, err := store.Add(ctx, testRecipe("Existing"))
	require.NoError(t, err)
	c := NewCollection(store)

	bare, err := json.Marshal([]model.Recipe{testRecipe("Imported")})
	require.NoError(t, err)

	res, err := c.Import(ctx, bare, ImportMerge)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Len(t, c.Recipes(), 2)

	// Importing the same file twice duplicates under fresh ids.
	_, err = c.Import(ctx, bare, "")
	require.NoError(t, err)
	assert.Len(t, c.Recipes(), 3)

	res, err = c.Import(ctx, bare, ImportReplace)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, []string{"Imported"}, names(c.Recipes()))
}

func TestCollection_ImportSkipsInvalidRecipes(t *testing.T) {
	ctx := context.Background()
	c := NewCollection(&fakeStore{})

	bad := testRecipe("Bad")
	bad.Servings = 0
	data, err := json.Marshal(ExportFile{Recipes: []model.Recipe{testRecipe("Good"), bad}, Version: ExportVersion})
	require.NoError(t, err)

	res, err := c.Import(ctx, data, ImportMerge)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Imported: 1, Skipped: 1}, res)
}

func TestCollection_ImportSkipsUndecodableRecipes(t *testing.T) {
	ctx := context.Background()
	c := NewCollection(&fakeStore{})

	good, err := json.Marshal(testRecipe("Good"))
	require.NoError(t, err)
	payloads := map[string]string{
		"string servings": `{"name":"Bad","servings":"4"}`,
		"empty date":      `{"name":"Bad","dateAdded":""}`,
		"numeric id":      `{"id":7,"name":"Bad"}`,
		"not an object":   `"Bad"`,
	}
	for name, bad := range payloads {
		t.Run(name, func(t *testing.T) {
			res, err := c.Import(ctx, []byte("["+string(good)+","+bad+"]"), ImportReplace)
			require.NoError(t, err)
			assert.Equal(t, ImportResult{Imported: 1, Skipped: 1}, res)
			assert.Equal(t, []string{"Good"}, names(c.Recipes()))
		})
	}

	t.Run("inside envelope", func(t *testing.T) {
		data := `{"version":"1.0","recipes":[` + string(good) + `,{"servings":"4"}]}`
		res, err := c.Import(ctx, []byte(data), ImportMerge)
		require.NoError(t, err)
		assert.Equal(t, ImportResult{Imported: 1, Skipped: 1}, res)
	})
}

func TestParseImport_Invalid(t *testing.T) {
	inputs := map[string]string{
		"empty":          "",
		"scalar":         `42`,
		"text":           `hello`,
		"object no list": `{"version":"1.0"}`,
		"wrong list":     `{"recipes":"nope"}`,
		"broken json":    `[{"name":`,
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := ParseImport([]byte(in))
			assert.Equal(t, apperr.InvalidImportFile, apperr.KindOf(err))
		})
	}

	_, err := NewCollection(&fakeStore{}).Import(context.Background(), []byte(`[]`), "overwrite")
	assert.Equal(t, apperr.Invalid, apperr.KindOf(err))
}

func TestExportFileName(t *testing.T) {
	assert.Equal(t, "recipes-backup-2024-03-09.json", ExportFileName(time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)))
}

func names(recipes []model.Recipe) []string {
	out := make([]string, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, r.Name)
	}
	return out
}
