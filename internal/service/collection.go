package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pageza/recipebox/internal/apperr"
	"github.com/pageza/recipebox/internal/logger"
	"github.com/pageza/recipebox/internal/metrics"
	"github.com/pageza/recipebox/internal/model"
)

// ExportVersion is written to every export file.
const ExportVersion = "1.0"

// Import modes.
const (
	ImportMerge   = "merge"
	ImportReplace = "replace"
)

// Filter narrows the visible collection. Zero values disable a criterion.
type Filter struct {
	Search      string
	Cuisine     string
	Difficulty  string
	Tags        []string
	MaxCookTime int
}

// Active reports whether any criterion is set.
func (f Filter) Active() bool {
	return f.Search != "" || f.Cuisine != "" || f.Difficulty != "" || len(f.Tags) > 0 || f.MaxCookTime > 0
}

// Match reports whether r satisfies every criterion.
func (f Filter) Match(r model.Recipe) bool {
	if f.Search != "" && !matchesSearch(r, f.Search) {
		return false
	}
	if f.Cuisine != "" && r.Cuisine != f.Cuisine {
		return false
	}
	if f.Difficulty != "" && r.Difficulty != f.Difficulty {
		return false
	}
	if len(f.Tags) > 0 {
		found := false
		for _, t := range f.Tags {
			if r.HasTag(t) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.MaxCookTime > 0 {
		minutes, ok := LeadingInt(r.CookTime)
		if !ok || minutes > f.MaxCookTime {
			return false
		}
	}
	return true
}

func matchesSearch(r model.Recipe, term string) bool {
	term = strings.ToLower(term)
	if strings.Contains(strings.ToLower(r.Name), term) || strings.Contains(strings.ToLower(r.Cuisine), term) {
		return true
	}
	for _, t := range r.Tags {
		if strings.Contains(strings.ToLower(t), term) {
			return true
		}
	}
	return false
}

// LeadingInt parses the integer at the start of s ("25 min" -> 25).
func LeadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ApplyFilter returns the recipes matching f, preserving order.
func ApplyFilter(recipes []model.Recipe, f Filter) []model.Recipe {
	out := make([]model.Recipe, 0, len(recipes))
	for _, r := range recipes {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// ExportFile is the on-disk backup format.
type ExportFile struct {
	Recipes    []model.Recipe `json:"recipes"`
	ExportDate string         `json:"exportDate"`
	Version    string         `json:"version"`
}

// ImportResult counts the outcome of an import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Collection is the in-memory view of the store that the UI and API read from.
// Failed writes leave the view unchanged.
type Collection struct {
	store RecipeStore

	mu      sync.RWMutex
	recipes []model.Recipe
}

// NewCollection creates an empty view over store. Call Load before use.
func NewCollection(store RecipeStore) *Collection {
	return &Collection{store: store}
}

// Load reads the store. An empty store is seeded with the sample recipes; a
// storage failure shows the samples without persisting them.
func (c *Collection) Load(ctx context.Context) error {
	log := logger.FromContext(ctx)

	recipes, err := c.store.GetAll(ctx)
	if err != nil {
		log.Error("Failed to load recipes, showing samples", "error", err)
		c.Publish(model.SampleRecipes())
		return err
	}

	if len(recipes) == 0 {
		for _, r := range model.SampleRecipes() {
			if _, err := c.store.Add(ctx, r); err != nil {
				log.Warn("Failed to seed sample recipe", "name", r.Name, "error", err)
			}
		}
		if recipes, err = c.store.GetAll(ctx); err != nil {
			c.Publish(model.SampleRecipes())
			return err
		}
	}

	c.Publish(recipes)
	return nil
}

// Publish replaces the in-memory collection.
func (c *Collection) Publish(recipes []model.Recipe) {
	cp := make([]model.Recipe, len(recipes))
	for i, r := range recipes {
		cp[i] = r.Clone()
	}
	c.mu.Lock()
	c.recipes = cp
	c.mu.Unlock()
}

// Refresh reloads the collection from the store.
func (c *Collection) Refresh(ctx context.Context) error {
	recipes, err := c.store.GetAll(ctx)
	if err != nil {
		return err
	}
	c.Publish(recipes)
	return nil
}

// Recipes returns a copy of the collection.
func (c *Collection) Recipes() []model.Recipe {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Recipe, len(c.recipes))
	for i, r := range c.recipes {
		out[i] = r.Clone()
	}
	return out
}

// Filter returns the recipes matching f.
func (c *Collection) Filter(f Filter) []model.Recipe {
	return ApplyFilter(c.Recipes(), f)
}

// Get returns one recipe from the collection.
func (c *Collection) Get(id string) (model.Recipe, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.recipes {
		if r.ID == id {
			return r.Clone(), nil
		}
	}
	return model.Recipe{}, apperr.Newf(apperr.NotFound, "recipe %s not found", id)
}

// Cuisines lists the distinct cuisines in first-seen order.
func (c *Collection) Cuisines() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, r := range c.recipes {
		if !seen[r.Cuisine] {
			seen[r.Cuisine] = true
			out = append(out, r.Cuisine)
		}
	}
	return out
}

// Tags lists the distinct tags in first-seen order.
func (c *Collection) Tags() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, r := range c.recipes {
		for _, t := range r.Tags {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// SetRating updates the star rating of a recipe.
func (c *Collection) SetRating(ctx context.Context, id string, rating int) (model.Recipe, error) {
	if err := model.ValidateRating(rating); err != nil {
		return model.Recipe{}, apperr.Wrap(apperr.Invalid, err)
	}
	return c.modify(ctx, "rating", id, func(r *model.Recipe) { r.Rating = rating })
}

// SetNotes replaces the notes of a recipe.
func (c *Collection) SetNotes(ctx context.Context, id, notes string) (model.Recipe, error) {
	return c.modify(ctx, "notes", id, func(r *model.Recipe) { r.Notes = notes })
}

func (c *Collection) modify(ctx context.Context, what, id string, fn func(*model.Recipe)) (model.Recipe, error) {
	r, err := c.Get(id)
	if err != nil {
		return model.Recipe{}, err
	}
	fn(&r)

	updated, err := c.store.Update(ctx, r)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to update recipe", "id", id, "field", what, "error", err)
		return model.Recipe{}, err
	}

	c.mu.Lock()
	for i := range c.recipes {
		if c.recipes[i].ID == id {
			c.recipes[i] = updated.Clone()
		}
	}
	c.mu.Unlock()
	return updated, nil
}

// Delete removes a recipe from the store and the collection.
func (c *Collection) Delete(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, id); err != nil {
		logger.FromContext(ctx).Error("Failed to delete recipe", "id", id, "error", err)
		return err
	}

	c.mu.Lock()
	kept := c.recipes[:0:0]
	for _, r := range c.recipes {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	c.recipes = kept
	c.mu.Unlock()
	return nil
}

// Export serializes the whole store.
func (c *Collection) Export(ctx context.Context) ([]byte, error) {
	recipes, err := c.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipes: %w", err)
	}
	if recipes == nil {
		recipes = []model.Recipe{}
	}
	return json.MarshalIndent(ExportFile{
		Recipes:    recipes,
		ExportDate: time.Now().UTC().Format(time.RFC3339),
		Version:    ExportVersion,
	}, "", "  ")
}

// ExportFileName is the suggested name for an export taken at t.
func ExportFileName(t time.Time) string {
	return fmt.Sprintf("recipes-backup-%s.json", t.Format("2006-01-02"))
}

// ParseImport accepts an export envelope or a bare array of recipes and returns
// the undecoded elements. Only a payload of the wrong outer shape is an error.
func ParseImport(data []byte) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, apperr.New(apperr.InvalidImportFile)
	}

	switch data[0] {
	case '[':
		var recipes []json.RawMessage
		if err := json.Unmarshal(data, &recipes); err != nil {
			return nil, apperr.Wrap(apperr.InvalidImportFile, err)
		}
		return recipes, nil
	case '{':
		var env struct {
			Recipes *[]json.RawMessage `json:"recipes"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, apperr.Wrap(apperr.InvalidImportFile, err)
		}
		if env.Recipes == nil {
			return nil, apperr.Wrap(apperr.InvalidImportFile, fmt.Errorf("missing recipes field"))
		}
		return *env.Recipes, nil
	default:
		return nil, apperr.New(apperr.InvalidImportFile)
	}
}

// Import adds the recipes in data. In replace mode the store is emptied first.
// Individual recipes that fail to decode or validate are skipped.
func (c *Collection) Import(ctx context.Context, data []byte, mode string) (ImportResult, error) {
	var res ImportResult
	if mode == "" {
		mode = ImportMerge
	}
	if mode != ImportMerge && mode != ImportReplace {
		return res, apperr.Newf(apperr.Invalid, "unknown import mode %q", mode)
	}

	recipes, err := ParseImport(data)
	if err != nil {
		return res, err
	}

	log := logger.FromContext(ctx)
	if mode == ImportReplace {
		if err := c.store.DeleteAll(ctx); err != nil {
			return res, fmt.Errorf("failed to clear recipes: %w", err)
		}
	}

	for i, raw := range recipes {
		var r model.Recipe
		if err := json.Unmarshal(raw, &r); err != nil {
			res.Skipped++
			metrics.RecipesImported.WithLabelValues(metrics.ResultSkipped).Inc()
			log.Warn("Skipping undecodable recipe during import", "index", i, "error", err)
			continue
		}
		if _, err := c.store.Add(ctx, r); err != nil {
			res.Skipped++
			metrics.RecipesImported.WithLabelValues(metrics.ResultSkipped).Inc()
			log.Warn("Skipping recipe during import", "name", r.Name, "error", err)
			continue
		}
		res.Imported++
		metrics.RecipesImported.WithLabelValues(metrics.ResultAdded).Inc()
	}

	log.Info("Imported recipes", slog.String("mode", mode), slog.Int("imported", res.Imported), slog.Int("skipped", res.Skipped))
	return res, c.Refresh(ctx)
}
