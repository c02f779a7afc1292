package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/recipebox/internal/apperr"
	"github.com/pageza/recipebox/internal/middleware"
	"github.com/pageza/recipebox/internal/model"
	"github.com/pageza/recipebox/internal/scaler"
	"github.com/pageza/recipebox/internal/service"
)

type RecipeHandler struct {
	collection *service.Collection
}

func NewRecipeHandler(collection *service.Collection) *RecipeHandler {
	return &RecipeHandler{collection: collection}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	recipes := router.Group("/recipes")
	{
		recipes.GET("", h.ListRecipes)
		recipes.GET("/:id", h.GetRecipe)
		recipes.DELETE("/:id", h.DeleteRecipe)
		recipes.PUT("/:id/rating", h.UpdateRating)
		recipes.PUT("/:id/notes", h.UpdateNotes)
	}
}

// ListRecipesResponse carries the filtered recipes plus the option lists for
// the filter controls.
type ListRecipesResponse struct {
	Recipes  []model.Recipe `json:"recipes"`
	Total    int            `json:"total"`
	Cuisines []string       `json:"cuisines"`
	Tags     []string       `json:"tags"`
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	filter := service.Filter{
		Search:     strings.TrimSpace(c.Query("q")),
		Cuisine:    c.Query("cuisine"),
		Difficulty: c.Query("difficulty"),
	}
	if tags := c.Query("tags"); tags != "" {
		for _, t := range strings.Split(tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				filter.Tags = append(filter.Tags, t)
			}
		}
	}
	if v := c.Query("maxCookTime"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "maxCookTime must be a number of minutes"})
			return
		}
		filter.MaxCookTime = n
	}

	c.JSON(http.StatusOK, ListRecipesResponse{
		Recipes:  h.collection.Filter(filter),
		Total:    len(h.collection.Recipes()),
		Cuisines: h.collection.Cuisines(),
		Tags:     h.collection.Tags(),
	})
}

// GetRecipe returns one recipe. With ?servings=N the ingredient quantities
// are scaled for display; the stored recipe is unchanged.
func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	recipe, err := h.collection.Get(c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	if s := c.Query("servings"); s != "" {
		target, err := strconv.Atoi(s)
		if err != nil || target < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "servings must be a positive number"})
			return
		}
		recipe.Ingredients = scaler.ScaleAll(recipe.Ingredients, recipe.Servings, target)
		recipe.Servings = target
	}

	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	if err := h.collection.Delete(c.Request.Context(), c.Param("id")); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type ratingRequest struct {
	Rating *int `json:"rating" binding:"required"`
}

func (h *RecipeHandler) UpdateRating(c *gin.Context) {
	var req ratingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recipe, err := h.collection.SetRating(c.Request.Context(), c.Param("id"), *req.Rating)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func (h *RecipeHandler) UpdateNotes(c *gin.Context) {
	var req notesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, apperr.Wrap(apperr.Invalid, err))
		return
	}

	recipe, err := h.collection.SetNotes(c.Request.Context(), c.Param("id"), req.Notes)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}
