package textparse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pageza/recipebox/internal/model"
)

const cardText = `Recipe: Grandma's Pancakes
Serves 6
Prep time: 10 min
Cook time 1 hour

Ingredients
- 2 cups flour
• 1 tbsp sugar
1. 2 eggs
a pinch of salt
milk 300 ml
Some chatter about the family

Method
1. Whisk the flour and sugar together.
2) Beat in the eggs and milk until smooth.
Rest.
3. Fry ladlefuls in a hot buttered pan.`

func TestParse(t *testing.T) {
	r := Parse(cardText)

	assert.Equal(t, "Grandma's Pancakes", r.Name)
	assert.Equal(t, 6, r.Servings)
	assert.Equal(t, "10 min", r.PrepTime)
	assert.Equal(t, "1 hour", r.CookTime)
	assert.Equal(t, model.StringArray{"2 cups flour", "1 tbsp sugar", "2 eggs", "milk 300 ml"}, r.Ingredients)
	assert.Equal(t, model.StringArray{
		"Whisk the flour and sugar together.",
		"Beat in the eggs and milk until smooth.",
		"Fry ladlefuls in a hot buttered pan.",
	}, r.Instructions)

	assert.Equal(t, model.CuisineOther, r.Cuisine)
	assert.Equal(t, model.DifficultyMedium, r.Difficulty)
	assert.Equal(t, 0, r.Rating)
	assert.Empty(t, r.Tags)
	assert.Equal(t, OCRSource, r.Source)
	assert.Equal(t, model.MethodOCR, r.ExtractionMethod)
	assert.Equal(t, OCRNotes, r.Notes)
}

func TestParse_Defaults(t *testing.T) {
	t.Run("empty text", func(t *testing.T) {
		r := Parse("")
		assert.Equal(t, UntitledRecipe, r.Name)
		assert.Equal(t, DefaultServings, r.Servings)
		assert.Equal(t, DefaultPrepTime, r.PrepTime)
		assert.Equal(t, DefaultCookTime, r.CookTime)
		assert.Equal(t, model.StringArray{MissingIngredients}, r.Ingredients)
		assert.Equal(t, model.StringArray{MissingInstructions}, r.Instructions)
	})

	t.Run("first line as name", func(t *testing.T) {
		r := Parse("\n\n  Tomato Soup  \nsome text")
		assert.Equal(t, "Tomato Soup", r.Name)
	})

	t.Run("zero servings falls back", func(t *testing.T) {
		r := Parse("Servings: 0")
		assert.Equal(t, DefaultServings, r.Servings)
	})

	t.Run("case insensitive headers", func(t *testing.T) {
		r := Parse("INGREDIENTS:\n3 oz butter\nDIRECTIONS:\nMelt the butter slowly.")
		assert.Equal(t, model.StringArray{"3 oz butter"}, r.Ingredients)
		assert.Equal(t, model.StringArray{"Melt the butter slowly."}, r.Instructions)
	})
}

func TestParse_Idempotent(t *testing.T) {
	for _, text := range []string{cardText, "", "Recipe:\nIngredients\n1 egg"} {
		assert.Equal(t, Parse(text), Parse(text))
	}
}

func TestParse_ResultValidates(t *testing.T) {
	r := Parse(cardText)
	model.Normalize(&r)
	assert.NoError(t, model.Validate(&r))
}
