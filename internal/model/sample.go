package model

import (
	"fmt"
	"math/rand"
)

// PlaceholderImage is used when no recipe image can be resolved.
const PlaceholderImage = "https://images.unsplash.com/photo-1546549032-9571cd6b27df?w=600&h=400&fit=crop&auto=format&q=80"

// PhotoPlaceholderImage returns a fresh placeholder for photo-derived recipes.
func PhotoPlaceholderImage() string {
	return fmt.Sprintf("https://images.unsplash.com/photo-%d-%d?w=600&h=400&fit=crop&auto=format&q=80",
		rand.Int63n(1_000_000_000)+1_500_000_000_000, rand.Intn(900_000)+100_000)
}

// SampleRecipes returns the built-in collection shown on first run and when storage is unavailable.
func SampleRecipes() []Recipe {
	return []Recipe{
		{
			ID:         "1",
			Name:       "Roasted Aubergine and Onion Salad",
			Source:     "Ottolenghi",
			URL:        "https://ottolenghi.co.uk/pages/recipes/roasted-aubergine-onion-salad",
			Image:      "https://images.unsplash.com/photo-1565299624946-b28f40a0ca4b?w=400&h=300&fit=crop",
			Cuisine:    "Middle Eastern",
			Tags:       StringArray{"Vegetarian", "Healthy", "Meal Prep"},
			PrepTime:   "10 min",
			CookTime:   "30 min",
			Servings:   4,
			Difficulty: DifficultyEasy,
			Rating:     5,
			Ingredients: StringArray{
				"2 aubergines (700g), cut into 2½cm rounds",
				"2 onions (280g), cut into 1cm thick rounds",
				"140ml olive oil",
				"1 garlic clove, crushed",
				"1 tbsp red wine vinegar",
				"10g soft herbs (basil, parsley, or mint)",
				"1/2 tsp fine sea salt",
				"1/4 tsp black pepper",
			},
			Instructions: StringArray{
				"Preheat oven to 220°C (200°C fan)",
				"Generously brush aubergine and onion rounds with olive oil",
				"Season well with salt and pepper",
				"Roast for 25-30 minutes until soft and golden",
				"Add garlic, vinegar, and herbs while warm",
				"Allow to cool - flavors improve with time",
			},
		},
	}
}
