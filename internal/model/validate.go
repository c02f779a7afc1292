package model

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
	titleCaser   = cases.Title(language.English)
)

// Validator returns the shared validator with the recipe rules registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("cuisine", func(fl validator.FieldLevel) bool {
			return IsCuisine(fl.Field().String())
		})
	})
	return validate
}

// IsCuisine reports whether c is one of the accepted cuisines.
func IsCuisine(c string) bool {
	for _, v := range Cuisines {
		if v == c {
			return true
		}
	}
	return false
}

// IsDifficulty reports whether d is one of the accepted difficulty levels.
func IsDifficulty(d string) bool {
	for _, v := range Difficulties {
		if v == d {
			return true
		}
	}
	return false
}

// CanonicalCuisine maps free-form casing ("middle eastern") to the accepted value.
// Unknown cuisines are returned as-is so validation can reject them.
func CanonicalCuisine(c string) string {
	c = strings.TrimSpace(c)
	if c == "" {
		return c
	}
	titled := titleCaser.String(strings.ToLower(c))
	if IsCuisine(titled) {
		return titled
	}
	return c
}

// CanonicalDifficulty maps free-form casing to Easy, Medium or Hard.
func CanonicalDifficulty(d string) string {
	d = strings.TrimSpace(d)
	titled := titleCaser.String(strings.ToLower(d))
	if IsDifficulty(titled) {
		return titled
	}
	return d
}

// Normalize trims text fields, canonicalizes enum casing and deduplicates tags.
func Normalize(r *Recipe) {
	r.Name = strings.TrimSpace(r.Name)
	r.Source = strings.TrimSpace(r.Source)
	r.URL = strings.TrimSpace(r.URL)
	r.Image = strings.TrimSpace(r.Image)
	r.PrepTime = strings.TrimSpace(r.PrepTime)
	r.CookTime = strings.TrimSpace(r.CookTime)
	r.Cuisine = CanonicalCuisine(r.Cuisine)
	r.Difficulty = CanonicalDifficulty(r.Difficulty)

	seen := make(map[string]bool, len(r.Tags))
	tags := StringArray{}
	for _, t := range r.Tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	r.Tags = tags

	if r.Ingredients == nil {
		r.Ingredients = StringArray{}
	}
	if r.Instructions == nil {
		r.Instructions = StringArray{}
	}
}

// Validate checks the record invariants.
func Validate(r *Recipe) error {
	if err := Validator().Struct(r); err != nil {
		return fmt.Errorf("invalid recipe: %w", err)
	}
	return nil
}

// ValidateRating checks that a rating is within 0..5.
func ValidateRating(rating int) error {
	if err := Validator().Var(rating, "gte=0,lte=5"); err != nil {
		return fmt.Errorf("rating must be between 0 and 5: %w", err)
	}
	return nil
}
