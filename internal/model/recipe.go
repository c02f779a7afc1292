package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringArray is a custom type for storing string lists as JSON text
type StringArray []string

// Value implements the driver.Valuer interface
func (a StringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported type for StringArray: %T", value)
	}

	return json.Unmarshal(bytes, a)
}

// Extraction methods recorded on a recipe.
const (
	MethodURL   = "url"
	MethodPhoto = "photo"
	MethodOCR   = "ocr"
)

// Difficulty levels.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// CuisineOther is the catch-all cuisine.
const CuisineOther = "Other"

// Cuisines lists the accepted cuisine values.
var Cuisines = []string{
	"Italian", "Asian", "Mediterranean", "Mexican", "French",
	"American", "Indian", "Middle Eastern", CuisineOther,
}

// Difficulties lists the accepted difficulty values.
var Difficulties = []string{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Recipe is a single entry in the collection.
type Recipe struct {
	ID               string      `gorm:"primaryKey;size:36" json:"id"`
	Name             string      `gorm:"size:255;not null" json:"name" validate:"required"`
	Source           string      `gorm:"size:255" json:"source"`
	URL              string      `gorm:"size:2048" json:"url,omitempty" validate:"omitempty,url"`
	Image            string      `gorm:"size:2048" json:"image"`
	Cuisine          string      `gorm:"size:50;index" json:"cuisine" validate:"required,cuisine"`
	Tags             StringArray `gorm:"type:text;not null;default:'[]';index" json:"tags"`
	PrepTime         string      `gorm:"size:50" json:"prepTime"`
	CookTime         string      `gorm:"size:50" json:"cookTime"`
	Servings         int         `gorm:"not null" json:"servings" validate:"gt=0"`
	Difficulty       string      `gorm:"size:10" json:"difficulty" validate:"oneof=Easy Medium Hard"`
	Rating           int         `gorm:"not null;default:0" json:"rating" validate:"gte=0,lte=5"`
	Ingredients      StringArray `gorm:"type:text;not null;default:'[]'" json:"ingredients"`
	Instructions     StringArray `gorm:"type:text;not null;default:'[]'" json:"instructions"`
	Notes            string      `gorm:"type:text" json:"notes,omitempty"`
	ExtractionMethod string      `gorm:"size:10" json:"extractionMethod,omitempty" validate:"omitempty,oneof=url photo ocr"`
	DateAdded        time.Time   `json:"dateAdded"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// Clone returns a deep copy of r.
func (r Recipe) Clone() Recipe {
	c := r
	c.Tags = append(StringArray{}, r.Tags...)
	c.Ingredients = append(StringArray{}, r.Ingredients...)
	c.Instructions = append(StringArray{}, r.Instructions...)
	return c
}

// HasTag reports whether the recipe carries tag.
func (r Recipe) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
