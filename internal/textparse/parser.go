// Package textparse turns loosely formatted recipe text, typically OCR output,
// into a best-effort recipe record.
package textparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pageza/recipebox/internal/model"
)

const (
	UntitledRecipe       = "Untitled Recipe"
	MissingIngredients   = "Could not extract ingredients - please review and edit the recipe"
	MissingInstructions  = "Could not extract instructions - please review and edit the recipe"
	OCRNotes             = "Extracted via OCR - please review for accuracy"
	OCRSource            = "OCR Scan"
	DefaultServings      = 4
	DefaultPrepTime      = "15 min"
	DefaultCookTime      = "30 min"
	minInstructionLength = 10
)

var (
	nameLabel          = regexp.MustCompile(`(?i)recipe:\s*(.*)`)
	ingredientsHeader  = regexp.MustCompile(`(?i)^ingredients\b`)
	instructionsHeader = regexp.MustCompile(`(?i)^(instructions|directions|method|steps)\b`)
	listMarker         = regexp.MustCompile(`^(?:[-*•·]+|\d+[.)])\s*`)
	ordinalMarker      = regexp.MustCompile(`^\d+[.)]\s*`)
	startsLikeItem     = regexp.MustCompile(`^[\d\-*•·]`)
	unitToken          = regexp.MustCompile(`(?i)\b(cups?|tbsp|tsp|oz|lb|g|kg|ml|l)\b`)
	servingsPattern    = regexp.MustCompile(`(?i)(?:serves|servings)[^\d\n]*(\d+)`)
	prepTimePattern    = regexp.MustCompile(`(?i)prep\s*time[^\d\n]*(\d+)\s*(min|hour)`)
	cookTimePattern    = regexp.MustCompile(`(?i)cook\s*time[^\d\n]*(\d+)\s*(min|hour)`)
)

// Parse extracts a recipe from raw text. It never fails; anything it cannot
// find falls back to a default or a reviewable placeholder entry.
func Parse(text string) model.Recipe {
	lines := splitLines(text)

	r := model.Recipe{
		Name:             parseName(lines),
		Source:           OCRSource,
		Cuisine:          model.CuisineOther,
		Difficulty:       model.DifficultyMedium,
		Rating:           0,
		Tags:             model.StringArray{},
		Servings:         parseServings(text),
		PrepTime:         parseTime(prepTimePattern, text, DefaultPrepTime),
		CookTime:         parseTime(cookTimePattern, text, DefaultCookTime),
		Ingredients:      parseIngredients(lines),
		Instructions:     parseInstructions(lines),
		Notes:            OCRNotes,
		ExtractionMethod: model.MethodOCR,
	}

	if len(r.Ingredients) == 0 {
		r.Ingredients = model.StringArray{MissingIngredients}
	}
	if len(r.Instructions) == 0 {
		r.Instructions = model.StringArray{MissingInstructions}
	}
	return r
}

func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, strings.TrimSpace(l))
	}
	return lines
}

func parseName(lines []string) string {
	for _, l := range lines {
		if m := nameLabel.FindStringSubmatch(l); m != nil {
			if name := strings.TrimSpace(m[1]); name != "" {
				return name
			}
		}
	}
	for _, l := range lines {
		if l != "" {
			return l
		}
	}
	return UntitledRecipe
}

func parseIngredients(lines []string) model.StringArray {
	start := indexOf(lines, ingredientsHeader, 0)
	if start < 0 {
		return nil
	}

	var out model.StringArray
	for _, l := range lines[start+1:] {
		if instructionsHeader.MatchString(l) {
			break
		}
		if l == "" {
			continue
		}
		if !startsLikeItem.MatchString(l) && !unitToken.MatchString(l) {
			continue
		}
		if item := strings.TrimSpace(listMarker.ReplaceAllString(l, "")); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseInstructions(lines []string) model.StringArray {
	start := indexOf(lines, instructionsHeader, 0)
	if start < 0 {
		return nil
	}

	var out model.StringArray
	for _, l := range lines[start+1:] {
		if len(l) <= minInstructionLength {
			continue
		}
		out = append(out, strings.TrimSpace(ordinalMarker.ReplaceAllString(l, "")))
	}
	return out
}

func parseServings(text string) int {
	m := servingsPattern.FindStringSubmatch(text)
	if m == nil {
		return DefaultServings
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return DefaultServings
	}
	return n
}

func parseTime(pattern *regexp.Regexp, text, fallback string) string {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return fallback
	}
	return m[1] + " " + strings.ToLower(m[2])
}

func indexOf(lines []string, pattern *regexp.Regexp, from int) int {
	for i := from; i < len(lines); i++ {
		if pattern.MatchString(lines[i]) {
			return i
		}
	}
	return -1
}
