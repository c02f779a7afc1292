// Package scaler rewrites ingredient quantities for a different serving count.
package scaler

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var quantityPattern = regexp.MustCompile(`\d+(?:\.\d+)?(?:/\d+)?`)

const epsilon = 1e-9

var fractions = []struct {
	value float64
	text  string
}{
	{0.5, "1/2"},
	{0.25, "1/4"},
	{0.75, "3/4"},
	{1.0 / 3.0, "1/3"},
	{2.0 / 3.0, "2/3"},
}

// Scale multiplies every numeric token in ingredient by target/original.
// Text that is not a quantity is preserved. Equal or non-positive serving counts
// return the ingredient unchanged.
func Scale(ingredient string, original, target int) string {
	if original == target || original <= 0 || target <= 0 {
		return ingredient
	}
	factor := float64(target) / float64(original)

	return quantityPattern.ReplaceAllStringFunc(ingredient, func(tok string) string {
		v, ok := parseQuantity(tok)
		if !ok {
			return tok
		}
		return Format(v * factor)
	})
}

// ScaleAll scales each ingredient in order.
func ScaleAll(ingredients []string, original, target int) []string {
	out := make([]string, len(ingredients))
	for i, ing := range ingredients {
		out[i] = Scale(ing, original, target)
	}
	return out
}

func parseQuantity(tok string) (float64, bool) {
	if num, den, ok := strings.Cut(tok, "/"); ok {
		n, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, false
		}
		d, err := strconv.ParseFloat(den, 64)
		if err != nil || d == 0 {
			return 0, false
		}
		return n / d, true
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Format renders a scaled quantity: common fractions below one, integers when
// whole, otherwise one decimal place (two below one).
func Format(v float64) string {
	if v > 0 && v < 1 {
		for _, f := range fractions {
			if math.Abs(v-f.value) < epsilon {
				return f.text
			}
		}
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
	if math.Abs(v-math.Round(v)) < epsilon {
		return strconv.FormatFloat(math.Round(v), 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
