// Package structured reads schema.org Recipe metadata and preview images from HTML pages.
package structured

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var ldJSONSelector = cascadia.MustCompile(`script[type="application/ld+json"]`)

// Recipe is the subset of a schema.org Recipe used to enrich extraction.
type Recipe struct {
	Name         string
	PrepTime     string
	CookTime     string
	TotalTime    string
	Yield        string
	Ingredients  []string
	Instructions []string
	Images       []string
}

// Result is everything found on a page. Recipe is nil when the page carries no
// Recipe metadata.
type Result struct {
	Recipe   *Recipe
	Block    string
	Image    string
	SiteName string
}

// Parse parses an HTML document.
func Parse(content string) (*html.Node, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return doc, nil
}

// Extract finds the first Recipe metadata block and the best preview image.
// It never fails: a page without metadata yields a Result with only Image set.
func Extract(doc *html.Node, pageURL string) Result {
	var res Result
	if doc == nil {
		res.Image = ResolveImage(nil, nil, pageURL)
		return res
	}

	res.Recipe = FindRecipe(doc)
	if res.Recipe != nil {
		res.Block = res.Recipe.Block()
	}
	res.Image = ResolveImage(doc, res.Recipe, pageURL)
	res.SiteName = metaContent(doc, siteNameSelector)
	return res
}

// FindRecipe returns the first Recipe node across all JSON-LD blocks.
func FindRecipe(doc *html.Node) *Recipe {
	for _, script := range ldJSONSelector.MatchAll(doc) {
		var v any
		if err := json.Unmarshal([]byte(textContent(script)), &v); err != nil {
			continue
		}
		if node := findRecipeNode(v); node != nil {
			return recipeFromNode(node)
		}
	}
	return nil
}

func findRecipeNode(v any) map[string]any {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if n := findRecipeNode(item); n != nil {
				return n
			}
		}
	case map[string]any:
		if isRecipeType(t["@type"]) {
			return t
		}
		if graph, ok := t["@graph"]; ok {
			if n := findRecipeNode(graph); n != nil {
				return n
			}
		}
		if main, ok := t["mainEntity"]; ok {
			return findRecipeNode(main)
		}
	}
	return nil
}

func isRecipeType(v any) bool {
	switch t := v.(type) {
	case string:
		return t == "Recipe"
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s == "Recipe" {
				return true
			}
		}
	}
	return false
}

func recipeFromNode(n map[string]any) *Recipe {
	return &Recipe{
		Name:         stringValue(n["name"]),
		PrepTime:     stringValue(n["prepTime"]),
		CookTime:     stringValue(n["cookTime"]),
		TotalTime:    stringValue(n["totalTime"]),
		Yield:        yieldValue(n["recipeYield"]),
		Ingredients:  stringList(n["recipeIngredient"]),
		Instructions: instructionSteps(n["recipeInstructions"]),
		Images:       imageList(n["image"]),
	}
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%g", t), ".0")
	}
	return ""
}

func yieldValue(v any) string {
	if list, ok := v.([]any); ok {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if s := stringValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return stringValue(v)
}

func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringValue(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// instructionSteps flattens plain strings, HowToStep objects and HowToSection lists in order.
func instructionSteps(v any) []string {
	var out []string
	var walk func(any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				out = append(out, s)
			}
		case []any:
			for _, item := range t {
				walk(item)
			}
		case map[string]any:
			if items, ok := t["itemListElement"]; ok {
				walk(items)
				return
			}
			if s := stringValue(t["text"]); s != "" {
				out = append(out, s)
			} else if s := stringValue(t["name"]); s != "" {
				out = append(out, s)
			}
		}
	}
	walk(v)
	return out
}

func imageList(v any) []string {
	switch t := v.(type) {
	case string:
		if t != "" {
			return []string{t}
		}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, imageList(item)...)
		}
		return out
	case map[string]any:
		if u := stringValue(t["url"]); u != "" {
			return []string{u}
		}
	}
	return nil
}

// Block renders the recipe as labelled text to prepend to page content.
func (r *Recipe) Block() string {
	var b strings.Builder
	b.WriteString("STRUCTURED RECIPE DATA (copy these values exactly; do not paraphrase, summarize or reorder):\n")
	writeField(&b, "Name", r.Name)
	writeField(&b, "Prep time", humanDuration(r.PrepTime))
	writeField(&b, "Cook time", humanDuration(r.CookTime))
	writeField(&b, "Total time", humanDuration(r.TotalTime))
	writeField(&b, "Yield", r.Yield)
	if len(r.Ingredients) > 0 {
		b.WriteString("Ingredients:\n")
		for _, ing := range r.Ingredients {
			b.WriteString("- " + ing + "\n")
		}
	}
	if len(r.Instructions) > 0 {
		b.WriteString("Instructions:\n")
		for i, step := range r.Instructions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
	}
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	b.WriteString(label + ": " + value + "\n")
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
