package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pageza/recipebox/internal/model"
	"github.com/pageza/recipebox/internal/scaler"
	"github.com/pageza/recipebox/internal/service"
)

const shortIDLen = 8

func newListCommand(ctx *commandContext) *cobra.Command {
	var f service.Filter
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recipes, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app) error {
				recipes := a.collection.Filter(f)
				if asJSON {
					return writeJSON(cmd, recipes)
				}
				out := cmd.OutOrStdout()
				if len(recipes) == 0 {
					fmt.Fprintln(out, "No recipes match.")
					return nil
				}
				fmt.Fprintln(out, renderRecipeTable(recipes))
				fmt.Fprintf(out, "%d of %d recipes\n", len(recipes), len(a.collection.Recipes()))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&f.Search, "search", "s", "", "Match name, cuisine, tags or ingredients")
	cmd.Flags().StringVar(&f.Cuisine, "cuisine", "", "Only this cuisine")
	cmd.Flags().StringVar(&f.Difficulty, "difficulty", "", "Only this difficulty (Easy, Medium, Hard)")
	cmd.Flags().StringSliceVar(&f.Tags, "tag", nil, "Require a tag (repeatable)")
	cmd.Flags().IntVar(&f.MaxCookTime, "max-cook-time", 0, "Maximum cook time in minutes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print recipes as JSON")
	return cmd
}

func renderRecipeTable(recipes []model.Recipe) string {
	rows := make([][]string, 0, len(recipes))
	for _, r := range recipes {
		rows = append(rows, []string{
			shortID(r.ID),
			r.Name,
			r.Cuisine,
			r.Difficulty,
			r.CookTime,
			stars(r.Rating),
			strings.Join(r.Tags, ", "),
		})
	}
	return renderTable(
		[]string{"ID", "Name", "Cuisine", "Difficulty", "Cook", "Rating", "Tags"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

func stars(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var servings int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a recipe, optionally scaled to a serving count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if servings < 0 {
				return fmt.Errorf("--servings must be positive")
			}
			return ctx.withApp(cmd.Context(), func(a *app) error {
				r, err := resolveID(a.collection, args[0])
				if err != nil {
					return err
				}
				if servings > 0 && servings != r.Servings {
					r.Ingredients = scaler.ScaleAll(r.Ingredients, r.Servings, servings)
					r.Servings = servings
				}
				if asJSON {
					return writeJSON(cmd, r)
				}
				printRecipe(cmd.OutOrStdout(), r)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&servings, "servings", 0, "Scale ingredients to this many servings")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the recipe as JSON")
	return cmd
}

func printRecipe(w io.Writer, r model.Recipe) {
	fmt.Fprintf(w, "%s\n", r.Name)
	fmt.Fprintf(w, "%s\n\n", strings.Repeat("=", len([]rune(r.Name))))
	fmt.Fprintf(w, "Cuisine:    %s\n", r.Cuisine)
	fmt.Fprintf(w, "Difficulty: %s\n", r.Difficulty)
	fmt.Fprintf(w, "Prep:       %s\n", r.PrepTime)
	fmt.Fprintf(w, "Cook:       %s\n", r.CookTime)
	fmt.Fprintf(w, "Servings:   %d\n", r.Servings)
	if r.Rating > 0 {
		fmt.Fprintf(w, "Rating:     %s\n", stars(r.Rating))
	}
	if len(r.Tags) > 0 {
		fmt.Fprintf(w, "Tags:       %s\n", strings.Join(r.Tags, ", "))
	}
	if r.Source != "" {
		fmt.Fprintf(w, "Source:     %s\n", r.Source)
	}
	if r.URL != "" {
		fmt.Fprintf(w, "URL:        %s\n", r.URL)
	}

	fmt.Fprintln(w, "\nIngredients")
	for _, ing := range r.Ingredients {
		fmt.Fprintf(w, "  - %s\n", ing)
	}
	fmt.Fprintln(w, "\nInstructions")
	for i, step := range r.Instructions {
		fmt.Fprintf(w, "  %d. %s\n", i+1, step)
	}
	if r.Notes != "" {
		fmt.Fprintf(w, "\nNotes\n  %s\n", r.Notes)
	}
}

func newRateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rate <id> <0-5>",
		Short: "Rate a recipe (0 clears the rating)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("rating must be a number from 0 to 5")
			}
			return ctx.withApp(cmd.Context(), func(a *app) error {
				r, err := resolveID(a.collection, args[0])
				if err != nil {
					return err
				}
				updated, err := a.collection.SetRating(cmd.Context(), r.ID, rating)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rated %q %d/5\n", updated.Name, updated.Rating)
				return nil
			})
		},
	}
}

func newNoteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "note <id> [text...]",
		Short: "Set the personal notes on a recipe (no text clears them)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			notes := strings.Join(args[1:], " ")
			return ctx.withApp(cmd.Context(), func(a *app) error {
				r, err := resolveID(a.collection, args[0])
				if err != nil {
					return err
				}
				updated, err := a.collection.SetNotes(cmd.Context(), r.ID, notes)
				if err != nil {
					return err
				}
				if updated.Notes == "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared notes on %q\n", updated.Name)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Saved notes on %q\n", updated.Name)
				}
				return nil
			})
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a recipe",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app) error {
				r, err := resolveID(a.collection, args[0])
				if err != nil {
					return err
				}
				if err := a.collection.Delete(cmd.Context(), r.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", r.Name)
				return nil
			})
		},
	}
}
