package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pageza/recipebox/internal/fetch"
	"github.com/pageza/recipebox/internal/photo"
	"github.com/pageza/recipebox/internal/service"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a recipe from a web page or photo",
	}
	cmd.AddCommand(newAddURLCommand(ctx))
	cmd.AddCommand(newAddPhotoCommand(ctx))
	return cmd
}

func newAddURLCommand(ctx *commandContext) *cobra.Command {
	var class string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "url <page-url>",
		Short: "Extract a recipe from a web page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cc fetch.ClientClass
			if class != "" {
				parsed, err := fetch.ParseClientClass(class)
				if err != nil {
					return err
				}
				cc = parsed
			}
			return ctx.withApp(cmd.Context(), func(a *app) error {
				outcome, err := a.extractor(cmd.Context()).ExtractFromURL(cmd.Context(), args[0], cc)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, outcome)
				}
				printAdded(cmd.OutOrStdout(), outcome)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&class, "client-class", "", "Fetch as desktop or constrained (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func newAddPhotoCommand(ctx *commandContext) *cobra.Command {
	var useCamera, fallback, asJSON bool

	cmd := &cobra.Command{
		Use:   "photo [image-file]",
		Short: "Extract a recipe from a photo or a camera capture",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if useCamera == (len(args) == 1) {
				return fmt.Errorf("pass an image file or --camera")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			input := newTerminalInput(cmd.InOrStdin())
			var img photo.Image
			if useCamera {
				img, err = captureFromCamera(cmd.Context(), cfg.Camera.Command, input, cmd.ErrOrStderr())
			} else {
				img, err = photo.FromFile(args[0])
			}
			if err != nil {
				return err
			}

			decider := newFallbackDecider(input, cmd.ErrOrStderr(), fallback, cfg.FallbackTimeout())
			return ctx.withApp(cmd.Context(), func(a *app) error {
				outcome, err := a.extractor(cmd.Context()).ExtractFromPhoto(cmd.Context(), img, decider)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, outcome)
				}
				printAdded(cmd.OutOrStdout(), outcome)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&useCamera, "camera", false, "Capture the photo with the configured camera command")
	cmd.Flags().BoolVar(&fallback, "fallback", false, "Use offline text recognition without asking if the model fails")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

// captureFromCamera waits for Enter on a terminal before grabbing the frame.
func captureFromCamera(ctx context.Context, command string, in *terminalInput, out io.Writer) (photo.Image, error) {
	return photo.Capture(ctx, photo.CommandCamera{Command: command}, photo.DefaultConstraints, cameraTrigger(ctx, in, out))
}

// cameraTrigger fires once Enter is pressed, or at once when stdin is not a
// terminal. It is closed, cancelling the capture, if input ends first.
func cameraTrigger(ctx context.Context, in *terminalInput, out io.Writer) <-chan struct{} {
	trigger := make(chan struct{}, 1)
	if !in.interactive {
		trigger <- struct{}{}
		return trigger
	}
	fmt.Fprint(out, "Press Enter to capture... ")
	go func() {
		if _, err := in.ReadLine(ctx); err != nil {
			close(trigger)
			return
		}
		trigger <- struct{}{}
	}()
	return trigger
}

func printAdded(w io.Writer, outcome service.Outcome) {
	r := outcome.Recipe
	fmt.Fprintf(w, "Added %q (%s)\n", r.Name, r.ID)
	fmt.Fprintf(w, "  %s · %s · %d servings · %d ingredients · %d steps\n",
		r.Cuisine, r.Difficulty, r.Servings, len(r.Ingredients), len(r.Instructions))
	if outcome.UsedFallback {
		fmt.Fprintln(w, "  Read with offline text recognition; review the ingredients and steps.")
	}
	states := make([]string, len(outcome.Trace))
	for i, s := range outcome.Trace {
		states[i] = string(s)
	}
	fmt.Fprintf(w, "  path: %s\n", strings.Join(states, " > "))
}
