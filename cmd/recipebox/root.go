package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	root := &cobra.Command{
		Use:           "recipebox",
		Short:         "Collect recipes from web pages and photos",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	ctx := newCommandContext(&configFlag)

	root.AddCommand(newServeCommand(ctx))
	root.AddCommand(newAddCommand(ctx))
	root.AddCommand(newListCommand(ctx))
	root.AddCommand(newShowCommand(ctx))
	root.AddCommand(newRateCommand(ctx))
	root.AddCommand(newNoteCommand(ctx))
	root.AddCommand(newDeleteCommand(ctx))
	root.AddCommand(newExportCommand(ctx))
	root.AddCommand(newImportCommand(ctx))
	root.AddCommand(newConfigCommand(ctx))

	return root
}
