package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pageza/recipebox/internal/backup"
	"github.com/pageza/recipebox/internal/service"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var output string
	var useS3 bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the collection to a backup file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app) error {
				data, err := a.collection.Export(cmd.Context())
				if err != nil {
					return err
				}

				switch output {
				case "-":
					_, err := cmd.OutOrStdout().Write(append(data, '\n'))
					return err
				case "":
				default:
					if err := os.WriteFile(output, data, 0o600); err != nil {
						return fmt.Errorf("write export: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Exported %d recipes to %s\n", len(a.collection.Recipes()), output)
					return nil
				}

				target, err := a.backupTarget(cmd.Context(), useS3)
				if err != nil {
					return err
				}
				loc, err := target.Save(cmd.Context(), service.ExportFileName(time.Now()), data)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d recipes to %s\n", len(a.collection.Recipes()), loc)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file, or - for stdout, instead of the backup directory")
	cmd.Flags().BoolVar(&useS3, "s3", false, "Upload to the configured S3 bucket")
	return cmd
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var mode string
	var useS3 bool

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import recipes from an export file (default: the latest backup)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app) error {
				var data []byte
				var err error
				switch {
				case len(args) == 1 && args[0] == "-":
					data, err = io.ReadAll(cmd.InOrStdin())
				case len(args) == 1 && !useS3:
					data, err = os.ReadFile(args[0])
				default:
					data, err = loadBackup(cmd, a, useS3, args)
				}
				if err != nil {
					return err
				}

				res, err := a.collection.Import(cmd.Context(), data, mode)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d recipes", res.Imported)
				if res.Skipped > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), " (%d skipped)", res.Skipped)
				}
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&mode, "mode", service.ImportMerge, "merge adds to the collection, replace empties it first")
	cmd.Flags().BoolVar(&useS3, "s3", false, "Read from the configured S3 bucket")
	return cmd
}

// loadBackup reads the named backup, or the latest one, from the backup target.
func loadBackup(cmd *cobra.Command, a *app, useS3 bool, args []string) ([]byte, error) {
	target, err := a.backupTarget(cmd.Context(), useS3)
	if err != nil {
		return nil, err
	}
	name := ""
	if len(args) == 1 {
		name = args[0]
	} else {
		name, err = target.Latest(cmd.Context())
		if errors.Is(err, backup.ErrNoBackups) {
			return nil, fmt.Errorf("no backups to import; pass a file or run export first")
		}
		if err != nil {
			return nil, err
		}
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Importing %s\n", name)
	return target.Load(cmd.Context(), name)
}
