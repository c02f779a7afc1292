package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pageza/recipebox/internal/api"
	"github.com/pageza/recipebox/internal/database"
	"github.com/pageza/recipebox/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var host, port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local recipe API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port != "" {
				cfg.Server.Port = port
			}

			return ctx.withApp(cmd.Context(), func(a *app) error {
				target, err := a.backupTarget(cmd.Context(), cfg.Backup.S3Bucket != "")
				if err != nil {
					slog.Warn("S3 backups unavailable, using local directory", "error", err)
					target, _ = a.backupTarget(cmd.Context(), false)
				}

				extractor := a.extractor(cmd.Context())
				srv := server.New(cfg, api.Deps{
					Collection:     a.collection,
					Extractor:      extractor,
					Backup:         target,
					Health:         func(hc context.Context) error { return database.HealthCheck(hc, a.db) },
					ExtractLimiter: a.extractionLimiter(),
				})
				slog.Info("Starting recipe API", "addr", cfg.ServerAddr(), "db", cfg.Storage.DBPath)
				return srv.Start(cmd.Context())
			})
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (overrides config)")
	cmd.Flags().StringVar(&port, "port", "", "Listen port (overrides config)")
	return cmd
}
