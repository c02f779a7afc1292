package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pageza/recipebox/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration and credential utilities",
	}
	cmd.AddCommand(newConfigShowCommand(ctx))
	cmd.AddCommand(newConfigSetKeyCommand(ctx))
	cmd.AddCommand(newConfigClearKeyCommand(ctx))
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			key := "not set"
			if k := cfg.NewKeySource().APIKey(); k != "" {
				key = maskKey(k)
			}
			s3 := "disabled"
			if cfg.Backup.S3Bucket != "" {
				s3 = "s3://" + cfg.Backup.S3Bucket + "/" + strings.TrimPrefix(cfg.Backup.S3Prefix, "/")
			}
			cache := fmt.Sprintf("in-process (%d pages)", cfg.Fetch.CacheSize)
			if cfg.Storage.RedisURL != "" {
				cache = "redis"
			}

			rows := [][]string{
				{"Environment", string(config.GetEnvironment())},
				{"Database", cfg.Storage.DBPath},
				{"API address", cfg.ServerAddr()},
				{"Model", cfg.Gemini.Model},
				{"API key", key},
				{"Client class", cfg.Fetch.ClientClass},
				{"Page cache", cache},
				{"OCR", cfg.OCR.TesseractPath + " (" + cfg.OCR.Language + ")"},
				{"S3 backups", s3},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Setting", "Value"}, rows, nil))
			return nil
		},
	}
}

func newConfigSetKeyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-key [api-key]",
		Short: "Save the Gemini API key (reads stdin when no argument is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				if stdinIsTerminal(cmd.InOrStdin()) {
					fmt.Fprint(cmd.ErrOrStderr(), "Gemini API key: ")
				}
				line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				key = line
			}
			if err := cfg.NewKeySource().Save(key); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key saved")
			return nil
		},
	}
}

func newConfigClearKeyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-key",
		Short: "Remove the saved Gemini API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.NewKeySource().Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key removed")
			return nil
		},
	}
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
