package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"assignhelper/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the catalog and assignment schema if missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := loadConfig()
		if strings.EqualFold(cfg.CatalogBackend, "sqlite") {
			rt, err := openRuntime(ctx, cfg)
			if err != nil {
				return err
			}
			rt.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "sqlite catalog ready at %s\n", cfg.SQLitePath)
			return nil
		}
		db, err := storage.NewDB(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := storage.Migrate(ctx, db, cfg.EmbedDim); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "postgres schema ready (embedding dim %d)\n", cfg.EmbedDim)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
