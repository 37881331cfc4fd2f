package main

import (
	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-scheduling-core/pkg/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := loadEnv()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			db, err := database.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			version, err := database.MigrationVersion(cmd.Context(), db)
			if err != nil {
				return err
			}
			return writeJSON(map[string]any{"driver": cfg.Database.Driver, "version": version})
		},
	}
}
