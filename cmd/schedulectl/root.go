package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduling-core/internal/app"
	"github.com/noah-isme/sma-scheduling-core/pkg/config"
	"github.com/noah-isme/sma-scheduling-core/pkg/logger"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "schedulectl",
		Short:        "Maintenance commands for the scheduling core",
		SilenceUsage: true,
	}
	cmd.AddCommand(newMigrateCmd(), newAuditCmd(), newDriftCmd(), newTimetableCmd())
	return cmd
}

// loadEnv reads configuration and builds the logger shared by every command.
func loadEnv() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logr, nil
}

func openCore(cmd *cobra.Command) (*app.App, error) {
	cfg, logr, err := loadEnv()
	if err != nil {
		return nil, err
	}
	cfg.Redis.Enabled = false
	return app.New(cmd.Context(), cfg, logr)
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
