package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dormmanager/backend/internal/config"
	"github.com/dormmanager/backend/internal/observability"
)

// Global flags available to all subcommands.
var logLevel string

// NewRootCmd creates the root command for the backend CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dormmanager",
		Short:         "Dorm manager backend",
		Long:          `Dorm manager backend: account registration, login and session management.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewWorkerCmd())

	return cmd
}

// bootstrap loads configuration and builds the logger.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Logger.Level = logLevel
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
