package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/dormmanager/backend/internal/persistence"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply every SQL file in POSTGRES_MIGRATIONS_DIR against the PostgreSQL database.`,
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	pg, err := connectPostgres(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
		return oops.Code("MIGRATION_FAILED").With("dir", cfg.Postgres.MigrationsDir).Wrap(err)
	}

	cmd.Println("Migrations completed successfully")
	return nil
}
