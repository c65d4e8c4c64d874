package main

import (
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/Astemirdum/library-management/library/config"
	"github.com/Astemirdum/library-management/library/migrations"
	"github.com/Astemirdum/library-management/pkg/postgres"
)

type migrateFunc func(pool *pgxpool.Pool, files fs.FS) error

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		migrateCmd("up", "Apply all pending migrations", postgres.MigrateUp),
		migrateCmd("down", "Roll back the latest migration", postgres.MigrateDown),
		migrateCmd("status", "Print the migration status", postgres.MigrateStatus),
	)
	return cmd
}

func migrateCmd(use, short string, run migrateFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewConfig()
			if err != nil {
				return err
			}
			pool, err := postgres.NewPool(cmd.Context(), &cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()
			return run(pool, migrations.MigrationFiles)
		},
	}
}
