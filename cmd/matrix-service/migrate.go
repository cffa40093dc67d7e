package main

import (
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/migrate"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db := postgres.MustInitDB(cfg)
			return migrate.RunMigrations(db, cfg.MatrixDB.MigrationsPath)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db := postgres.MustInitDB(cfg)
			return migrate.RollbackMigrations(db, cfg.MatrixDB.MigrationsPath, steps)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)
	return cmd
}
