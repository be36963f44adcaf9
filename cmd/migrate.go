package cmd

import (
	"closer-backend/internal/config"
	"closer-backend/internal/database"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rollbackSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the Postgres schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadPostgresConfig()
		if err != nil {
			return err
		}
		if err := database.RunMigrations(cfg.Database.DSN()); err != nil {
			return err
		}
		log.Info().Msg("Migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadPostgresConfig()
		if err != nil {
			return err
		}
		if err := database.RollbackMigrations(cfg.Database.DSN(), rollbackSteps); err != nil {
			return err
		}
		log.Info().Int("steps", rollbackSteps).Msg("Migrations rolled back")
		return nil
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&rollbackSteps, "steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

func loadPostgresConfig() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Storage.Driver != config.StorageDriverPostgres {
		log.Warn().Str("driver", cfg.Storage.Driver).Msg("Migrating Postgres although another storage driver is configured")
	}
	return cfg, nil
}
