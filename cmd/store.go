package cmd

import (
	"context"
	"fmt"

	"closer-backend/internal/config"
	"closer-backend/internal/database"
	"closer-backend/internal/repository"
	"closer-backend/internal/repository/memstore"

	"github.com/rs/zerolog/log"
)

// openStore builds the repositories for the configured storage driver.
// For postgres, pending migrations are applied first. The returned func releases the store.
func openStore(ctx context.Context, cfg *config.Config) (*repository.Store, func(), error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		log.Warn().Msg("Using the in-memory store, data is lost on restart")
		return memstore.NewRepositories(), func() {}, nil

	case config.StorageDriverPostgres:
		dsn := cfg.Database.DSN()
		if err := database.RunMigrations(dsn); err != nil {
			return nil, nil, err
		}

		db, err := database.Connect(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Msg("Database connection established")
		return repository.NewPostgresStore(db), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
