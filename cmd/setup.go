package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/desertthunder/casper/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing, initializes the database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if !r.pinned {
		if _, err := os.Stat(configPath); err != nil {
			r.logger.Info("config file not found, creating from template", "path", configPath)
			if err := shared.CreateConfigFile(configPath); err != nil {
				r.logger.Warn("failed to create config file, using defaults", "error", err)
			} else {
				r.logger.Info("config file created", "path", configPath)
				if config, err = shared.LoadConfig(configPath); err != nil {
					r.logger.Warn("failed to load created config, using defaults", "error", err)
					config = shared.DefaultConfig()
				}
				if err := shared.ApplyEnv(config, cmd.String("env")); err != nil {
					return err
				}
				r.config = config
			}
		}
	}

	if err := config.Validate(); err != nil {
		r.logger.Warn("configuration incomplete", "error", err)
	}

	db, err := r.setupDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	version, err := shared.CurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("✓ Database ready at %s (schema version %d)\n", config.Database.Path, version)
	if config.Spotify.ClientID == "" || config.Spotify.ClientID == "your_spotify_client_id" {
		r.writePlain("Next: set spotify.client_id in %s (or CASPER_SPOTIFY_CLIENT_ID), then run 'casper auth'\n", configPath)
	} else {
		r.writePlain("Next: run 'casper auth' to sign in to Spotify\n")
	}
	return nil
}

// SetupRollback rolls back the most recent migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	if err := shared.RollbackMigration(db); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	version, err := shared.CurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	return r.writePlain("✓ Rolled back to schema version %d\n", version)
}

func (r *Runner) setupDatabase(config *shared.Config) (*sql.DB, error) {
	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	if config.Database.Path != ":memory:" {
		shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	}

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}
