package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/sonance/internal/repositories"
	"github.com/desertthunder/sonance/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the example configuration to --config unless a file already exists there.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", configPath)
	return r.writePlain("✓ Config written to %s\n", configPath)
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using current config", "error", err)
		} else if loaded, err := shared.LoadConfig(configPath); err == nil {
			config = loaded
		}
	}

	r.logger.Info("initializing database", "path", config.Storage.Path)

	db, err := shared.NewDatabase(config.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Storage.MaxOpenConns, config.Storage.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", config.Storage.Path)
	return r.writePlain("✓ Database ready at %s\n", config.Storage.Path)
}

// SetupSettings lists the locally persisted settings. The access token is masked.
func (r *Runner) SetupSettings(ctx context.Context, cmd *cli.Command) error {
	if r.settings == nil {
		return fmt.Errorf("%w: settings store not initialized", shared.ErrServiceUnavailable)
	}

	settings, err := r.settings.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list settings: %w", err)
	}

	if len(settings) == 0 {
		return r.writePlain("No settings stored\n")
	}
	for _, s := range settings {
		value := s.Value
		if s.Key == repositories.KeyAccessToken {
			value = mask(value)
		}
		r.writePlain("%-14s %s\n", s.Key, value)
	}
	return nil
}

func mask(v string) string {
	if len(v) <= 8 {
		return "********"
	}
	return v[:4] + "…" + v[len(v)-4:]
}
