package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/dustin/go-humanize/english"
	"github.com/urfave/cli/v3"

	"github.com/h4nsec/SpotiPlay/internal/repositories"
	"github.com/h4nsec/SpotiPlay/internal/shared"
)

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	if err := config.ApplyEnv(); err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cmd.Bool("rollback") {
		m, err := shared.RollbackMigration(db)
		if err != nil {
			return err
		}
		r.logger.Info("rolled back migration", "migration", m)
		r.writePlain("✓ Rolled back %s in %s\n", m, config.Database.Path)
		return nil
	}

	ran, err := shared.RunMigrations(db)
	if err != nil {
		return err
	}
	for _, m := range ran {
		r.logger.Info("applied migration", "migration", m)
	}

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("✓ Database ready at %s (%d new %s)\n", config.Database.Path, len(ran), english.PluralWord(len(ran), "migration", ""))
	return nil
}

// SetupConfig writes the config template to the configured path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	r.writePlain("✓ Config written to %s\n\n", configPath)
	r.writePlain("Next steps:\n")
	r.writePlain("1. Create an app at https://developer.spotify.com/dashboard with redirect URI %s\n", r.config.Credentials.Spotify.RedirectURI)
	r.writePlain("2. Set credentials.spotify.client_id and client_secret in %s (or SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET)\n", configPath)
	r.writePlain("3. Run 'spotiplay spotify auth'\n")
	return nil
}

// openDatabase opens the configured database and applies pending migrations.
func openDatabase(config *shared.Config) (*sql.DB, error) {
	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return nil, err
	}

	if _, err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// openHistory returns the import history repository and a function that closes it.
func (r *Runner) openHistory() (*repositories.ImportRepository, func(), error) {
	db, err := openDatabase(r.config)
	if err != nil {
		return nil, func() {}, err
	}
	return repositories.NewImportRepository(db), func() { db.Close() }, nil
}
