package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"feed_syncer/internal/storage/postgres"
)

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:        "migrate",
		Usage:       "Run database migrations",
		Description: `Applies every pending migration to the configured database.`,
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig(c)
			if err != nil {
				return err
			}

			db, err := postgres.Connect(c.Context, cfg.Database)
			if err != nil {
				return err
			}

			if err := postgres.Migrate(db); err != nil {
				return err
			}

			logger.Info("migrations applied", "database", fmt.Sprintf("%s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName))
			return nil
		},
	}
}

func rollbackCmd() *cli.Command {
	return &cli.Command{
		Name:        "rollback",
		Usage:       "Rollback database migration",
		Description: `Rolls back the last database migration.`,
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig(c)
			if err != nil {
				return err
			}

			db, err := postgres.Connect(c.Context, cfg.Database)
			if err != nil {
				return err
			}

			if err := postgres.Rollback(db); err != nil {
				return err
			}

			logger.Info("migration rolled back", "database", fmt.Sprintf("%s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName))
			return nil
		},
	}
}
