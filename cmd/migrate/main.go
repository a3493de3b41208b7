package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	pgstore "github.com/dwarvesf/escrow-history/internal/store/postgres"
	"github.com/dwarvesf/escrow-history/internal/utils/config"
	"github.com/dwarvesf/escrow-history/internal/utils/logger"
)

func newMigrate(db *gorm.DB, dir string) (*migrate.Migrate, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// withMigrate connects, runs fn and logs the resulting schema version.
func withMigrate(fn func(m *migrate.Migrate) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		appConfig := config.New()
		logger := logger.New(appConfig.Environment)

		db := pgstore.New(appConfig, logger)
		m, err := newMigrate(db, c.String("dir"))
		if err != nil {
			logger.Error("[migrate][newMigrate]", map[string]string{
				"error": err.Error(),
			})
			return err
		}

		if err := fn(m); err != nil && err != migrate.ErrNoChange {
			logger.Error("[migrate] failed to run migrations", map[string]string{
				"command": c.Command.Name,
				"error":   err.Error(),
			})
			return err
		}

		version, dirty, _ := m.Version()
		logger.Info("[migrate] migrations completed", map[string]string{
			"command": c.Command.Name,
			"version": fmt.Sprintf("%d", version),
			"dirty":   fmt.Sprintf("%t", dirty),
		})
		return nil
	}
}

func main() {
	app := &cli.App{
		Name:  "migrate",
		Usage: "Apply escrow-history database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Usage:   "Directory holding the SQL migration files",
				EnvVars: []string{"MIGRATIONS_DIR"},
				Value:   filepath.Join("migrations", "schema"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Action: withMigrate(func(m *migrate.Migrate) error {
					return m.Up()
				}),
			},
			{
				Name:  "down",
				Usage: "Roll back all migrations",
				Action: withMigrate(func(m *migrate.Migrate) error {
					return m.Down()
				}),
			},
			{
				Name:      "steps",
				Usage:     "Apply n migrations, negative n rolls back",
				ArgsUsage: "<n>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "n", Required: true},
				},
				Action: func(c *cli.Context) error {
					n := c.Int("n")
					return withMigrate(func(m *migrate.Migrate) error {
						return m.Steps(n)
					})(c)
				},
			},
		},
		DefaultCommand: "up",
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
