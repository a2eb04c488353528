package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/baysaa41/mmo-ranking/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"

	// Import for migrator creation
	quotamigrations "github.com/baysaa41/mmo-ranking/app/modules/quota/infrastructure/repositories/migrations"
	rankingmigrations "github.com/baysaa41/mmo-ranking/app/modules/ranking/infrastructure/repositories/migrations"
	scoringmigrations "github.com/baysaa41/mmo-ranking/app/modules/scoring/infrastructure/repositories/migrations"
)

// moduleMigrator pairs a module with its migrator. Modules migrate in slice
// order: ranking reads score_sheets and quota reads ranking_snapshots.
type moduleMigrator struct {
	name     string
	migrator *migrate.Migrator
}

func newModuleMigrator(db *bun.DB, name string, migrations *migrate.Migrations) moduleMigrator {
	return moduleMigrator{
		name: name,
		migrator: migrate.NewMigrator(db, migrations,
			migrate.WithTableName("bun_migrations_"+name),
			migrate.WithLocksTableName("bun_migration_locks_"+name),
		),
	}
}

func main() {
	// Load configuration for database connection ONLY
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Database connection using pgdriver
	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	db := bun.NewDB(pgdb, pgdialect.New())
	defer db.Close()

	migrators := []moduleMigrator{
		newModuleMigrator(db, "scoring", scoringmigrations.Migrations),
		newModuleMigrator(db, "ranking", rankingmigrations.Migrations),
		newModuleMigrator(db, "quota", quotamigrations.Migrations),
	}

	cliApp := &cli.App{
		Name: "bun",
		Commands: []*cli.Command{
			newMultiModuleDBCommand(migrators),
			newRiverCommand(cfg.Postgres.DSN),
		},
	}

	// flag.Parse consumed -config; hand the rest to the cli app.
	if err := cliApp.Run(append([]string{os.Args[0]}, flag.Args()...)); err != nil {
		log.Fatal(err)
	}
}

func findMigrator(migrators []moduleMigrator, name string) (*migrate.Migrator, error) {
	for _, m := range migrators {
		if m.name == name {
			return m.migrator, nil
		}
	}
	return nil, fmt.Errorf("invalid module name: %s", name)
}

func newMultiModuleDBCommand(migrators []moduleMigrator) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: func(c *cli.Context) error {
					for _, m := range migrators {
						fmt.Printf("Initializing migrations for module: %s\n", m.name)
						if err := m.migrator.Init(c.Context); err != nil {
							return fmt.Errorf("init %s: %w", m.name, err)
						}
					}
					return nil
				},
			},
			{
				Name:  "migrate",
				Usage: "migrate database",
				Action: func(c *cli.Context) error {
					for _, m := range migrators {
						if err := m.migrator.Lock(c.Context); err != nil {
							return fmt.Errorf("lock %s: %w", m.name, err)
						}
						group, err := m.migrator.Migrate(c.Context)
						_ = m.migrator.Unlock(c.Context)
						if err != nil {
							return fmt.Errorf("migrate %s: %w", m.name, err)
						}
						if group.IsZero() {
							fmt.Printf("No new migrations to run for module: %s\n", m.name)
						} else {
							fmt.Printf("Migrated module: %s to %s\n", m.name, group)
						}
					}
					return nil
				},
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group",
				Action: func(c *cli.Context) error {
					// Dependents first.
					for i := len(migrators) - 1; i >= 0; i-- {
						m := migrators[i]
						group, err := m.migrator.Rollback(c.Context)
						if err != nil {
							return fmt.Errorf("rollback %s: %w", m.name, err)
						}
						if group.IsZero() {
							fmt.Printf("No groups to roll back for module: %s\n", m.name)
						} else {
							fmt.Printf("Rolled back module: %s to %s\n", m.name, group)
						}
					}
					return nil
				},
			},
			{
				Name:      "create_go",
				Usage:     "create Go migration",
				ArgsUsage: "<module> <name>",
				Action: func(c *cli.Context) error {
					moduleName := c.Args().First()
					migrator, err := findMigrator(migrators, moduleName)
					if err != nil {
						return err
					}

					name := strings.Join(c.Args().Tail(), "_")
					mf, err := migrator.CreateGoMigration(c.Context, name)
					if err != nil {
						return err
					}
					fmt.Printf("Created migration for module %s: %s (%s)\n", moduleName, mf.Name, mf.Path)
					return nil
				},
			},
			{
				Name:      "create_sql",
				Usage:     "create up and down SQL migrations",
				ArgsUsage: "<module> <name>",
				Action: func(c *cli.Context) error {
					moduleName := c.Args().First()
					migrator, err := findMigrator(migrators, moduleName)
					if err != nil {
						return err
					}

					name := strings.Join(c.Args().Tail(), "_")
					files, err := migrator.CreateSQLMigrations(c.Context, name)
					if err != nil {
						return err
					}
					for _, mf := range files {
						fmt.Printf("Created migration for module %s: %s (%s)\n", moduleName, mf.Name, mf.Path)
					}
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: func(c *cli.Context) error {
					for _, m := range migrators {
						ms, err := m.migrator.MigrationsWithStatus(c.Context)
						if err != nil {
							return err
						}
						fmt.Printf("Migrations for module: %s\n", m.name)
						fmt.Printf("  %s\n", ms)
						fmt.Printf("  Applied: %s\n", ms.Applied())
						fmt.Printf("  Unapplied: %s\n", ms.Unapplied())
					}
					return nil
				},
			},
		},
	}
}

// newRiverCommand manages the job queue tables, which River versions itself.
func newRiverCommand(dsn string) *cli.Command {
	run := func(ctx context.Context, direction rivermigrate.Direction) error {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return fmt.Errorf("failed to create pgx pool: %w", err)
		}
		defer pool.Close()

		migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
		if err != nil {
			return fmt.Errorf("failed to create river migrator: %w", err)
		}
		opts := &rivermigrate.MigrateOpts{}
		if direction == rivermigrate.DirectionDown {
			opts.MaxSteps = 1
		}
		res, err := migrator.Migrate(ctx, direction, opts)
		if err != nil {
			return err
		}
		if len(res.Versions) == 0 {
			fmt.Println("River schema is up to date")
		}
		for _, v := range res.Versions {
			fmt.Printf("River migration %s: version %d\n", direction, v.Version)
		}
		return nil
	}

	return &cli.Command{
		Name:  "river",
		Usage: "job queue schema",
		Subcommands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "apply pending River migrations",
				Action: func(c *cli.Context) error { return run(c.Context, rivermigrate.DirectionUp) },
			},
			{
				Name:   "down",
				Usage:  "roll back the last River migration",
				Action: func(c *cli.Context) error { return run(c.Context, rivermigrate.DirectionDown) },
			},
		},
	}
}
