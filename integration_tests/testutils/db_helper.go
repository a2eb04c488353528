package testutils

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/migrate"

	quotamigrations "github.com/baysaa41/mmo-ranking/app/modules/quota/infrastructure/repositories/migrations"
	rankingmigrations "github.com/baysaa41/mmo-ranking/app/modules/ranking/infrastructure/repositories/migrations"
	scoringmigrations "github.com/baysaa41/mmo-ranking/app/modules/scoring/infrastructure/repositories/migrations"
)

// runMigrations applies River's schema and then every module in dependency
// order, each with its own bookkeeping tables as cmd/bun does.
func runMigrations(ctx context.Context, db *bun.DB, pgConnStr string) error {
	if err := runRiverMigrations(ctx, pgConnStr); err != nil {
		return err
	}

	orderedModules := []struct {
		name       string
		migrations *migrate.Migrations
	}{
		{"scoring", scoringmigrations.Migrations},
		{"ranking", rankingmigrations.Migrations},
		{"quota", quotamigrations.Migrations},
	}
	for _, mod := range orderedModules {
		migrator := migrate.NewMigrator(db, mod.migrations,
			migrate.WithTableName("bun_migrations_"+mod.name),
			migrate.WithLocksTableName("bun_migration_locks_"+mod.name),
		)
		if err := migrator.Init(ctx); err != nil {
			return fmt.Errorf("failed to init %s migrations: %w", mod.name, err)
		}
		if _, err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run %s migrations: %w", mod.name, err)
		}
	}
	log.Println("All migrations ran successfully")
	return nil
}

func runRiverMigrations(ctx context.Context, pgConnStr string) error {
	pool, err := pgxpool.New(ctx, pgConnStr)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool for River migrations: %w", err)
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("failed to create River migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		return fmt.Errorf("failed to run River migrations: %w", err)
	}
	return nil
}

var appTables = []string{
	"awards",
	"ranking_entries",
	"ranking_snapshots",
	"score_sheets",
	"results",
	"problems",
	"contests",
	"contestant_profiles",
	"schools",
	"provinces",
	"zones",
	"river_job",
}

// CleanupDatabase truncates all tables in the database to ensure a clean state
func CleanupDatabase(ctx context.Context, db *bun.DB) error {
	_, err := db.ExecContext(ctx, "TRUNCATE TABLE "+strings.Join(appTables, ", ")+" RESTART IDENTITY CASCADE")
	if err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}

func InsertZone(ctx context.Context, db bun.IDB, id int64, name string) error {
	_, err := db.ExecContext(ctx, "INSERT INTO zones (id, name) VALUES (?, ?)", id, name)
	return err
}

func InsertProvince(ctx context.Context, db bun.IDB, id int64, name string, zoneID int64) error {
	_, err := db.ExecContext(ctx, "INSERT INTO provinces (id, name, zone_id) VALUES (?, ?, ?)", id, name, zoneID)
	return err
}

func InsertSchool(ctx context.Context, db bun.IDB, id int64, name string, provinceID int64, officialLevels []int64) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO schools (id, name, province_id, official_level_ids) VALUES (?, ?, ?, ?)",
		id, name, provinceID, pgdialect.Array(officialLevels))
	return err
}

// InsertContest creates a contest with problemCount problems worth maxScore
// each and returns the problem ids in order.
func InsertContest(ctx context.Context, db bun.IDB, c Contest, problemCount int, maxScore float64) ([]int64, error) {
	if _, err := db.ExecContext(ctx,
		"INSERT INTO contests (id, name, round, level_id, next_round_id) VALUES (?, ?, ?, ?, ?)",
		c.ID, c.Name, c.Round, c.LevelID, c.NextRoundID); err != nil {
		return nil, fmt.Errorf("insert contest %d: %w", c.ID, err)
	}
	ids := make([]int64, problemCount)
	for i := range problemCount {
		err := db.QueryRowContext(ctx,
			"INSERT INTO problems (contest_id, problem_order, max_score) VALUES (?, ?, ?) RETURNING id",
			c.ID, i+1, maxScore).Scan(&ids[i])
		if err != nil {
			return nil, fmt.Errorf("insert problem %d: %w", i+1, err)
		}
	}
	return ids, nil
}

// InsertContestants writes each contestant's profile and one result per
// score.
func InsertContestants(ctx context.Context, db bun.IDB, contestID int64, problemIDs []int64, contestants []Contestant) error {
	for _, c := range contestants {
		if _, err := db.ExecContext(ctx,
			"INSERT INTO contestant_profiles (user_id, last_name, first_name, school_id, province_id) VALUES (?, ?, ?, ?, ?) ON CONFLICT (user_id) DO NOTHING",
			c.UserID, c.LastName, c.FirstName, c.SchoolID, c.ProvinceID); err != nil {
			return fmt.Errorf("insert profile %d: %w", c.UserID, err)
		}
		for i, score := range c.Scores {
			if _, err := db.ExecContext(ctx,
				"INSERT INTO results (contestant_id, contest_id, problem_id, score) VALUES (?, ?, ?, ?)",
				c.UserID, contestID, problemIDs[i], score); err != nil {
				return fmt.Errorf("insert result %d/%d: %w", c.UserID, i+1, err)
			}
		}
	}
	return nil
}

// SheetPrizes maps contestant id to the prizes field of their sheet.
func SheetPrizes(ctx context.Context, db bun.IDB, contestID int64) (map[int64]string, error) {
	var rows []struct {
		ContestantID int64  `bun:"contestant_id"`
		Prizes       string `bun:"prizes"`
	}
	err := db.NewSelect().
		TableExpr("score_sheets").
		Column("contestant_id", "prizes").
		Where("contest_id = ?", contestID).
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(rows))
	for _, r := range rows {
		out[r.ContestantID] = r.Prizes
	}
	return out, nil
}
