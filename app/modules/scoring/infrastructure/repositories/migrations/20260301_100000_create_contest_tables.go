package scoringmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating contest, region and result tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS zones (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(128) NOT NULL
				);
				CREATE TABLE IF NOT EXISTS provinces (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(128) NOT NULL,
					zone_id BIGINT NOT NULL REFERENCES zones(id)
				);
				CREATE TABLE IF NOT EXISTS schools (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					province_id BIGINT NOT NULL REFERENCES provinces(id),
					official_level_ids BIGINT[] NOT NULL DEFAULT '{}'
				);
				CREATE TABLE IF NOT EXISTS contestant_profiles (
					user_id BIGINT PRIMARY KEY,
					last_name VARCHAR(128) NOT NULL DEFAULT '',
					first_name VARCHAR(128) NOT NULL DEFAULT '',
					school_id BIGINT REFERENCES schools(id),
					province_id BIGINT REFERENCES provinces(id)
				);
			`); err != nil {
				return fmt.Errorf("failed to create region tables: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS contests (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					round SMALLINT NOT NULL,
					level_id BIGINT NOT NULL,
					next_round_id BIGINT REFERENCES contests(id),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE TABLE IF NOT EXISTS problems (
					id BIGSERIAL PRIMARY KEY,
					contest_id BIGINT NOT NULL REFERENCES contests(id) ON DELETE CASCADE,
					problem_order INT NOT NULL,
					max_score DOUBLE PRECISION NOT NULL DEFAULT 0,
					UNIQUE (contest_id, problem_order)
				);
				CREATE TABLE IF NOT EXISTS results (
					id BIGSERIAL PRIMARY KEY,
					contestant_id BIGINT NOT NULL,
					contest_id BIGINT NOT NULL REFERENCES contests(id) ON DELETE CASCADE,
					problem_id BIGINT NOT NULL REFERENCES problems(id) ON DELETE CASCADE,
					answer TEXT NOT NULL DEFAULT '',
					score DOUBLE PRECISION,
					state SMALLINT NOT NULL DEFAULT 0,
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_results_contest_contestant ON results (contest_id, contestant_id);
			`); err != nil {
				return fmt.Errorf("failed to create contest tables: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping contest, region and result tables...")

		_, err := db.ExecContext(ctx, `
			DROP TABLE IF EXISTS results;
			DROP TABLE IF EXISTS problems;
			DROP TABLE IF EXISTS contests;
			DROP TABLE IF EXISTS contestant_profiles;
			DROP TABLE IF EXISTS schools;
			DROP TABLE IF EXISTS provinces;
			DROP TABLE IF EXISTS zones;
		`)
		if err != nil {
			return fmt.Errorf("failed to drop contest tables: %w", err)
		}
		return nil
	})
}
