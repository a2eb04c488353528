package rankingmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating ranking snapshot tables...")

		if _, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS ranking_snapshots (
				id UUID PRIMARY KEY,
				contest_id BIGINT NOT NULL REFERENCES contests(id) ON DELETE CASCADE,
				computed_at TIMESTAMPTZ NOT NULL,
				active BOOLEAN NOT NULL DEFAULT FALSE,
				sheet_count INTEGER NOT NULL DEFAULT 0,
				scope_count INTEGER NOT NULL DEFAULT 0
			);
			CREATE UNIQUE INDEX IF NOT EXISTS uq_ranking_snapshots_active
				ON ranking_snapshots (contest_id) WHERE active;
			CREATE INDEX IF NOT EXISTS idx_ranking_snapshots_contest_computed
				ON ranking_snapshots (contest_id, computed_at DESC);
		`); err != nil {
			return fmt.Errorf("failed to create ranking_snapshots table: %w", err)
		}

		if _, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS ranking_entries (
				snapshot_id UUID NOT NULL REFERENCES ranking_snapshots(id) ON DELETE CASCADE,
				scope_kind TEXT NOT NULL CHECK (scope_kind IN ('national', 'province', 'zone')),
				scope_id BIGINT NOT NULL,
				population TEXT NOT NULL CHECK (population IN ('official', 'all', 'unofficial')),
				score_sheet_id BIGINT NOT NULL,
				contestant_id BIGINT NOT NULL,
				total DOUBLE PRECISION NOT NULL,
				ranking_a INTEGER NOT NULL,
				ranking_b INTEGER NOT NULL,
				list_rank INTEGER NOT NULL,
				PRIMARY KEY (snapshot_id, scope_kind, scope_id, population, score_sheet_id)
			);
			CREATE INDEX IF NOT EXISTS idx_ranking_entries_scope_list
				ON ranking_entries (snapshot_id, scope_kind, scope_id, population, list_rank);
		`); err != nil {
			return fmt.Errorf("failed to create ranking_entries table: %w", err)
		}

		fmt.Println("Ranking snapshot tables created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping ranking snapshot tables...")

		if _, err := db.ExecContext(ctx, `
			DROP TABLE IF EXISTS ranking_entries;
			DROP TABLE IF EXISTS ranking_snapshots;
		`); err != nil {
			return fmt.Errorf("failed to drop ranking snapshot tables: %w", err)
		}
		return nil
	})
}
