package scoringmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating score_sheets table...")

		if _, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS score_sheets (
				id BIGSERIAL PRIMARY KEY,
				contestant_id BIGINT NOT NULL,
				contest_id BIGINT NOT NULL REFERENCES contests(id) ON DELETE CASCADE,
				school_id BIGINT REFERENCES schools(id),
				scores JSONB NOT NULL DEFAULT '[]',
				total DOUBLE PRECISION NOT NULL DEFAULT 0,
				is_official BOOLEAN NOT NULL DEFAULT FALSE,
				prizes TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				CONSTRAINT uq_score_sheets_contestant_contest UNIQUE (contestant_id, contest_id)
			);
			CREATE INDEX IF NOT EXISTS idx_score_sheets_contest_total ON score_sheets (contest_id, total DESC);
		`); err != nil {
			return fmt.Errorf("failed to create score_sheets table: %w", err)
		}

		fmt.Println("score_sheets table created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping score_sheets table...")

		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS score_sheets;`); err != nil {
			return fmt.Errorf("failed to drop score_sheets table: %w", err)
		}
		return nil
	})
}
