package quotamigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating awards table...")

		if _, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS awards (
				id BIGSERIAL PRIMARY KEY,
				contest_id BIGINT NOT NULL REFERENCES contests(id) ON DELETE CASCADE,
				contestant_id BIGINT NOT NULL,
				place TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_awards_contest_contestant ON awards (contest_id, contestant_id);
		`); err != nil {
			return fmt.Errorf("failed to create awards table: %w", err)
		}

		fmt.Println("Awards table created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping awards table...")

		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS awards;`); err != nil {
			return fmt.Errorf("failed to drop awards table: %w", err)
		}
		return nil
	})
}
