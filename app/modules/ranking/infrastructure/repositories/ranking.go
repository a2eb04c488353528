package rankingdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/baysaa41/mmo-ranking/app/shared/locks"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var (
	// ErrNotFound is returned when a contest has no active snapshot.
	ErrNotFound = errors.New("ranking snapshot not found")
)

// entryBatchSize keeps a bulk insert well under the Postgres bind parameter
// limit.
const entryBatchSize = 2000

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new ranking repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) TryLockContest(ctx context.Context, db bun.IDB, namespace int32, contestID int64) (bool, error) {
	ok, err := locks.TryContest(ctx, r.resolveDB(db), namespace, contestID)
	if err != nil {
		return false, fmt.Errorf("rankingdb.TryLockContest: %w", err)
	}
	return ok, nil
}

func (r *Impl) ContestExists(ctx context.Context, db bun.IDB, contestID int64) (bool, error) {
	db = r.resolveDB(db)
	exists, err := db.NewSelect().
		TableExpr("contests AS c").
		Where("c.id = ?", contestID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("rankingdb.ContestExists: %w", err)
	}
	return exists, nil
}

// ListRankableSheets returns the contest's sheets whose contestant has a
// province. The zone comes from the province.
func (r *Impl) ListRankableSheets(ctx context.Context, db bun.IDB, contestID int64) ([]SheetRow, error) {
	db = r.resolveDB(db)
	var rows []SheetRow
	err := db.NewSelect().
		TableExpr("score_sheets AS ss").
		ColumnExpr("ss.id AS sheet_id, ss.contestant_id, cp.province_id, pr.zone_id, ss.total, ss.is_official").
		Join("JOIN contestant_profiles AS cp ON cp.user_id = ss.contestant_id").
		Join("JOIN provinces AS pr ON pr.id = cp.province_id").
		Where("ss.contest_id = ?", contestID).
		OrderExpr("ss.id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("rankingdb.ListRankableSheets: %w", err)
	}
	return rows, nil
}

func (r *Impl) InsertSnapshot(ctx context.Context, db bun.IDB, snapshot *RankingSnapshot) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(snapshot).Exec(ctx); err != nil {
		return fmt.Errorf("rankingdb.InsertSnapshot: %w", err)
	}
	return nil
}

func (r *Impl) InsertEntries(ctx context.Context, db bun.IDB, entries []RankingEntry) error {
	db = r.resolveDB(db)
	for start := 0; start < len(entries); start += entryBatchSize {
		end := min(start+entryBatchSize, len(entries))
		batch := entries[start:end]
		if _, err := db.NewInsert().Model(&batch).Exec(ctx); err != nil {
			return fmt.Errorf("rankingdb.InsertEntries: %w", err)
		}
	}
	return nil
}

// ActivateSnapshot makes snapshotID the contest's only active snapshot. The
// previous one is switched off first so the partial unique index never sees
// two active rows.
func (r *Impl) ActivateSnapshot(ctx context.Context, db bun.IDB, contestID int64, snapshotID uuid.UUID) error {
	db = r.resolveDB(db)
	_, err := db.NewUpdate().
		Model((*RankingSnapshot)(nil)).
		Set("active = FALSE").
		Where("contest_id = ?", contestID).
		Where("active").
		Where("id <> ?", snapshotID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rankingdb.ActivateSnapshot: deactivate: %w", err)
	}

	res, err := db.NewUpdate().
		Model((*RankingSnapshot)(nil)).
		Set("active = TRUE").
		Where("id = ?", snapshotID).
		Where("contest_id = ?", contestID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rankingdb.ActivateSnapshot: activate: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rankingdb.ActivateSnapshot: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PruneSnapshots deletes inactive snapshots that are not among the contest's
// keep most recent ones. Entries go with them through ON DELETE CASCADE.
func (r *Impl) PruneSnapshots(ctx context.Context, db bun.IDB, contestID int64, keep int) (int, error) {
	db = r.resolveDB(db)
	recent := db.NewSelect().
		Model((*RankingSnapshot)(nil)).
		Column("id").
		Where("contest_id = ?", contestID).
		OrderExpr("computed_at DESC").
		Limit(keep)

	res, err := db.NewDelete().
		Model((*RankingSnapshot)(nil)).
		Where("contest_id = ?", contestID).
		Where("NOT active").
		Where("id NOT IN (?)", recent).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("rankingdb.PruneSnapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rankingdb.PruneSnapshots: %w", err)
	}
	return int(n), nil
}

func (r *Impl) GetActiveSnapshot(ctx context.Context, db bun.IDB, contestID int64) (*RankingSnapshot, error) {
	db = r.resolveDB(db)
	snapshot := new(RankingSnapshot)
	err := db.NewSelect().
		Model(snapshot).
		Where("rs.contest_id = ?", contestID).
		Where("rs.active").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("rankingdb.GetActiveSnapshot: %w", err)
	}
	return snapshot, nil
}

// ListStandings returns one scope of a snapshot ordered by list rank.
func (r *Impl) ListStandings(ctx context.Context, db bun.IDB, snapshotID uuid.UUID, kind string, scopeID int64, population string) ([]Standing, error) {
	db = r.resolveDB(db)
	var rows []Standing
	err := db.NewSelect().
		TableExpr("ranking_entries AS re").
		ColumnExpr("re.score_sheet_id, re.contestant_id, re.total, re.ranking_a, re.ranking_b, re.list_rank").
		ColumnExpr("COALESCE(cp.last_name, '') AS last_name, COALESCE(cp.first_name, '') AS first_name").
		Join("LEFT JOIN contestant_profiles AS cp ON cp.user_id = re.contestant_id").
		Where("re.snapshot_id = ?", snapshotID).
		Where("re.scope_kind = ?", kind).
		Where("re.scope_id = ?", scopeID).
		Where("re.population = ?", population).
		OrderExpr("re.list_rank ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("rankingdb.ListStandings: %w", err)
	}
	return rows, nil
}
