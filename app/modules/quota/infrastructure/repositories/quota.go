package quotadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/baysaa41/mmo-ranking/app/shared/locks"
	"github.com/uptrace/bun"
)

var (
	// ErrNotFound is returned when a contest does not exist.
	ErrNotFound = errors.New("quota record not found")
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new quota repository.
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
		return false, fmt.Errorf("quotadb.TryLockContest: %w", err)
	}
	return ok, nil
}

func (r *Impl) GetContest(ctx context.Context, db bun.IDB, contestID int64) (*ContestRef, error) {
	db = r.resolveDB(db)
	contest := new(ContestRef)
	err := db.NewSelect().
		TableExpr("contests AS c").
		ColumnExpr("c.id, c.name, c.next_round_id").
		Where("c.id = ?", contestID).
		Scan(ctx, contest)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("quotadb.GetContest: %w", err)
	}
	return contest, nil
}

func (r *Impl) HasActiveSnapshot(ctx context.Context, db bun.IDB, contestID int64) (bool, error) {
	db = r.resolveDB(db)
	exists, err := db.NewSelect().
		TableExpr("ranking_snapshots AS rs").
		Where("rs.contest_id = ?", contestID).
		Where("rs.active").
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("quotadb.HasActiveSnapshot: %w", err)
	}
	return exists, nil
}

// ListCandidates returns the (province, official) entries of the contest's
// active snapshot ordered by province then list rank.
func (r *Impl) ListCandidates(ctx context.Context, db bun.IDB, contestID int64) ([]CandidateRow, error) {
	db = r.resolveDB(db)
	var rows []CandidateRow
	err := db.NewSelect().
		TableExpr("ranking_entries AS re").
		ColumnExpr("re.score_sheet_id AS sheet_id, re.contestant_id, rs.contest_id").
		ColumnExpr("COALESCE(cp.last_name, '') AS last_name, COALESCE(cp.first_name, '') AS first_name").
		ColumnExpr("COALESCE(sc.name, '') AS school").
		ColumnExpr("re.scope_id AS province_id, COALESCE(pr.name, '') AS province").
		ColumnExpr("re.total, re.ranking_a").
		Join("JOIN ranking_snapshots AS rs ON rs.id = re.snapshot_id AND rs.active").
		Join("JOIN score_sheets AS ss ON ss.id = re.score_sheet_id").
		Join("LEFT JOIN contestant_profiles AS cp ON cp.user_id = re.contestant_id").
		Join("LEFT JOIN schools AS sc ON sc.id = ss.school_id").
		Join("LEFT JOIN provinces AS pr ON pr.id = re.scope_id").
		Where("rs.contest_id = ?", contestID).
		Where("re.scope_kind = 'province'").
		Where("re.population = 'official'").
		OrderExpr("re.scope_id ASC, re.list_rank ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("quotadb.ListCandidates: %w", err)
	}
	return rows, nil
}

// ListTotals returns the totals of every score sheet of a contest.
func (r *Impl) ListTotals(ctx context.Context, db bun.IDB, contestID int64) ([]float64, error) {
	db = r.resolveDB(db)
	var totals []float64
	err := db.NewSelect().
		TableExpr("score_sheets AS ss").
		ColumnExpr("ss.total").
		Where("ss.contest_id = ?", contestID).
		OrderExpr("ss.total DESC").
		Scan(ctx, &totals)
	if err != nil {
		return nil, fmt.Errorf("quotadb.ListTotals: %w", err)
	}
	return totals, nil
}

// DeleteAwardsByPrefix removes the awards of the contests whose place starts
// with prefix.
func (r *Impl) DeleteAwardsByPrefix(ctx context.Context, db bun.IDB, contestIDs []int64, prefix string) (int, error) {
	if len(contestIDs) == 0 || prefix == "" {
		return 0, nil
	}
	db = r.resolveDB(db)
	res, err := db.NewDelete().
		Model((*Award)(nil)).
		Where("contest_id IN (?)", bun.In(contestIDs)).
		Where("starts_with(place, ?)", prefix).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("quotadb.DeleteAwardsByPrefix: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("quotadb.DeleteAwardsByPrefix: %w", err)
	}
	return int(n), nil
}

func (r *Impl) InsertAwards(ctx context.Context, db bun.IDB, awards []*Award) error {
	if len(awards) == 0 {
		return nil
	}
	db = r.resolveDB(db)
	now := time.Now().UTC()
	for _, a := range awards {
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
	}
	if _, err := db.NewInsert().Model(&awards).Exec(ctx); err != nil {
		return fmt.Errorf("quotadb.InsertAwards: %w", err)
	}
	return nil
}

// ListAwards returns a contest's awards ordered by contestant then id.
func (r *Impl) ListAwards(ctx context.Context, db bun.IDB, contestID int64) ([]Award, error) {
	db = r.resolveDB(db)
	var awards []Award
	err := db.NewSelect().
		Model(&awards).
		Where("a.contest_id = ?", contestID).
		Order("a.contestant_id ASC", "a.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("quotadb.ListAwards: %w", err)
	}
	return awards, nil
}

func (r *Impl) ListSheetPrizes(ctx context.Context, db bun.IDB, contestIDs []int64) ([]SheetPrizes, error) {
	if len(contestIDs) == 0 {
		return nil, nil
	}
	db = r.resolveDB(db)
	var rows []SheetPrizes
	err := db.NewSelect().
		Model(&rows).
		Where("ss.contest_id IN (?)", bun.In(contestIDs)).
		Order("ss.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("quotadb.ListSheetPrizes: %w", err)
	}
	return rows, nil
}

// UpdateSheetPrizes writes the prizes field of each listed sheet in one
// statement.
func (r *Impl) UpdateSheetPrizes(ctx context.Context, db bun.IDB, updates []SheetPrizes) error {
	if len(updates) == 0 {
		return nil
	}
	db = r.resolveDB(db)
	values := db.NewValues(&updates)
	_, err := db.NewUpdate().
		With("_data", values).
		Model((*SheetPrizes)(nil)).
		TableExpr("_data").
		Set("prizes = _data.prizes").
		Set("updated_at = ?", time.Now().UTC()).
		Where("ss.id = _data.id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("quotadb.UpdateSheetPrizes: %w", err)
	}
	return nil
}
