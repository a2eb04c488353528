package scoringdb

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
	// ErrNotFound is returned when a contest or score sheet does not exist.
	ErrNotFound = errors.New("scoring record not found")
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new scoring repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// GetContest retrieves a contest by id.
func (r *Impl) GetContest(ctx context.Context, db bun.IDB, contestID int64) (*Contest, error) {
	db = r.resolveDB(db)
	contest := new(Contest)
	err := db.NewSelect().
		Model(contest).
		Where("c.id = ?", contestID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scoringdb.GetContest: %w", err)
	}
	return contest, nil
}

// CountProblems returns the number of problems of a contest.
func (r *Impl) CountProblems(ctx context.Context, db bun.IDB, contestID int64) (int, error) {
	db = r.resolveDB(db)
	n, err := db.NewSelect().
		Model((*Problem)(nil)).
		Where("p.contest_id = ?", contestID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("scoringdb.CountProblems: %w", err)
	}
	return n, nil
}

// ListResultRows returns every result of a contest joined with its problem
// order, ordered by contestant then problem.
func (r *Impl) ListResultRows(ctx context.Context, db bun.IDB, contestID int64) ([]ResultRow, error) {
	db = r.resolveDB(db)
	var rows []ResultRow
	err := db.NewSelect().
		TableExpr("results AS r").
		ColumnExpr("r.contestant_id, p.problem_order, r.score").
		Join("JOIN problems AS p ON p.id = r.problem_id").
		Where("r.contest_id = ?", contestID).
		OrderExpr("r.contestant_id ASC, p.problem_order ASC, r.id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("scoringdb.ListResultRows: %w", err)
	}
	return rows, nil
}

// GetProfiles returns the profiles of the given users. Users without a
// profile are simply absent from the result.
func (r *Impl) GetProfiles(ctx context.Context, db bun.IDB, userIDs []int64) ([]ProfileRow, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	db = r.resolveDB(db)
	var rows []ProfileRow
	err := db.NewSelect().
		TableExpr("contestant_profiles AS cp").
		ColumnExpr("cp.user_id, cp.school_id, cp.province_id").
		Where("cp.user_id IN (?)", bun.In(userIDs)).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("scoringdb.GetProfiles: %w", err)
	}
	return rows, nil
}

// ListSchools returns the given schools keyed by id.
func (r *Impl) ListSchools(ctx context.Context, db bun.IDB, schoolIDs []int64) (map[int64]School, error) {
	out := make(map[int64]School, len(schoolIDs))
	if len(schoolIDs) == 0 {
		return out, nil
	}
	db = r.resolveDB(db)
	var schools []School
	err := db.NewSelect().
		Model(&schools).
		Where("sc.id IN (?)", bun.In(schoolIDs)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scoringdb.ListSchools: %w", err)
	}
	for _, school := range schools {
		out[school.ID] = school
	}
	return out, nil
}

// TryLockContest takes the transaction-scoped advisory lock of a contest.
// It returns false when another transaction holds it.
func (r *Impl) TryLockContest(ctx context.Context, db bun.IDB, namespace int32, contestID int64) (bool, error) {
	ok, err := locks.TryContest(ctx, r.resolveDB(db), namespace, contestID)
	if err != nil {
		return false, fmt.Errorf("scoringdb.TryLockContest: %w", err)
	}
	return ok, nil
}

// ListScoreSheets returns the score sheets of a contest ordered by contestant.
func (r *Impl) ListScoreSheets(ctx context.Context, db bun.IDB, contestID int64) ([]ScoreSheet, error) {
	db = r.resolveDB(db)
	var sheets []ScoreSheet
	err := db.NewSelect().
		Model(&sheets).
		Where("ss.contest_id = ?", contestID).
		Order("ss.contestant_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scoringdb.ListScoreSheets: %w", err)
	}
	return sheets, nil
}

// UpsertScoreSheets bulk creates or updates sheets keyed by
// (contestant_id, contest_id). School and prizes of existing rows are never
// touched here.
func (r *Impl) UpsertScoreSheets(ctx context.Context, db bun.IDB, sheets []*ScoreSheet) error {
	if len(sheets) == 0 {
		return nil
	}
	db = r.resolveDB(db)
	now := time.Now().UTC()
	for _, s := range sheets {
		s.UpdatedAt = now
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
	}
	_, err := db.NewInsert().
		Model(&sheets).
		On("CONFLICT (contestant_id, contest_id) DO UPDATE").
		Set("scores = EXCLUDED.scores").
		Set("total = EXCLUDED.total").
		Set("is_official = EXCLUDED.is_official").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("scoringdb.UpsertScoreSheets: %w", err)
	}
	return nil
}

// DeleteScoreSheets removes every sheet of a contest and returns how many
// were deleted.
func (r *Impl) DeleteScoreSheets(ctx context.Context, db bun.IDB, contestID int64) (int, error) {
	db = r.resolveDB(db)
	res, err := db.NewDelete().
		Model((*ScoreSheet)(nil)).
		Where("contest_id = ?", contestID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("scoringdb.DeleteScoreSheets: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("scoringdb.DeleteScoreSheets: %w", err)
	}
	return int(n), nil
}

// DeleteContestantSheets removes the sheets of the given contestants in one
// contest.
func (r *Impl) DeleteContestantSheets(ctx context.Context, db bun.IDB, contestID int64, contestantIDs []int64) (int, error) {
	if len(contestantIDs) == 0 {
		return 0, nil
	}
	db = r.resolveDB(db)
	res, err := db.NewDelete().
		Model((*ScoreSheet)(nil)).
		Where("contest_id = ?", contestID).
		Where("contestant_id IN (?)", bun.In(contestantIDs)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("scoringdb.DeleteContestantSheets: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("scoringdb.DeleteContestantSheets: %w", err)
	}
	return int(n), nil
}

// SetSheetSchool moves one sheet to another school.
func (r *Impl) SetSheetSchool(ctx context.Context, db bun.IDB, contestID, contestantID, schoolID int64) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*ScoreSheet)(nil)).
		Set("school_id = ?", schoolID).
		Set("updated_at = ?", time.Now().UTC()).
		Where("contest_id = ?", contestID).
		Where("contestant_id = ?", contestantID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("scoringdb.SetSheetSchool: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("scoringdb.SetSheetSchool: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
