package scoringservice

import (
	"context"

	scoringdb "github.com/baysaa41/mmo-ranking/app/modules/scoring/infrastructure/repositories"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Scoring Repo
// ------------------------

type FakeScoringRepo struct {
	trace []string

	GetContestFunc             func(ctx context.Context, db bun.IDB, contestID int64) (*scoringdb.Contest, error)
	CountProblemsFunc          func(ctx context.Context, db bun.IDB, contestID int64) (int, error)
	ListResultRowsFunc         func(ctx context.Context, db bun.IDB, contestID int64) ([]scoringdb.ResultRow, error)
	GetProfilesFunc            func(ctx context.Context, db bun.IDB, userIDs []int64) ([]scoringdb.ProfileRow, error)
	ListSchoolsFunc            func(ctx context.Context, db bun.IDB, schoolIDs []int64) (map[int64]scoringdb.School, error)
	TryLockContestFunc         func(ctx context.Context, db bun.IDB, namespace int32, contestID int64) (bool, error)
	ListScoreSheetsFunc        func(ctx context.Context, db bun.IDB, contestID int64) ([]scoringdb.ScoreSheet, error)
	UpsertScoreSheetsFunc      func(ctx context.Context, db bun.IDB, sheets []*scoringdb.ScoreSheet) error
	DeleteScoreSheetsFunc      func(ctx context.Context, db bun.IDB, contestID int64) (int, error)
	DeleteContestantSheetsFunc func(ctx context.Context, db bun.IDB, contestID int64, contestantIDs []int64) (int, error)
	SetSheetSchoolFunc         func(ctx context.Context, db bun.IDB, contestID, contestantID, schoolID int64) error
}

func NewFakeScoringRepo() *FakeScoringRepo {
	return &FakeScoringRepo{
		trace: []string{},
	}
}

func (f *FakeScoringRepo) record(step string) {
	f.trace = append(f.trace, step)
}

// --- Repository Interface Implementation ---

func (f *FakeScoringRepo) GetContest(ctx context.Context, db bun.IDB, contestID int64) (*scoringdb.Contest, error) {
	f.record("GetContest")
	if f.GetContestFunc != nil {
		return f.GetContestFunc(ctx, db, contestID)
	}
	return nil, scoringdb.ErrNotFound
}

func (f *FakeScoringRepo) CountProblems(ctx context.Context, db bun.IDB, contestID int64) (int, error) {
	f.record("CountProblems")
	if f.CountProblemsFunc != nil {
		return f.CountProblemsFunc(ctx, db, contestID)
	}
	return 0, nil
}

func (f *FakeScoringRepo) ListResultRows(ctx context.Context, db bun.IDB, contestID int64) ([]scoringdb.ResultRow, error) {
	f.record("ListResultRows")
	if f.ListResultRowsFunc != nil {
		return f.ListResultRowsFunc(ctx, db, contestID)
	}
	return nil, nil
}

func (f *FakeScoringRepo) GetProfiles(ctx context.Context, db bun.IDB, userIDs []int64) ([]scoringdb.ProfileRow, error) {
	f.record("GetProfiles")
	if f.GetProfilesFunc != nil {
		return f.GetProfilesFunc(ctx, db, userIDs)
	}
	return nil, nil
}

func (f *FakeScoringRepo) ListSchools(ctx context.Context, db bun.IDB, schoolIDs []int64) (map[int64]scoringdb.School, error) {
	f.record("ListSchools")
	if f.ListSchoolsFunc != nil {
		return f.ListSchoolsFunc(ctx, db, schoolIDs)
	}
	return map[int64]scoringdb.School{}, nil
}

func (f *FakeScoringRepo) TryLockContest(ctx context.Context, db bun.IDB, namespace int32, contestID int64) (bool, error) {
	f.record("TryLockContest")
	if f.TryLockContestFunc != nil {
		return f.TryLockContestFunc(ctx, db, namespace, contestID)
	}
	return true, nil
}

func (f *FakeScoringRepo) ListScoreSheets(ctx context.Context, db bun.IDB, contestID int64) ([]scoringdb.ScoreSheet, error) {
	f.record("ListScoreSheets")
	if f.ListScoreSheetsFunc != nil {
		return f.ListScoreSheetsFunc(ctx, db, contestID)
	}
	return nil, nil
}

func (f *FakeScoringRepo) UpsertScoreSheets(ctx context.Context, db bun.IDB, sheets []*scoringdb.ScoreSheet) error {
	f.record("UpsertScoreSheets")
	if f.UpsertScoreSheetsFunc != nil {
		return f.UpsertScoreSheetsFunc(ctx, db, sheets)
	}
	return nil
}

func (f *FakeScoringRepo) DeleteScoreSheets(ctx context.Context, db bun.IDB, contestID int64) (int, error) {
	f.record("DeleteScoreSheets")
	if f.DeleteScoreSheetsFunc != nil {
		return f.DeleteScoreSheetsFunc(ctx, db, contestID)
	}
	return 0, nil
}

func (f *FakeScoringRepo) DeleteContestantSheets(ctx context.Context, db bun.IDB, contestID int64, contestantIDs []int64) (int, error) {
	f.record("DeleteContestantSheets")
	if f.DeleteContestantSheetsFunc != nil {
		return f.DeleteContestantSheetsFunc(ctx, db, contestID, contestantIDs)
	}
	return len(contestantIDs), nil
}

func (f *FakeScoringRepo) SetSheetSchool(ctx context.Context, db bun.IDB, contestID, contestantID, schoolID int64) error {
	f.record("SetSheetSchool")
	if f.SetSheetSchoolFunc != nil {
		return f.SetSheetSchoolFunc(ctx, db, contestID, contestantID, schoolID)
	}
	return nil
}

// --- Accessors for assertions ---

func (f *FakeScoringRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// Ensure the fake actually satisfies the interface
var _ scoringdb.Repository = (*FakeScoringRepo)(nil)
