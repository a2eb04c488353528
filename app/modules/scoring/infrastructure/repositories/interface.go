package scoringdb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository defines the contract for contest, result and score sheet
// persistence. Every method accepts an optional bun.IDB so callers can run it
// inside their transaction; nil falls back to the repository connection.
type Repository interface {
	GetContest(ctx context.Context, db bun.IDB, contestID int64) (*Contest, error)
	CountProblems(ctx context.Context, db bun.IDB, contestID int64) (int, error)
	ListResultRows(ctx context.Context, db bun.IDB, contestID int64) ([]ResultRow, error)
	GetProfiles(ctx context.Context, db bun.IDB, userIDs []int64) ([]ProfileRow, error)
	ListSchools(ctx context.Context, db bun.IDB, schoolIDs []int64) (map[int64]School, error)
	TryLockContest(ctx context.Context, db bun.IDB, namespace int32, contestID int64) (bool, error)

	ListScoreSheets(ctx context.Context, db bun.IDB, contestID int64) ([]ScoreSheet, error)
	UpsertScoreSheets(ctx context.Context, db bun.IDB, sheets []*ScoreSheet) error
	DeleteScoreSheets(ctx context.Context, db bun.IDB, contestID int64) (int, error)
	DeleteContestantSheets(ctx context.Context, db bun.IDB, contestID int64, contestantIDs []int64) (int, error)
	SetSheetSchool(ctx context.Context, db bun.IDB, contestID, contestantID, schoolID int64) error
}
