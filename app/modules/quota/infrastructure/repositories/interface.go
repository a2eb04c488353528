package quotadb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository persists awards and prize labels and reads quota candidates
// from the active ranking snapshots.
type Repository interface {
	TryLockContest(ctx context.Context, db bun.IDB, namespace int32, contestID int64) (bool, error)
	GetContest(ctx context.Context, db bun.IDB, contestID int64) (*ContestRef, error)
	HasActiveSnapshot(ctx context.Context, db bun.IDB, contestID int64) (bool, error)
	ListCandidates(ctx context.Context, db bun.IDB, contestID int64) ([]CandidateRow, error)
	ListTotals(ctx context.Context, db bun.IDB, contestID int64) ([]float64, error)

	DeleteAwardsByPrefix(ctx context.Context, db bun.IDB, contestIDs []int64, prefix string) (int, error)
	InsertAwards(ctx context.Context, db bun.IDB, awards []*Award) error
	ListAwards(ctx context.Context, db bun.IDB, contestID int64) ([]Award, error)

	ListSheetPrizes(ctx context.Context, db bun.IDB, contestIDs []int64) ([]SheetPrizes, error)
	UpdateSheetPrizes(ctx context.Context, db bun.IDB, updates []SheetPrizes) error
}
