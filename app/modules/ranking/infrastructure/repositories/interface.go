package rankingdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository stores ranking snapshots. Every method takes the bun.IDB to run
// on so a whole ranking pass can share one transaction; nil means the
// repository's own handle.
type Repository interface {
	TryLockContest(ctx context.Context, db bun.IDB, namespace int32, contestID int64) (bool, error)
	ContestExists(ctx context.Context, db bun.IDB, contestID int64) (bool, error)
	ListRankableSheets(ctx context.Context, db bun.IDB, contestID int64) ([]SheetRow, error)

	InsertSnapshot(ctx context.Context, db bun.IDB, snapshot *RankingSnapshot) error
	InsertEntries(ctx context.Context, db bun.IDB, entries []RankingEntry) error
	ActivateSnapshot(ctx context.Context, db bun.IDB, contestID int64, snapshotID uuid.UUID) error
	PruneSnapshots(ctx context.Context, db bun.IDB, contestID int64, keep int) (int, error)

	GetActiveSnapshot(ctx context.Context, db bun.IDB, contestID int64) (*RankingSnapshot, error)
	ListStandings(ctx context.Context, db bun.IDB, snapshotID uuid.UUID, kind string, scopeID int64, population string) ([]Standing, error)
}
