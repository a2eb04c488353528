package rankingservice

import (
	"context"
	"errors"
	"time"

	rankingdomain "github.com/baysaa41/mmo-ranking/app/modules/ranking/domain"
	rankingdb "github.com/baysaa41/mmo-ranking/app/modules/ranking/infrastructure/repositories"
	"github.com/google/uuid"
)

var (
	ErrContestNotFound   = errors.New("contest not found")
	ErrRankingInProgress = errors.New("ranking already in progress for contest")
	ErrNoActiveSnapshot  = errors.New("contest has no active ranking")
	ErrInvalidRetention  = errors.New("snapshot retention must be at least 1")
)

// Service computes and serves contest rankings.
type Service interface {
	// RankContest replaces the contest's active ranking with a fresh snapshot.
	RankContest(ctx context.Context, contestID int64) (*RankingSummary, error)
	ActiveSnapshot(ctx context.Context, contestID int64) (*rankingdb.RankingSnapshot, error)
	// Standings lists one scope of the active snapshot by list rank.
	Standings(ctx context.Context, contestID int64, scope rankingdomain.Scope) ([]rankingdb.Standing, error)
}

// Options tunes a RankingService.
type Options struct {
	LockNamespace     int32
	SnapshotRetention int
}

// RankingSummary describes one completed ranking pass.
type RankingSummary struct {
	ContestID  int64
	SnapshotID uuid.UUID
	ComputedAt time.Time
	Sheets     int
	Scopes     int
	Entries    int
	Pruned     int
}
