package rankingservice

import (
	"context"
	"sync"

	rankingevents "github.com/baysaa41/mmo-ranking/app/modules/ranking/infrastructure/events"
	rankingdb "github.com/baysaa41/mmo-ranking/app/modules/ranking/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Ranking Repo
// ------------------------

type FakeRankingRepo struct {
	trace []string

	TryLockContestFunc     func(ctx context.Context, db bun.IDB, namespace int32, contestID int64) (bool, error)
	ContestExistsFunc      func(ctx context.Context, db bun.IDB, contestID int64) (bool, error)
	ListRankableSheetsFunc func(ctx context.Context, db bun.IDB, contestID int64) ([]rankingdb.SheetRow, error)
	InsertSnapshotFunc     func(ctx context.Context, db bun.IDB, snapshot *rankingdb.RankingSnapshot) error
	InsertEntriesFunc      func(ctx context.Context, db bun.IDB, entries []rankingdb.RankingEntry) error
	ActivateSnapshotFunc   func(ctx context.Context, db bun.IDB, contestID int64, snapshotID uuid.UUID) error
	PruneSnapshotsFunc     func(ctx context.Context, db bun.IDB, contestID int64, keep int) (int, error)
	GetActiveSnapshotFunc  func(ctx context.Context, db bun.IDB, contestID int64) (*rankingdb.RankingSnapshot, error)
	ListStandingsFunc      func(ctx context.Context, db bun.IDB, snapshotID uuid.UUID, kind string, scopeID int64, population string) ([]rankingdb.Standing, error)
}

func NewFakeRankingRepo() *FakeRankingRepo {
	return &FakeRankingRepo{
		trace: []string{},
	}
}

func (f *FakeRankingRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeRankingRepo) TryLockContest(ctx context.Context, db bun.IDB, namespace int32, contestID int64) (bool, error) {
	f.record("TryLockContest")
	if f.TryLockContestFunc != nil {
		return f.TryLockContestFunc(ctx, db, namespace, contestID)
	}
	return true, nil
}

func (f *FakeRankingRepo) ContestExists(ctx context.Context, db bun.IDB, contestID int64) (bool, error) {
	f.record("ContestExists")
	if f.ContestExistsFunc != nil {
		return f.ContestExistsFunc(ctx, db, contestID)
	}
	return true, nil
}

func (f *FakeRankingRepo) ListRankableSheets(ctx context.Context, db bun.IDB, contestID int64) ([]rankingdb.SheetRow, error) {
	f.record("ListRankableSheets")
	if f.ListRankableSheetsFunc != nil {
		return f.ListRankableSheetsFunc(ctx, db, contestID)
	}
	return nil, nil
}

func (f *FakeRankingRepo) InsertSnapshot(ctx context.Context, db bun.IDB, snapshot *rankingdb.RankingSnapshot) error {
	f.record("InsertSnapshot")
	if f.InsertSnapshotFunc != nil {
		return f.InsertSnapshotFunc(ctx, db, snapshot)
	}
	return nil
}

func (f *FakeRankingRepo) InsertEntries(ctx context.Context, db bun.IDB, entries []rankingdb.RankingEntry) error {
	f.record("InsertEntries")
	if f.InsertEntriesFunc != nil {
		return f.InsertEntriesFunc(ctx, db, entries)
	}
	return nil
}

func (f *FakeRankingRepo) ActivateSnapshot(ctx context.Context, db bun.IDB, contestID int64, snapshotID uuid.UUID) error {
	f.record("ActivateSnapshot")
	if f.ActivateSnapshotFunc != nil {
		return f.ActivateSnapshotFunc(ctx, db, contestID, snapshotID)
	}
	return nil
}

func (f *FakeRankingRepo) PruneSnapshots(ctx context.Context, db bun.IDB, contestID int64, keep int) (int, error) {
	f.record("PruneSnapshots")
	if f.PruneSnapshotsFunc != nil {
		return f.PruneSnapshotsFunc(ctx, db, contestID, keep)
	}
	return 0, nil
}

func (f *FakeRankingRepo) GetActiveSnapshot(ctx context.Context, db bun.IDB, contestID int64) (*rankingdb.RankingSnapshot, error) {
	f.record("GetActiveSnapshot")
	if f.GetActiveSnapshotFunc != nil {
		return f.GetActiveSnapshotFunc(ctx, db, contestID)
	}
	return nil, rankingdb.ErrNotFound
}

func (f *FakeRankingRepo) ListStandings(ctx context.Context, db bun.IDB, snapshotID uuid.UUID, kind string, scopeID int64, population string) ([]rankingdb.Standing, error) {
	f.record("ListStandings")
	if f.ListStandingsFunc != nil {
		return f.ListStandingsFunc(ctx, db, snapshotID, kind, scopeID, population)
	}
	return nil, nil
}

func (f *FakeRankingRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

var _ rankingdb.Repository = (*FakeRankingRepo)(nil)

// ------------------------
// Fake Publisher
// ------------------------

type FakePublisher struct {
	mu     sync.Mutex
	events []rankingevents.RankingCompleted
	err    error
}

func (p *FakePublisher) PublishRankingCompleted(ctx context.Context, event rankingevents.RankingCompleted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *FakePublisher) Close() {}

func (p *FakePublisher) Events() []rankingevents.RankingCompleted {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]rankingevents.RankingCompleted, len(p.events))
	copy(out, p.events)
	return out
}

var _ rankingevents.Publisher = (*FakePublisher)(nil)
