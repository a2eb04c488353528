package quotaservice

import (
	"context"

	quotadb "github.com/baysaa41/mmo-ranking/app/modules/quota/infrastructure/repositories"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Quota Repo
// ------------------------

type FakeQuotaRepo struct {
	trace []string

	TryLockContestFunc       func(ctx context.Context, db bun.IDB, namespace int32, contestID int64) (bool, error)
	GetContestFunc           func(ctx context.Context, db bun.IDB, contestID int64) (*quotadb.ContestRef, error)
	HasActiveSnapshotFunc    func(ctx context.Context, db bun.IDB, contestID int64) (bool, error)
	ListCandidatesFunc       func(ctx context.Context, db bun.IDB, contestID int64) ([]quotadb.CandidateRow, error)
	ListTotalsFunc           func(ctx context.Context, db bun.IDB, contestID int64) ([]float64, error)
	DeleteAwardsByPrefixFunc func(ctx context.Context, db bun.IDB, contestIDs []int64, prefix string) (int, error)
	InsertAwardsFunc         func(ctx context.Context, db bun.IDB, awards []*quotadb.Award) error
	ListAwardsFunc           func(ctx context.Context, db bun.IDB, contestID int64) ([]quotadb.Award, error)
	ListSheetPrizesFunc      func(ctx context.Context, db bun.IDB, contestIDs []int64) ([]quotadb.SheetPrizes, error)
	UpdateSheetPrizesFunc    func(ctx context.Context, db bun.IDB, updates []quotadb.SheetPrizes) error
}

func NewFakeQuotaRepo() *FakeQuotaRepo {
	return &FakeQuotaRepo{
		trace: []string{},
	}
}

func (f *FakeQuotaRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeQuotaRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeQuotaRepo) TryLockContest(ctx context.Context, db bun.IDB, namespace int32, contestID int64) (bool, error) {
	f.record("TryLockContest")
	if f.TryLockContestFunc != nil {
		return f.TryLockContestFunc(ctx, db, namespace, contestID)
	}
	return true, nil
}

func (f *FakeQuotaRepo) GetContest(ctx context.Context, db bun.IDB, contestID int64) (*quotadb.ContestRef, error) {
	f.record("GetContest")
	if f.GetContestFunc != nil {
		return f.GetContestFunc(ctx, db, contestID)
	}
	return &quotadb.ContestRef{ID: contestID}, nil
}

func (f *FakeQuotaRepo) HasActiveSnapshot(ctx context.Context, db bun.IDB, contestID int64) (bool, error) {
	f.record("HasActiveSnapshot")
	if f.HasActiveSnapshotFunc != nil {
		return f.HasActiveSnapshotFunc(ctx, db, contestID)
	}
	return true, nil
}

func (f *FakeQuotaRepo) ListCandidates(ctx context.Context, db bun.IDB, contestID int64) ([]quotadb.CandidateRow, error) {
	f.record("ListCandidates")
	if f.ListCandidatesFunc != nil {
		return f.ListCandidatesFunc(ctx, db, contestID)
	}
	return nil, nil
}

func (f *FakeQuotaRepo) ListTotals(ctx context.Context, db bun.IDB, contestID int64) ([]float64, error) {
	f.record("ListTotals")
	if f.ListTotalsFunc != nil {
		return f.ListTotalsFunc(ctx, db, contestID)
	}
	return nil, nil
}

func (f *FakeQuotaRepo) DeleteAwardsByPrefix(ctx context.Context, db bun.IDB, contestIDs []int64, prefix string) (int, error) {
	f.record("DeleteAwardsByPrefix")
	if f.DeleteAwardsByPrefixFunc != nil {
		return f.DeleteAwardsByPrefixFunc(ctx, db, contestIDs, prefix)
	}
	return 0, nil
}

func (f *FakeQuotaRepo) InsertAwards(ctx context.Context, db bun.IDB, awards []*quotadb.Award) error {
	f.record("InsertAwards")
	if f.InsertAwardsFunc != nil {
		return f.InsertAwardsFunc(ctx, db, awards)
	}
	return nil
}

func (f *FakeQuotaRepo) ListAwards(ctx context.Context, db bun.IDB, contestID int64) ([]quotadb.Award, error) {
	f.record("ListAwards")
	if f.ListAwardsFunc != nil {
		return f.ListAwardsFunc(ctx, db, contestID)
	}
	return nil, nil
}

func (f *FakeQuotaRepo) ListSheetPrizes(ctx context.Context, db bun.IDB, contestIDs []int64) ([]quotadb.SheetPrizes, error) {
	f.record("ListSheetPrizes")
	if f.ListSheetPrizesFunc != nil {
		return f.ListSheetPrizesFunc(ctx, db, contestIDs)
	}
	return nil, nil
}

func (f *FakeQuotaRepo) UpdateSheetPrizes(ctx context.Context, db bun.IDB, updates []quotadb.SheetPrizes) error {
	f.record("UpdateSheetPrizes")
	if f.UpdateSheetPrizesFunc != nil {
		return f.UpdateSheetPrizesFunc(ctx, db, updates)
	}
	return nil
}

var _ quotadb.Repository = (*FakeQuotaRepo)(nil)
