package quotaservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	quotadomain "github.com/baysaa41/mmo-ranking/app/modules/quota/domain"
	quotadb "github.com/baysaa41/mmo-ranking/app/modules/quota/infrastructure/repositories"
	"github.com/baysaa41/mmo-ranking/app/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"
)

func i64(v int64) *int64 { return &v }

func newTestService(repo *FakeQuotaRepo) *QuotaService {
	return NewQuotaService(
		repo,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		observability.NewNoop(),
		noop.NewTracerProvider().Tracer("test"),
		nil,
		4242,
	)
}

func secondStagePlan(dryRun bool) Plan {
	rules := quotadomain.DefaultRules()
	rules.AimagListQuota = 2
	return Plan{
		Stage: quotadomain.StageSecond,
		Workbook: quotadomain.Workbook{
			Categories: []quotadomain.CategoryContests{
				{Category: "C", SourceContestID: 101},
				{Category: "D", SourceContestID: 102},
			},
			Regions: []quotadomain.RegionRow{
				{RegionID: 3, Name: "Дорнод аймаг", Values: map[string]float64{"C": 15}},
			},
		},
		Rules:  rules,
		DryRun: dryRun,
	}
}

func stageCandidates(ctx context.Context, db bun.IDB, contestID int64) ([]quotadb.CandidateRow, error) {
	switch contestID {
	case 101:
		return []quotadb.CandidateRow{
			{SheetID: 1, ContestantID: 11, ContestID: 101, LastName: "Бат", FirstName: "Болд", School: "1-р сургууль", ProvinceID: 3, Province: "Дорнод", Total: 30, RankingA: 1},
			{SheetID: 2, ContestantID: 12, ContestID: 101, LastName: "Дорж", FirstName: "Сараа", ProvinceID: 3, Province: "Дорнод", Total: 20, RankingA: 2},
			{SheetID: 3, ContestantID: 13, ContestID: 101, LastName: "Ган", FirstName: "Тулга", ProvinceID: 3, Province: "Дорнод", Total: 16, RankingA: 3},
			{SheetID: 4, ContestantID: 14, ContestID: 101, LastName: "Оюун", FirstName: "Эрдэнэ", ProvinceID: 3, Province: "Дорнод", Total: 10, RankingA: 4},
		}, nil
	case 102:
		return []quotadb.CandidateRow{
			{SheetID: 5, ContestantID: 15, ContestID: 102, LastName: "Нараа", ProvinceID: 3, Province: "Дорнод", Total: 9, RankingA: 1},
		}, nil
	}
	return nil, nil
}

func stageSheets() []quotadb.SheetPrizes {
	return []quotadb.SheetPrizes{
		{SheetID: 1, ContestID: 101, ContestantID: 11, Prizes: "Алт медаль, 2.1 эрх нэмэлтээр"},
		{SheetID: 2, ContestID: 101, ContestantID: 12},
		{SheetID: 3, ContestID: 101, ContestantID: 13},
		{SheetID: 4, ContestID: 101, ContestantID: 14, Prizes: "2.1 эрх жагсаалтаас"},
		{SheetID: 5, ContestID: 102, ContestantID: 15},
		{SheetID: 6, ContestID: 102, ContestantID: 16, Prizes: "Мөнгөн медаль"},
	}
}

func TestSelectNextStage(t *testing.T) {
	type captured struct {
		deletedFor []int64
		prefix     string
		awards     []*quotadb.Award
		updates    []quotadb.SheetPrizes
	}

	happyRepo := func(f *FakeQuotaRepo, c *captured) {
		f.GetContestFunc = func(ctx context.Context, db bun.IDB, contestID int64) (*quotadb.ContestRef, error) {
			if contestID == 101 {
				return &quotadb.ContestRef{ID: 101, NextRoundID: i64(201)}, nil
			}
			return &quotadb.ContestRef{ID: contestID}, nil
		}
		f.ListCandidatesFunc = stageCandidates
		f.DeleteAwardsByPrefixFunc = func(ctx context.Context, db bun.IDB, contestIDs []int64, prefix string) (int, error) {
			c.deletedFor, c.prefix = contestIDs, prefix
			return 3, nil
		}
		f.InsertAwardsFunc = func(ctx context.Context, db bun.IDB, awards []*quotadb.Award) error {
			c.awards = awards
			return nil
		}
		f.ListSheetPrizesFunc = func(ctx context.Context, db bun.IDB, contestIDs []int64) ([]quotadb.SheetPrizes, error) {
			return stageSheets(), nil
		}
		f.UpdateSheetPrizesFunc = func(ctx context.Context, db bun.IDB, updates []quotadb.SheetPrizes) error {
			c.updates = updates
			return nil
		}
	}

	tests := []struct {
		name      string
		plan      Plan
		setupRepo func(*FakeQuotaRepo, *captured)
		wantErr   error
		anyErr    bool
		wantTrace []string
		check     func(t *testing.T, s *StageSummary, c *captured)
	}{
		{
			name:      "selects, awards and relabels",
			plan:      secondStagePlan(false),
			setupRepo: happyRepo,
			wantTrace: []string{
				"TryLockContest", "GetContest", "HasActiveSnapshot",
				"TryLockContest", "GetContest", "HasActiveSnapshot",
				"ListCandidates", "ListCandidates",
				"DeleteAwardsByPrefix", "InsertAwards", "ListSheetPrizes", "UpdateSheetPrizes",
			},
			check: func(t *testing.T, s *StageSummary, c *captured) {
				assert.Equal(t, []int64{101, 102}, s.ContestIDs)
				assert.Equal(t, 5, s.Candidates)
				assert.Equal(t, 3, s.AwardsDeleted)
				assert.Equal(t, 4, s.AwardsCreated)
				assert.Equal(t, 5, s.SheetsUpdated)

				assert.Equal(t, []int64{101, 102}, c.deletedFor)
				assert.Equal(t, "2.1", c.prefix)

				require.Len(t, s.Selections, 4)
				assert.Equal(t, "Бат Болд", s.Selections[0].Name)
				assert.Equal(t, "1-р сургууль", s.Selections[0].School)
				assert.Equal(t, unknownSchool, s.Selections[1].School)
				assert.Equal(t, "Дорнод аймаг", s.Selections[0].Region)
				assert.Equal(t, int64(201), s.Selections[0].TargetContestID)
				assert.Equal(t, int64(0), s.Selections[3].TargetContestID)

				places := map[int64]string{}
				for _, a := range c.awards {
					places[a.ContestantID] = a.Place
				}
				assert.Equal(t, map[int64]string{
					11: quotadomain.LabelSecondList,
					12: quotadomain.LabelSecondList,
					13: quotadomain.LabelSecondExtra,
					15: quotadomain.LabelSecondList,
				}, places)

				prizes := map[int64]string{}
				for _, u := range c.updates {
					prizes[u.SheetID] = u.Prizes
				}
				assert.Equal(t, map[int64]string{
					1: "Алт медаль, " + quotadomain.LabelSecondList,
					2: quotadomain.LabelSecondList,
					3: quotadomain.LabelSecondExtra,
					4: "",
					5: quotadomain.LabelSecondList,
				}, prizes)

				assert.Equal(t, []Count{
					{Category: "C", Label: quotadomain.LabelSecondList, Region: "Дорнод аймаг", N: 2},
					{Category: "C", Label: quotadomain.LabelSecondExtra, Region: "Дорнод аймаг", N: 1},
					{Category: "D", Label: quotadomain.LabelSecondList, Region: "Дорнод аймаг", N: 1},
				}, s.Counts)
			},
		},
		{
			name:      "dry run writes nothing",
			plan:      secondStagePlan(true),
			setupRepo: happyRepo,
			wantTrace: []string{
				"TryLockContest", "GetContest", "HasActiveSnapshot",
				"TryLockContest", "GetContest", "HasActiveSnapshot",
				"ListCandidates", "ListCandidates",
			},
			check: func(t *testing.T, s *StageSummary, c *captured) {
				assert.True(t, s.DryRun)
				assert.Len(t, s.Selections, 4)
				assert.Zero(t, s.AwardsCreated)
				assert.Nil(t, c.awards)
			},
		},
		{
			name: "contest locked by another run",
			plan: secondStagePlan(false),
			setupRepo: func(f *FakeQuotaRepo, c *captured) {
				f.TryLockContestFunc = func(ctx context.Context, db bun.IDB, namespace int32, contestID int64) (bool, error) {
					return contestID != 102, nil
				}
			},
			wantErr: ErrSelectionInProgress,
			wantTrace: []string{
				"TryLockContest", "GetContest", "HasActiveSnapshot",
				"TryLockContest",
			},
		},
		{
			name: "source contest never ranked",
			plan: secondStagePlan(false),
			setupRepo: func(f *FakeQuotaRepo, c *captured) {
				f.HasActiveSnapshotFunc = func(ctx context.Context, db bun.IDB, contestID int64) (bool, error) {
					return false, nil
				}
			},
			wantErr:   ErrNoActiveSnapshot,
			wantTrace: []string{"TryLockContest", "GetContest", "HasActiveSnapshot"},
		},
		{
			name: "unknown contest",
			plan: secondStagePlan(false),
			setupRepo: func(f *FakeQuotaRepo, c *captured) {
				f.GetContestFunc = func(ctx context.Context, db bun.IDB, contestID int64) (*quotadb.ContestRef, error) {
					return nil, quotadb.ErrNotFound
				}
			},
			wantErr:   ErrContestNotFound,
			wantTrace: []string{"TryLockContest", "GetContest"},
		},
		{
			name: "no fourth round contest in workbook",
			plan: func() Plan {
				p := secondStagePlan(false)
				p.Stage = quotadomain.StageFourth
				return p
			}(),
			setupRepo: func(f *FakeQuotaRepo, c *captured) {},
			wantErr:   ErrNoSourceContests,
			wantTrace: []string{},
		},
		{
			name: "insert failure is an error",
			plan: secondStagePlan(false),
			setupRepo: func(f *FakeQuotaRepo, c *captured) {
				happyRepo(f, c)
				f.InsertAwardsFunc = func(ctx context.Context, db bun.IDB, awards []*quotadb.Award) error {
					return errors.New("connection reset")
				}
			},
			anyErr: true,
			wantTrace: []string{
				"TryLockContest", "GetContest", "HasActiveSnapshot",
				"TryLockContest", "GetContest", "HasActiveSnapshot",
				"ListCandidates", "ListCandidates",
				"DeleteAwardsByPrefix", "InsertAwards",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakeQuotaRepo()
			c := &captured{}
			tt.setupRepo(repo, c)
			svc := newTestService(repo)

			summary, err := svc.SelectNextStage(context.Background(), tt.plan)

			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, summary)
			case tt.anyErr:
				require.Error(t, err)
				assert.Contains(t, err.Error(), "SelectNextStage")
			default:
				require.NoError(t, err)
				tt.check(t, summary, c)
			}
			assert.Equal(t, tt.wantTrace, repo.Trace())
		})
	}
}

func TestSyncPrizes(t *testing.T) {
	repo := NewFakeQuotaRepo()
	repo.ListAwardsFunc = func(ctx context.Context, db bun.IDB, contestID int64) ([]quotadb.Award, error) {
		return []quotadb.Award{
			{ContestID: contestID, ContestantID: 11, Place: quotadomain.LabelSecondList},
			{ContestID: contestID, ContestantID: 11, Place: "Хүрэл медаль"},
			{ContestID: contestID, ContestantID: 13, Place: "Мөнгөн медаль"},
		}, nil
	}
	repo.ListSheetPrizesFunc = func(ctx context.Context, db bun.IDB, contestIDs []int64) ([]quotadb.SheetPrizes, error) {
		require.Equal(t, []int64{7}, contestIDs)
		return []quotadb.SheetPrizes{
			{SheetID: 1, ContestID: 7, ContestantID: 11},
			{SheetID: 2, ContestID: 7, ContestantID: 12, Prizes: "хуучин шагнал"},
			{SheetID: 3, ContestID: 7, ContestantID: 13, Prizes: "Мөнгөн медаль"},
		}, nil
	}
	var updates []quotadb.SheetPrizes
	repo.UpdateSheetPrizesFunc = func(ctx context.Context, db bun.IDB, u []quotadb.SheetPrizes) error {
		updates = u
		return nil
	}

	summary, err := newTestService(repo).SyncPrizes(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, &PrizeSummary{ContestID: 7, Sheets: 3, Awards: 3, Updated: 2}, summary)
	require.Len(t, updates, 2)
	assert.Equal(t, "Хүрэл медаль, "+quotadomain.LabelSecondList, updates[0].Prizes)
	assert.Equal(t, int64(2), updates[1].SheetID)
	assert.Equal(t, "", updates[1].Prizes)
	assert.Equal(t, []string{"TryLockContest", "GetContest", "ListAwards", "ListSheetPrizes", "UpdateSheetPrizes"}, repo.Trace())
}

func TestSyncPrizes_Failures(t *testing.T) {
	t.Run("missing contest", func(t *testing.T) {
		repo := NewFakeQuotaRepo()
		repo.GetContestFunc = func(ctx context.Context, db bun.IDB, contestID int64) (*quotadb.ContestRef, error) {
			return nil, quotadb.ErrNotFound
		}
		_, err := newTestService(repo).SyncPrizes(context.Background(), 7)
		assert.ErrorIs(t, err, ErrContestNotFound)
	})

	t.Run("locked", func(t *testing.T) {
		repo := NewFakeQuotaRepo()
		repo.TryLockContestFunc = func(ctx context.Context, db bun.IDB, namespace int32, contestID int64) (bool, error) {
			return false, nil
		}
		_, err := newTestService(repo).SyncPrizes(context.Background(), 7)
		assert.ErrorIs(t, err, ErrSelectionInProgress)
		assert.Equal(t, []string{"TryLockContest"}, repo.Trace())
	})
}

func TestScoreTotals(t *testing.T) {
	repo := NewFakeQuotaRepo()
	repo.ListTotalsFunc = func(ctx context.Context, db bun.IDB, contestID int64) ([]float64, error) {
		return []float64{21, 14, 3}, nil
	}
	totals, err := newTestService(repo).ScoreTotals(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []float64{21, 14, 3}, totals)

	repo = NewFakeQuotaRepo()
	repo.GetContestFunc = func(ctx context.Context, db bun.IDB, contestID int64) (*quotadb.ContestRef, error) {
		return nil, quotadb.ErrNotFound
	}
	_, err = newTestService(repo).ScoreTotals(context.Background(), 7)
	assert.ErrorIs(t, err, ErrContestNotFound)
}
