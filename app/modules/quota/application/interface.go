package quotaservice

import (
	"context"
	"errors"

	quotadomain "github.com/baysaa41/mmo-ranking/app/modules/quota/domain"
)

var (
	ErrContestNotFound     = errors.New("contest not found")
	ErrNoActiveSnapshot    = errors.New("contest has no active ranking")
	ErrSelectionInProgress = errors.New("contest is locked by another run")
	ErrNoSourceContests    = errors.New("quota workbook names no contest for this stage")
)

// Service selects contestants for the next stage and maintains prize labels.
type Service interface {
	// SelectNextStage applies one stage to every contest the workbook names.
	SelectNextStage(ctx context.Context, plan Plan) (*StageSummary, error)
	// SyncPrizes rebuilds a contest's prize labels from its awards.
	SyncPrizes(ctx context.Context, contestID int64) (*PrizeSummary, error)
	// ScoreTotals lists the totals of a contest's score sheets, highest first.
	ScoreTotals(ctx context.Context, contestID int64) ([]float64, error)
}

// Plan is one stage run.
type Plan struct {
	Stage    quotadomain.Stage
	Workbook quotadomain.Workbook
	Rules    quotadomain.Rules
	// DryRun computes the selection without writing awards or prizes.
	DryRun bool
}

// Count is the number of selections sharing a category, label and region.
type Count struct {
	Category string
	Label    string
	Region   string
	N        int
}

// StageSummary reports a stage run.
type StageSummary struct {
	Stage         quotadomain.Stage
	DryRun        bool
	ContestIDs    []int64
	Candidates    int
	Selections    []quotadomain.Selection
	Counts        []Count
	AwardsDeleted int
	AwardsCreated int
	SheetsUpdated int
}

// PrizeSummary reports a SyncPrizes run.
type PrizeSummary struct {
	ContestID int64
	Sheets    int
	Awards    int
	Updated   int
}
