package scoringservice

import (
	"context"
	"errors"
)

var (
	ErrContestNotFound      = errors.New("contest not found")
	ErrContestHasNoProblems = errors.New("contest has no problems")
	ErrContestBusy          = errors.New("another run holds the contest lock")
	ErrScoreSheetNotFound   = errors.New("score sheet not found")
	ErrSchoolNotFound       = errors.New("school not found")
)

// Service folds graded results into score sheets.
type Service interface {
	// Aggregate builds or refreshes the score sheets of one contest.
	Aggregate(ctx context.Context, contestID int64, opts AggregateOptions) (*AggregationSummary, error)
	// SetSheetSchool is the admin override for the school a sheet counts for.
	SetSheetSchool(ctx context.Context, contestID, contestantID, schoolID int64) error
}

// AggregateOptions controls one aggregation run.
type AggregateOptions struct {
	// ForceDelete drops the contest's sheets before regenerating them.
	ForceDelete bool
	// IncludeUnofficial keeps contestants whose school does not participate
	// officially, flagged is_official=false, instead of skipping them.
	IncludeUnofficial bool
}

// AggregationSummary reports what one aggregation run did.
type AggregationSummary struct {
	ContestID       int64
	Results         int
	Created         int
	Updated         int
	Unchanged       int
	Deleted         int
	InvalidOrders   int
	MissingProfiles []int64
	MissingRegion   []int64
	Unofficial      []int64
	// Stale lists contestants whose existing sheet was removed because this
	// run no longer produces one for them.
	Stale []int64
}

// Skipped is the number of contestants with results but no sheet written.
func (s AggregationSummary) Skipped() int {
	return len(s.MissingProfiles) + len(s.MissingRegion) + len(s.Unofficial)
}
