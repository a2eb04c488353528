package scoringservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	scoringdomain "github.com/baysaa41/mmo-ranking/app/modules/scoring/domain"
	scoringdb "github.com/baysaa41/mmo-ranking/app/modules/scoring/infrastructure/repositories"
	"github.com/baysaa41/mmo-ranking/app/observability"
	"github.com/baysaa41/mmo-ranking/app/shared/attr"
	"github.com/baysaa41/mmo-ranking/app/shared/operations"
	"github.com/baysaa41/mmo-ranking/app/shared/results"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "ScoringService"

// ScoringService implements the Service interface.
type ScoringService struct {
	repo          scoringdb.Repository
	logger        *slog.Logger
	metrics       observability.Metrics
	tracer        trace.Tracer
	db            *bun.DB
	lockNamespace int32
}

// NewScoringService creates a new ScoringService.
func NewScoringService(
	repo scoringdb.Repository,
	logger *slog.Logger,
	metrics observability.Metrics,
	tracer trace.Tracer,
	db *bun.DB,
	lockNamespace int32,
) *ScoringService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScoringService{
		repo:          repo,
		logger:        logger,
		metrics:       metrics,
		tracer:        tracer,
		db:            db,
		lockNamespace: lockNamespace,
	}
}

var _ Service = (*ScoringService)(nil)

func (s *ScoringService) telemetry() operations.Telemetry {
	return operations.Telemetry{Service: serviceName, Logger: s.logger, Metrics: s.metrics, Tracer: s.tracer}
}

// Aggregate builds or refreshes the score sheets of one contest in a single
// transaction.
func (s *ScoringService) Aggregate(ctx context.Context, contestID int64, opts AggregateOptions) (*AggregationSummary, error) {
	aggregateTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*AggregationSummary, error], error) {
		return s.aggregateLogic(ctx, db, contestID, opts)
	}

	result, err := operations.WithTelemetry(s.telemetry(), ctx, "Aggregate", strconv.FormatInt(contestID, 10),
		func(ctx context.Context) (results.OperationResult[*AggregationSummary, error], error) {
			return operations.RunInTx(ctx, s.db, aggregateTx)
		})
	return operations.Unwrap(result, err)
}

func (s *ScoringService) aggregateLogic(ctx context.Context, db bun.IDB, contestID int64, opts AggregateOptions) (results.OperationResult[*AggregationSummary, error], error) {
	locked, err := s.repo.TryLockContest(ctx, db, s.lockNamespace, contestID)
	if err != nil {
		return results.OperationResult[*AggregationSummary, error]{}, err
	}
	if !locked {
		return results.FailureResult[*AggregationSummary, error](ErrContestBusy), nil
	}

	contest, err := s.repo.GetContest(ctx, db, contestID)
	if err != nil {
		if errors.Is(err, scoringdb.ErrNotFound) {
			return results.FailureResult[*AggregationSummary, error](fmt.Errorf("%w: %d", ErrContestNotFound, contestID)), nil
		}
		return results.OperationResult[*AggregationSummary, error]{}, fmt.Errorf("failed to load contest: %w", err)
	}

	problemCount, err := s.repo.CountProblems(ctx, db, contestID)
	if err != nil {
		return results.OperationResult[*AggregationSummary, error]{}, fmt.Errorf("failed to count problems: %w", err)
	}
	if problemCount == 0 {
		return results.FailureResult[*AggregationSummary, error](fmt.Errorf("%w: %d", ErrContestHasNoProblems, contestID)), nil
	}

	summary := &AggregationSummary{ContestID: contestID}

	if opts.ForceDelete {
		n, err := s.repo.DeleteScoreSheets(ctx, db, contestID)
		if err != nil {
			return results.OperationResult[*AggregationSummary, error]{}, fmt.Errorf("failed to delete score sheets: %w", err)
		}
		summary.Deleted = n
	}

	rows, err := s.repo.ListResultRows(ctx, db, contestID)
	if err != nil {
		return results.OperationResult[*AggregationSummary, error]{}, fmt.Errorf("failed to load results: %w", err)
	}
	summary.Results = len(rows)

	domainRows := make([]scoringdomain.ResultRow, len(rows))
	for i, r := range rows {
		domainRows[i] = scoringdomain.ResultRow{ContestantID: r.ContestantID, ProblemOrder: r.ProblemOrder, Score: r.Score}
	}
	agg := scoringdomain.AggregateResults(domainRows, problemCount)
	summary.InvalidOrders = agg.InvalidOrders
	if agg.InvalidOrders > 0 {
		s.logger.WarnContext(ctx, "Ignored results with an invalid problem order",
			attr.ContestID(contestID),
			attr.Int("count", agg.InvalidOrders),
		)
	}

	contestantIDs := make([]int64, len(agg.Sheets))
	for i, sheet := range agg.Sheets {
		contestantIDs[i] = sheet.ContestantID
	}

	profileRows, err := s.repo.GetProfiles(ctx, db, contestantIDs)
	if err != nil {
		return results.OperationResult[*AggregationSummary, error]{}, fmt.Errorf("failed to load profiles: %w", err)
	}
	profiles := make(map[int64]scoringdb.ProfileRow, len(profileRows))
	for _, p := range profileRows {
		profiles[p.UserID] = p
	}

	var existing []scoringdb.ScoreSheet
	if !opts.ForceDelete {
		existing, err = s.repo.ListScoreSheets(ctx, db, contestID)
		if err != nil {
			return results.OperationResult[*AggregationSummary, error]{}, fmt.Errorf("failed to load score sheets: %w", err)
		}
	}
	existingByContestant := make(map[int64]scoringdb.ScoreSheet, len(existing))
	for _, sheet := range existing {
		existingByContestant[sheet.ContestantID] = sheet
	}

	schools, err := s.repo.ListSchools(ctx, db, referencedSchools(profileRows, existing))
	if err != nil {
		return results.OperationResult[*AggregationSummary, error]{}, fmt.Errorf("failed to load schools: %w", err)
	}

	var toWrite []*scoringdb.ScoreSheet
	kept := make(map[int64]struct{}, len(agg.Sheets))
	for _, sheet := range agg.Sheets {
		profile, ok := profiles[sheet.ContestantID]
		if !ok {
			summary.MissingProfiles = append(summary.MissingProfiles, sheet.ContestantID)
			s.logger.WarnContext(ctx, "Skipping contestant without profile",
				attr.ContestID(contestID),
				attr.Int64("contestant_id", sheet.ContestantID),
			)
			continue
		}
		if profile.SchoolID == nil || profile.ProvinceID == nil {
			summary.MissingRegion = append(summary.MissingRegion, sheet.ContestantID)
			s.logger.WarnContext(ctx, "Skipping contestant without school or province",
				attr.ContestID(contestID),
				attr.Int64("contestant_id", sheet.ContestantID),
			)
			continue
		}

		prev, hasPrev := existingByContestant[sheet.ContestantID]
		schoolID := *profile.SchoolID
		if hasPrev && prev.SchoolID != nil {
			schoolID = *prev.SchoolID
		}
		official := scoringdomain.IsOfficial(contest.Round, contest.LevelID, schools[schoolID].OfficialLevelIDs)
		if !official && !opts.IncludeUnofficial {
			summary.Unofficial = append(summary.Unofficial, sheet.ContestantID)
			continue
		}

		if hasPrev {
			if scoringdomain.SameScores(prev.Scores, sheet.Scores) && prev.Total == sheet.Total && prev.IsOfficial == official {
				summary.Unchanged++
				kept[sheet.ContestantID] = struct{}{}
				continue
			}
			updated := prev
			updated.Scores = sheet.Scores
			updated.Total = sheet.Total
			updated.IsOfficial = official
			toWrite = append(toWrite, &updated)
			kept[sheet.ContestantID] = struct{}{}
			summary.Updated++
			continue
		}

		toWrite = append(toWrite, &scoringdb.ScoreSheet{
			ContestantID: sheet.ContestantID,
			ContestID:    contestID,
			SchoolID:     profile.SchoolID,
			Scores:       sheet.Scores,
			Total:        sheet.Total,
			IsOfficial:   official,
		})
		kept[sheet.ContestantID] = struct{}{}
		summary.Created++
	}

	// Sheets left over from an earlier run must not stay ranked.
	for _, prev := range existing {
		if _, ok := kept[prev.ContestantID]; !ok {
			summary.Stale = append(summary.Stale, prev.ContestantID)
		}
	}
	if len(summary.Stale) > 0 {
		n, err := s.repo.DeleteContestantSheets(ctx, db, contestID, summary.Stale)
		if err != nil {
			return results.OperationResult[*AggregationSummary, error]{}, fmt.Errorf("failed to delete stale score sheets: %w", err)
		}
		summary.Deleted += n
		s.logger.InfoContext(ctx, "Removed stale score sheets",
			attr.ContestID(contestID),
			attr.Int("count", n),
		)
	}

	if err := s.repo.UpsertScoreSheets(ctx, db, toWrite); err != nil {
		return results.OperationResult[*AggregationSummary, error]{}, fmt.Errorf("failed to save score sheets: %w", err)
	}

	s.logger.InfoContext(ctx, "Score sheets aggregated",
		attr.ContestID(contestID),
		attr.Int("created", summary.Created),
		attr.Int("updated", summary.Updated),
		attr.Int("unchanged", summary.Unchanged),
		attr.Int("skipped", summary.Skipped()),
	)

	return results.SuccessResult[*AggregationSummary, error](summary), nil
}

// SetSheetSchool moves a sheet to another school.
func (s *ScoringService) SetSheetSchool(ctx context.Context, contestID, contestantID, schoolID int64) error {
	setSchoolTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error) {
		schools, err := s.repo.ListSchools(ctx, db, []int64{schoolID})
		if err != nil {
			return results.OperationResult[bool, error]{}, fmt.Errorf("failed to load school: %w", err)
		}
		if _, ok := schools[schoolID]; !ok {
			return results.FailureResult[bool, error](fmt.Errorf("%w: %d", ErrSchoolNotFound, schoolID)), nil
		}
		if err := s.repo.SetSheetSchool(ctx, db, contestID, contestantID, schoolID); err != nil {
			if errors.Is(err, scoringdb.ErrNotFound) {
				return results.FailureResult[bool, error](ErrScoreSheetNotFound), nil
			}
			return results.OperationResult[bool, error]{}, fmt.Errorf("failed to update score sheet: %w", err)
		}
		return results.SuccessResult[bool, error](true), nil
	}

	identifier := fmt.Sprintf("%d/%d", contestID, contestantID)
	result, err := operations.WithTelemetry(s.telemetry(), ctx, "SetSheetSchool", identifier,
		func(ctx context.Context) (results.OperationResult[bool, error], error) {
			return operations.RunInTx(ctx, s.db, setSchoolTx)
		})
	_, err = operations.Unwrap(result, err)
	return err
}

func referencedSchools(profiles []scoringdb.ProfileRow, sheets []scoringdb.ScoreSheet) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	add := func(id *int64) {
		if id == nil {
			return
		}
		if _, ok := seen[*id]; ok {
			return
		}
		seen[*id] = struct{}{}
		ids = append(ids, *id)
	}
	for _, p := range profiles {
		add(p.SchoolID)
	}
	for _, s := range sheets {
		add(s.SchoolID)
	}
	return ids
}
