package quotaservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	quotadomain "github.com/baysaa41/mmo-ranking/app/modules/quota/domain"
	quotadb "github.com/baysaa41/mmo-ranking/app/modules/quota/infrastructure/repositories"
	"github.com/baysaa41/mmo-ranking/app/observability"
	"github.com/baysaa41/mmo-ranking/app/shared/attr"
	"github.com/baysaa41/mmo-ranking/app/shared/operations"
	"github.com/baysaa41/mmo-ranking/app/shared/results"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

const (
	serviceName   = "QuotaService"
	unknownSchool = "Тодорхойгүй"
)

// QuotaService implements the Service interface.
type QuotaService struct {
	repo          quotadb.Repository
	logger        *slog.Logger
	metrics       observability.Metrics
	tracer        trace.Tracer
	db            *bun.DB
	lockNamespace int32
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(
	repo quotadb.Repository,
	logger *slog.Logger,
	metrics observability.Metrics,
	tracer trace.Tracer,
	db *bun.DB,
	lockNamespace int32,
) *QuotaService {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuotaService{
		repo:          repo,
		logger:        logger,
		metrics:       metrics,
		tracer:        tracer,
		db:            db,
		lockNamespace: lockNamespace,
	}
}

var _ Service = (*QuotaService)(nil)

func (s *QuotaService) telemetry() operations.Telemetry {
	return operations.Telemetry{Service: serviceName, Logger: s.logger, Metrics: s.metrics, Tracer: s.tracer}
}

// SelectNextStage runs a stage in one transaction: prior awards and labels of
// the stage are replaced on every source contest, or nothing changes.
func (s *QuotaService) SelectNextStage(ctx context.Context, plan Plan) (*StageSummary, error) {
	selectTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*StageSummary, error], error) {
		return s.selectLogic(ctx, db, plan)
	}

	result, err := operations.WithTelemetry(s.telemetry(), ctx, "SelectNextStage", string(plan.Stage),
		func(ctx context.Context) (results.OperationResult[*StageSummary, error], error) {
			return operations.RunInTx(ctx, s.db, selectTx)
		})
	summary, err := operations.Unwrap(result, err)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil && !summary.DryRun {
		byLabel := make(map[string]int)
		for _, sel := range summary.Selections {
			byLabel[sel.Label]++
		}
		for label, n := range byLabel {
			s.metrics.RecordCandidatesSelected(ctx, string(plan.Stage), label, n)
		}
	}
	return summary, nil
}

func (s *QuotaService) selectLogic(ctx context.Context, db bun.IDB, plan Plan) (results.OperationResult[*StageSummary, error], error) {
	sources := plan.Workbook.SourceContests(plan.Stage)
	if len(sources) == 0 {
		return results.FailureResult[*StageSummary, error](fmt.Errorf("%w: %s", ErrNoSourceContests, plan.Stage)), nil
	}

	contestIDs := make([]int64, 0, len(sources))
	for _, src := range sources {
		contestIDs = append(contestIDs, src.SourceContestID)
	}
	slices.Sort(contestIDs)
	contestIDs = slices.Compact(contestIDs)

	// locks are taken in id order so two stage runs cannot deadlock
	nextRound := make(map[int64]int64, len(contestIDs))
	for _, id := range contestIDs {
		next, failure, err := s.prepareContest(ctx, db, id)
		if err != nil {
			return results.OperationResult[*StageSummary, error]{}, err
		}
		if failure != nil {
			return results.FailureResult[*StageSummary, error](failure), nil
		}
		if next != 0 {
			nextRound[id] = next
		}
	}

	var candidates []quotadomain.Candidate
	for _, src := range sources {
		rows, err := s.repo.ListCandidates(ctx, db, src.SourceContestID)
		if err != nil {
			return results.OperationResult[*StageSummary, error]{}, fmt.Errorf("failed to load candidates: %w", err)
		}
		for _, row := range rows {
			candidates = append(candidates, toCandidate(row, src.Category, plan.Workbook))
		}
	}

	selections, err := quotadomain.SelectStage(plan.Stage, plan.Rules, plan.Workbook, candidates)
	if err != nil {
		return results.OperationResult[*StageSummary, error]{}, err
	}
	for i := range selections {
		if selections[i].TargetContestID == 0 {
			selections[i].TargetContestID = nextRound[selections[i].ContestID]
		}
	}

	summary := &StageSummary{
		Stage:      plan.Stage,
		DryRun:     plan.DryRun,
		ContestIDs: contestIDs,
		Candidates: len(candidates),
		Selections: selections,
		Counts:     countSelections(selections),
	}

	if plan.DryRun {
		s.logger.InfoContext(ctx, "Stage selection computed (dry run)",
			attr.String("stage", string(plan.Stage)),
			attr.Int("candidates", len(candidates)),
			attr.Int("selected", len(selections)),
		)
		return results.SuccessResult[*StageSummary, error](summary), nil
	}

	prefix := plan.Stage.Prefix()
	deleted, err := s.repo.DeleteAwardsByPrefix(ctx, db, contestIDs, prefix)
	if err != nil {
		return results.OperationResult[*StageSummary, error]{}, err
	}
	summary.AwardsDeleted = deleted

	awards := make([]*quotadb.Award, 0, len(selections))
	labels := make(map[int64][]string)
	for _, sel := range selections {
		awards = append(awards, &quotadb.Award{
			ContestID:    sel.ContestID,
			ContestantID: sel.ContestantID,
			Place:        sel.Label,
		})
		labels[sel.SheetID] = append(labels[sel.SheetID], sel.Label)
	}
	if err := s.repo.InsertAwards(ctx, db, awards); err != nil {
		return results.OperationResult[*StageSummary, error]{}, err
	}
	summary.AwardsCreated = len(awards)

	sheets, err := s.repo.ListSheetPrizes(ctx, db, contestIDs)
	if err != nil {
		return results.OperationResult[*StageSummary, error]{}, err
	}
	var updates []quotadb.SheetPrizes
	for _, sh := range sheets {
		prizes := quotadomain.StripPrefixed(sh.Prizes, prefix)
		for _, label := range labels[sh.SheetID] {
			prizes = quotadomain.AppendLabel(prizes, label)
		}
		if prizes != sh.Prizes {
			sh.Prizes = prizes
			updates = append(updates, sh)
		}
	}
	if err := s.repo.UpdateSheetPrizes(ctx, db, updates); err != nil {
		return results.OperationResult[*StageSummary, error]{}, err
	}
	summary.SheetsUpdated = len(updates)

	s.logger.InfoContext(ctx, "Stage selection saved",
		attr.String("stage", string(plan.Stage)),
		attr.Int64s("contest_ids", contestIDs),
		attr.Int("awards_deleted", deleted),
		attr.Int("awards_created", len(awards)),
		attr.Int("sheets_updated", len(updates)),
	)

	return results.SuccessResult[*StageSummary, error](summary), nil
}

// prepareContest locks a source contest and checks it can be selected from.
// It returns the contest's next round, 0 when unset.
func (s *QuotaService) prepareContest(ctx context.Context, db bun.IDB, contestID int64) (nextRoundID int64, failure, err error) {
	locked, err := s.repo.TryLockContest(ctx, db, s.lockNamespace, contestID)
	if err != nil {
		return 0, nil, err
	}
	if !locked {
		return 0, fmt.Errorf("%w: %d", ErrSelectionInProgress, contestID), nil
	}

	contest, err := s.repo.GetContest(ctx, db, contestID)
	if err != nil {
		if errors.Is(err, quotadb.ErrNotFound) {
			return 0, fmt.Errorf("%w: %d", ErrContestNotFound, contestID), nil
		}
		return 0, nil, err
	}
	if contest.NextRoundID != nil {
		nextRoundID = *contest.NextRoundID
	}

	active, err := s.repo.HasActiveSnapshot(ctx, db, contestID)
	if err != nil {
		return 0, nil, err
	}
	if !active {
		return 0, fmt.Errorf("%w: %d", ErrNoActiveSnapshot, contestID), nil
	}
	return nextRoundID, nil, nil
}

func toCandidate(row quotadb.CandidateRow, category string, wb quotadomain.Workbook) quotadomain.Candidate {
	school := row.School
	if school == "" {
		school = unknownSchool
	}
	region := wb.RegionName(row.ProvinceID)
	if region == "" {
		region = row.Province
	}
	return quotadomain.Candidate{
		ContestantID: row.ContestantID,
		SheetID:      row.SheetID,
		ContestID:    row.ContestID,
		Name:         strings.TrimSpace(row.LastName + " " + row.FirstName),
		School:       school,
		RegionID:     row.ProvinceID,
		Region:       region,
		Category:     category,
		Total:        row.Total,
		Rank:         row.RankingA,
	}
}

func countSelections(selections []quotadomain.Selection) []Count {
	idx := make(map[Count]int)
	var out []Count
	for _, sel := range selections {
		k := Count{Category: sel.Category, Label: sel.Label, Region: sel.Region}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, k)
		}
		out[i].N++
	}
	return out
}

// SyncPrizes sets every sheet's prizes of a contest to its awards, ordered by
// medal tier. Sheets without awards end up with empty prizes.
func (s *QuotaService) SyncPrizes(ctx context.Context, contestID int64) (*PrizeSummary, error) {
	syncTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*PrizeSummary, error], error) {
		return s.syncLogic(ctx, db, contestID)
	}

	result, err := operations.WithTelemetry(s.telemetry(), ctx, "SyncPrizes", strconv.FormatInt(contestID, 10),
		func(ctx context.Context) (results.OperationResult[*PrizeSummary, error], error) {
			return operations.RunInTx(ctx, s.db, syncTx)
		})
	return operations.Unwrap(result, err)
}

func (s *QuotaService) syncLogic(ctx context.Context, db bun.IDB, contestID int64) (results.OperationResult[*PrizeSummary, error], error) {
	locked, err := s.repo.TryLockContest(ctx, db, s.lockNamespace, contestID)
	if err != nil {
		return results.OperationResult[*PrizeSummary, error]{}, err
	}
	if !locked {
		return results.FailureResult[*PrizeSummary, error](fmt.Errorf("%w: %d", ErrSelectionInProgress, contestID)), nil
	}

	if _, err := s.repo.GetContest(ctx, db, contestID); err != nil {
		if errors.Is(err, quotadb.ErrNotFound) {
			return results.FailureResult[*PrizeSummary, error](fmt.Errorf("%w: %d", ErrContestNotFound, contestID)), nil
		}
		return results.OperationResult[*PrizeSummary, error]{}, err
	}

	awards, err := s.repo.ListAwards(ctx, db, contestID)
	if err != nil {
		return results.OperationResult[*PrizeSummary, error]{}, err
	}
	places := make(map[int64][]string)
	for _, a := range awards {
		places[a.ContestantID] = append(places[a.ContestantID], a.Place)
	}

	sheets, err := s.repo.ListSheetPrizes(ctx, db, []int64{contestID})
	if err != nil {
		return results.OperationResult[*PrizeSummary, error]{}, err
	}
	var updates []quotadb.SheetPrizes
	for _, sh := range sheets {
		prizes := quotadomain.JoinAwards(places[sh.ContestantID])
		if prizes != sh.Prizes {
			sh.Prizes = prizes
			updates = append(updates, sh)
		}
	}
	if err := s.repo.UpdateSheetPrizes(ctx, db, updates); err != nil {
		return results.OperationResult[*PrizeSummary, error]{}, err
	}

	s.logger.InfoContext(ctx, "Prizes synced",
		attr.ContestID(contestID),
		attr.Int("awards", len(awards)),
		attr.Int("updated", len(updates)),
	)

	return results.SuccessResult[*PrizeSummary, error](&PrizeSummary{
		ContestID: contestID,
		Sheets:    len(sheets),
		Awards:    len(awards),
		Updated:   len(updates),
	}), nil
}

func (s *QuotaService) ScoreTotals(ctx context.Context, contestID int64) ([]float64, error) {
	result, err := operations.WithTelemetry(s.telemetry(), ctx, "ScoreTotals", strconv.FormatInt(contestID, 10),
		func(ctx context.Context) (results.OperationResult[[]float64, error], error) {
			if _, err := s.repo.GetContest(ctx, nil, contestID); err != nil {
				if errors.Is(err, quotadb.ErrNotFound) {
					return results.FailureResult[[]float64, error](fmt.Errorf("%w: %d", ErrContestNotFound, contestID)), nil
				}
				return results.OperationResult[[]float64, error]{}, err
			}
			totals, err := s.repo.ListTotals(ctx, nil, contestID)
			if err != nil {
				return results.OperationResult[[]float64, error]{}, err
			}
			return results.SuccessResult[[]float64, error](totals), nil
		})
	return operations.Unwrap(result, err)
}
