package rankingservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	rankingdomain "github.com/baysaa41/mmo-ranking/app/modules/ranking/domain"
	rankingevents "github.com/baysaa41/mmo-ranking/app/modules/ranking/infrastructure/events"
	rankingdb "github.com/baysaa41/mmo-ranking/app/modules/ranking/infrastructure/repositories"
	"github.com/baysaa41/mmo-ranking/app/observability"
	"github.com/baysaa41/mmo-ranking/app/shared/attr"
	"github.com/baysaa41/mmo-ranking/app/shared/operations"
	"github.com/baysaa41/mmo-ranking/app/shared/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "RankingService"

// RankingService implements the Service interface.
type RankingService struct {
	repo      rankingdb.Repository
	publisher rankingevents.Publisher
	logger    *slog.Logger
	metrics   observability.Metrics
	tracer    trace.Tracer
	db        *bun.DB
	opts      Options

	now   func() time.Time
	newID func() uuid.UUID
}

// NewRankingService creates a new RankingService. A nil publisher disables
// events.
func NewRankingService(
	repo rankingdb.Repository,
	publisher rankingevents.Publisher,
	logger *slog.Logger,
	metrics observability.Metrics,
	tracer trace.Tracer,
	db *bun.DB,
	opts Options,
) (*RankingService, error) {
	if opts.SnapshotRetention < 1 {
		return nil, ErrInvalidRetention
	}
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = rankingevents.NoopPublisher{}
	}
	return &RankingService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
		db:        db,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.New,
	}, nil
}

var _ Service = (*RankingService)(nil)

func (s *RankingService) telemetry() operations.Telemetry {
	return operations.Telemetry{Service: serviceName, Logger: s.logger, Metrics: s.metrics, Tracer: s.tracer}
}

// RankContest ranks every scope of a contest into a new snapshot and swaps it
// in. The whole pass is one transaction holding the contest lock, so a
// failure leaves the previous snapshot active.
func (s *RankingService) RankContest(ctx context.Context, contestID int64) (*RankingSummary, error) {
	rankTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*RankingSummary, error], error) {
		return s.rankLogic(ctx, db, contestID)
	}

	result, err := operations.WithTelemetry(s.telemetry(), ctx, "RankContest", strconv.FormatInt(contestID, 10),
		func(ctx context.Context) (results.OperationResult[*RankingSummary, error], error) {
			return operations.RunInTx(ctx, s.db, rankTx)
		})
	summary, err := operations.Unwrap(result, err)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordSheetsRanked(ctx, contestID, summary.Sheets, summary.Scopes)
	}

	// only committed snapshots are announced
	event := rankingevents.RankingCompleted{
		ContestID:  contestID,
		SnapshotID: summary.SnapshotID,
		ComputedAt: summary.ComputedAt,
		SheetCount: summary.Sheets,
		ScopeCount: summary.Scopes,
	}
	if err := s.publisher.PublishRankingCompleted(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ranking event",
			attr.ContestID(contestID),
			attr.Error(err),
		)
	}

	return summary, nil
}

func (s *RankingService) rankLogic(ctx context.Context, db bun.IDB, contestID int64) (results.OperationResult[*RankingSummary, error], error) {
	locked, err := s.repo.TryLockContest(ctx, db, s.opts.LockNamespace, contestID)
	if err != nil {
		return results.OperationResult[*RankingSummary, error]{}, err
	}
	if !locked {
		return results.FailureResult[*RankingSummary, error](fmt.Errorf("%w: %d", ErrRankingInProgress, contestID)), nil
	}

	exists, err := s.repo.ContestExists(ctx, db, contestID)
	if err != nil {
		return results.OperationResult[*RankingSummary, error]{}, err
	}
	if !exists {
		return results.FailureResult[*RankingSummary, error](fmt.Errorf("%w: %d", ErrContestNotFound, contestID)), nil
	}

	sheets, err := s.repo.ListRankableSheets(ctx, db, contestID)
	if err != nil {
		return results.OperationResult[*RankingSummary, error]{}, fmt.Errorf("failed to load score sheets: %w", err)
	}

	members := make([]rankingdomain.Member, len(sheets))
	for i, sh := range sheets {
		members[i] = rankingdomain.Member{
			SheetID:      sh.SheetID,
			ContestantID: sh.ContestantID,
			ProvinceID:   sh.ProvinceID,
			ZoneID:       sh.ZoneID,
			Total:        sh.Total,
			IsOfficial:   sh.IsOfficial,
		}
	}
	rows, scopes := rankingdomain.RankAll(members)

	snapshot := &rankingdb.RankingSnapshot{
		ID:         s.newID(),
		ContestID:  contestID,
		ComputedAt: s.now(),
		SheetCount: len(sheets),
		ScopeCount: len(scopes),
	}
	if err := s.repo.InsertSnapshot(ctx, db, snapshot); err != nil {
		return results.OperationResult[*RankingSummary, error]{}, err
	}

	entries := make([]rankingdb.RankingEntry, len(rows))
	for i, r := range rows {
		entries[i] = rankingdb.RankingEntry{
			SnapshotID:   snapshot.ID,
			ScopeKind:    string(r.Scope.Kind),
			ScopeID:      r.Scope.ID,
			Population:   string(r.Scope.Population),
			ScoreSheetID: r.SheetID,
			ContestantID: r.ContestantID,
			Total:        r.Total,
			RankingA:     r.RankingA,
			RankingB:     r.RankingB,
			ListRank:     r.ListRank,
		}
	}
	if err := s.repo.InsertEntries(ctx, db, entries); err != nil {
		return results.OperationResult[*RankingSummary, error]{}, err
	}

	if err := s.repo.ActivateSnapshot(ctx, db, contestID, snapshot.ID); err != nil {
		return results.OperationResult[*RankingSummary, error]{}, err
	}

	pruned, err := s.repo.PruneSnapshots(ctx, db, contestID, s.opts.SnapshotRetention)
	if err != nil {
		return results.OperationResult[*RankingSummary, error]{}, err
	}

	s.logger.InfoContext(ctx, "Contest ranked",
		attr.ContestID(contestID),
		attr.String("snapshot_id", snapshot.ID.String()),
		attr.Int("sheets", len(sheets)),
		attr.Int("scopes", len(scopes)),
		attr.Int("pruned", pruned),
	)

	return results.SuccessResult[*RankingSummary, error](&RankingSummary{
		ContestID:  contestID,
		SnapshotID: snapshot.ID,
		ComputedAt: snapshot.ComputedAt,
		Sheets:     len(sheets),
		Scopes:     len(scopes),
		Entries:    len(entries),
		Pruned:     pruned,
	}), nil
}

// ActiveSnapshot returns the contest's current snapshot.
func (s *RankingService) ActiveSnapshot(ctx context.Context, contestID int64) (*rankingdb.RankingSnapshot, error) {
	result, err := operations.WithTelemetry(s.telemetry(), ctx, "ActiveSnapshot", strconv.FormatInt(contestID, 10),
		func(ctx context.Context) (results.OperationResult[*rankingdb.RankingSnapshot, error], error) {
			return s.activeSnapshot(ctx, nil, contestID)
		})
	return operations.Unwrap(result, err)
}

func (s *RankingService) activeSnapshot(ctx context.Context, db bun.IDB, contestID int64) (results.OperationResult[*rankingdb.RankingSnapshot, error], error) {
	snapshot, err := s.repo.GetActiveSnapshot(ctx, db, contestID)
	if err != nil {
		if errors.Is(err, rankingdb.ErrNotFound) {
			return results.FailureResult[*rankingdb.RankingSnapshot, error](fmt.Errorf("%w: %d", ErrNoActiveSnapshot, contestID)), nil
		}
		return results.OperationResult[*rankingdb.RankingSnapshot, error]{}, err
	}
	return results.SuccessResult[*rankingdb.RankingSnapshot, error](snapshot), nil
}

// Standings lists one scope of the contest's active snapshot.
func (s *RankingService) Standings(ctx context.Context, contestID int64, scope rankingdomain.Scope) ([]rankingdb.Standing, error) {
	identifier := fmt.Sprintf("%d/%s", contestID, scope)
	result, err := operations.WithTelemetry(s.telemetry(), ctx, "Standings", identifier,
		func(ctx context.Context) (results.OperationResult[[]rankingdb.Standing, error], error) {
			snap, err := s.activeSnapshot(ctx, nil, contestID)
			if err != nil || snap.IsFailure() {
				return results.OperationResult[[]rankingdb.Standing, error]{Failure: snap.Failure}, err
			}
			rows, err := s.repo.ListStandings(ctx, nil, (*snap.Success).ID, string(scope.Kind), scope.ID, string(scope.Population))
			if err != nil {
				return results.OperationResult[[]rankingdb.Standing, error]{}, err
			}
			return results.SuccessResult[[]rankingdb.Standing, error](rows), nil
		})
	return operations.Unwrap(result, err)
}
