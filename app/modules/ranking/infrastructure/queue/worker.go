package rankingqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	rankingservice "github.com/baysaa41/mmo-ranking/app/modules/ranking/application"
	"github.com/baysaa41/mmo-ranking/app/shared/attr"
	"github.com/riverqueue/river"
)

// busySnooze is how long a job waits when another run holds the contest lock.
const busySnooze = 30 * time.Second

// Ranker is the part of the ranking service the worker drives.
type Ranker interface {
	RankContest(ctx context.Context, contestID int64) (*rankingservice.RankingSummary, error)
}

// RankContestWorker runs RankContest for queued contests.
type RankContestWorker struct {
	river.WorkerDefaults[RankContestJob]
	ranker  Ranker
	logger  *slog.Logger
	timeout time.Duration
}

func NewRankContestWorker(logger *slog.Logger, ranker Ranker, timeout time.Duration) *RankContestWorker {
	return &RankContestWorker{ranker: ranker, logger: logger, timeout: timeout}
}

// Timeout bounds one ranking pass. Zero falls back to River's default.
func (w *RankContestWorker) Timeout(*river.Job[RankContestJob]) time.Duration {
	return w.timeout
}

func (w *RankContestWorker) Work(ctx context.Context, job *river.Job[RankContestJob]) error {
	if job.Args.CorrelationID != "" {
		ctx = attr.WithCorrelationID(ctx, job.Args.CorrelationID)
	}
	logger := w.logger.With(
		attr.Int64("job_id", job.ID),
		attr.ContestID(job.Args.ContestID),
		attr.Int("attempt", job.Attempt),
	)

	summary, err := w.ranker.RankContest(ctx, job.Args.ContestID)
	switch {
	case err == nil:
		logger.InfoContext(ctx, "Ranking job completed",
			attr.String("snapshot_id", summary.SnapshotID.String()),
			attr.Int("sheets", summary.Sheets),
		)
		return nil
	case errors.Is(err, rankingservice.ErrRankingInProgress):
		logger.InfoContext(ctx, "Contest is being ranked elsewhere, snoozing", attr.Duration("snooze", busySnooze))
		return river.JobSnooze(busySnooze)
	case errors.Is(err, rankingservice.ErrContestNotFound):
		logger.WarnContext(ctx, "Cancelling ranking job for unknown contest", attr.Error(err))
		return river.JobCancel(err)
	default:
		logger.ErrorContext(ctx, "Ranking job failed", attr.Error(err))
		return fmt.Errorf("rank contest %d: %w", job.Args.ContestID, err)
	}
}
