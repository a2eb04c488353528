package rankingqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/baysaa41/mmo-ranking/app/observability"
	"github.com/baysaa41/mmo-ranking/app/shared/attr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/uptrace/bun"
)

const metricsService = "river"

// QueueService defines the contract for ranking job operations
type QueueService interface {
	// EnqueueRankContest queues a ranking pass. A contest that already has a
	// pending or running job is reported as a duplicate, not an error.
	EnqueueRankContest(ctx context.Context, contestID int64) (jobID int64, duplicate bool, err error)
	// ListJobs returns the ranking jobs of a contest (for debugging)
	ListJobs(ctx context.Context, contestID int64) ([]JobInfo, error)
	HealthCheck(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

var _ QueueService = (*Service)(nil)

// Options configures the River client.
type Options struct {
	// MaxWorkers caps concurrent ranking jobs in this process.
	MaxWorkers int
	// JobTimeout bounds a single ranking pass.
	JobTimeout time.Duration
}

// Service handles ranking jobs using River
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	db      *bun.DB
	metrics observability.Metrics
}

// NewService creates a River-backed queue. With a nil ranker the client is
// insert-only and never works jobs, which is what the enqueue command uses.
func NewService(ctx context.Context, bunDB *bun.DB, logger *slog.Logger, dsn string, metrics observability.Metrics, ranker Ranker, opts Options) (*Service, error) {
	ctxLogger := logger.With(
		attr.String("operation", "new_ranking_queue_service"),
		attr.String("component", "river_queue"),
	)

	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_service", metricsService)

	// River requires pgx, not database/sql
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", metricsService)
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", metricsService)
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		ctxLogger.Error("Failed to ping database for River", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", metricsService)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	riverConfig := &river.Config{}
	if ranker != nil {
		maxWorkers := opts.MaxWorkers
		if maxWorkers < 1 {
			maxWorkers = 1
		}
		workers := river.NewWorkers()
		river.AddWorker(workers, NewRankContestWorker(ctxLogger, ranker, opts.JobTimeout))
		riverConfig.Workers = workers
		riverConfig.Queues = map[string]river.QueueConfig{
			QueueName: {MaxWorkers: maxWorkers},
		}
	}

	riverClient, err := river.NewClient(riverpgxv5.New(pool), riverConfig)
	if err != nil {
		pool.Close()
		ctxLogger.Error("Failed to create River client", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", metricsService)
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	metrics.RecordOperationSuccess(ctx, "initialize_service", metricsService)
	metrics.RecordOperationDuration(ctx, "initialize_service", metricsService, time.Since(start))

	ctxLogger.Info("Ranking queue service initialized", attr.Bool("worker", ranker != nil))
	return &Service{
		client:  riverClient,
		pool:    pool,
		logger:  ctxLogger,
		db:      bunDB,
		metrics: metrics,
	}, nil
}

// Start starts working the ranking queue
func (s *Service) Start(ctx context.Context) error {
	s.metrics.RecordOperationAttempt(ctx, "start_service", metricsService)
	if err := s.client.Start(ctx); err != nil {
		s.logger.Error("Failed to start River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "start_service", metricsService)
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "start_service", metricsService)
	s.logger.Info("Ranking queue service started")
	return nil
}

// Stop waits for running jobs and releases the pgx pool.
func (s *Service) Stop(ctx context.Context) error {
	s.metrics.RecordOperationAttempt(ctx, "stop_service", metricsService)
	defer s.pool.Close()

	if err := s.client.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "stop_service", metricsService)
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "stop_service", metricsService)
	s.logger.Info("Ranking queue service stopped")
	return nil
}

// Close releases the pgx pool of an insert-only service.
func (s *Service) Close() {
	s.pool.Close()
}

func (s *Service) EnqueueRankContest(ctx context.Context, contestID int64) (int64, bool, error) {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "enqueue_rank_contest", metricsService)

	job := RankContestJob{ContestID: contestID, CorrelationID: attr.CorrelationID(ctx)}

	res, err := s.client.Insert(ctx, job, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to enqueue ranking job", attr.ContestID(contestID), attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "enqueue_rank_contest", metricsService)
		return 0, false, fmt.Errorf("failed to enqueue ranking job: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "enqueue_rank_contest", metricsService)
	s.metrics.RecordOperationDuration(ctx, "enqueue_rank_contest", metricsService, time.Since(start))

	s.logger.InfoContext(ctx, "Ranking job enqueued",
		attr.ContestID(contestID),
		attr.Int64("job_id", res.Job.ID),
		attr.Bool("duplicate", res.UniqueSkippedAsDuplicate),
	)
	return res.Job.ID, res.UniqueSkippedAsDuplicate, nil
}

func (s *Service) ListJobs(ctx context.Context, contestID int64) ([]JobInfo, error) {
	type riverJobRow struct {
		ID          int64     `bun:"id"`
		State       string    `bun:"state"`
		CreatedAt   time.Time `bun:"created_at"`
		Attempt     int16     `bun:"attempt"`
		MaxAttempts int16     `bun:"max_attempts"`
	}

	var jobs []riverJobRow
	err := s.db.NewSelect().
		Table("river_job").
		Column("id", "state", "created_at", "attempt", "max_attempts").
		Where("kind = ?", RankContestJob{}.Kind()).
		Where("(args->>'contest_id')::bigint = ?", contestID).
		Order("created_at DESC").
		Scan(ctx, &jobs)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranking jobs: %w", err)
	}

	out := make([]JobInfo, len(jobs))
	for i, j := range jobs {
		out[i] = JobInfo{
			ID:          j.ID,
			ContestID:   contestID,
			State:       j.State,
			CreatedAt:   j.CreatedAt.Format(time.RFC3339),
			Attempt:     int(j.Attempt),
			MaxAttempts: int(j.MaxAttempts),
		}
	}
	return out, nil
}

// HealthCheck verifies the queue tables are reachable
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("river client is nil")
	}
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("queue service health check failed: %w", err)
	}
	var count int
	err := s.db.NewSelect().
		Table("river_job").
		ColumnExpr("COUNT(*)").
		Where("state = ?", "available").
		Scan(ctx, &count)
	if err != nil {
		return fmt.Errorf("queue service health check failed: %w", err)
	}
	s.logger.Debug("Queue service health check passed", attr.Int("available_jobs", count))
	return nil
}
