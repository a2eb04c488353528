package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	quotaservice "github.com/baysaa41/mmo-ranking/app/modules/quota/application"
	quotadomain "github.com/baysaa41/mmo-ranking/app/modules/quota/domain"
	quotadb "github.com/baysaa41/mmo-ranking/app/modules/quota/infrastructure/repositories"
	rankingservice "github.com/baysaa41/mmo-ranking/app/modules/ranking/application"
	rankingevents "github.com/baysaa41/mmo-ranking/app/modules/ranking/infrastructure/events"
	rankingdb "github.com/baysaa41/mmo-ranking/app/modules/ranking/infrastructure/repositories"
	scoringservice "github.com/baysaa41/mmo-ranking/app/modules/scoring/application"
	scoringdb "github.com/baysaa41/mmo-ranking/app/modules/scoring/infrastructure/repositories"
	"github.com/baysaa41/mmo-ranking/app/observability"
	"github.com/baysaa41/mmo-ranking/app/shared/attr"
	"github.com/baysaa41/mmo-ranking/config"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/urfave/cli/v2"
)

// runtime holds what every command needs: config, telemetry, the database
// handle and the services built on top of it.
type runtime struct {
	cfg       *config.Config
	obs       observability.Observability
	db        *bun.DB
	publisher rankingevents.Publisher
	logFile   *os.File

	Scoring *scoringservice.ScoringService
	Ranking *rankingservice.RankingService
	Quota   *quotaservice.QuotaService
}

// setup loads config, opens Postgres and builds the services. The returned
// context carries a fresh correlation id for the run.
func setup(c *cli.Context) (context.Context, *runtime, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if c.IsSet("json-logs") {
		cfg.Observability.JSONLogs = c.Bool("json-logs")
	}
	rt := &runtime{cfg: cfg}

	var out io.Writer = os.Stderr
	if path := c.String("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		rt.logFile = f
		out = io.MultiWriter(os.Stderr, f)
	}
	rt.obs = observability.New(config.ToObsConfig(cfg), out)

	ctx := attr.WithCorrelationID(c.Context, uuid.NewString())
	logger := rt.obs.Logger.With(attr.ExtractCorrelationID(ctx), attr.String("command", c.Command.FullName()))
	rt.obs.Logger = logger

	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	rt.db = bun.NewDB(pgdb, pgdialect.New())
	if err := rt.db.PingContext(ctx); err != nil {
		rt.Close()
		return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	rt.publisher, err = rankingevents.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject, logger)
	if err != nil {
		rt.Close()
		return nil, nil, err
	}

	rt.Scoring = scoringservice.NewScoringService(
		scoringdb.NewRepository(rt.db), logger, rt.obs.Metrics, rt.obs.Tracer, rt.db, cfg.Ranking.LockNamespace,
	)
	rt.Ranking, err = rankingservice.NewRankingService(
		rankingdb.NewRepository(rt.db), rt.publisher, logger, rt.obs.Metrics, rt.obs.Tracer, rt.db,
		rankingservice.Options{
			LockNamespace:     cfg.Ranking.LockNamespace,
			SnapshotRetention: cfg.Ranking.SnapshotRetention,
		},
	)
	if err != nil {
		rt.Close()
		return nil, nil, err
	}
	rt.Quota = quotaservice.NewQuotaService(
		quotadb.NewRepository(rt.db), logger, rt.obs.Metrics, rt.obs.Tracer, rt.db, cfg.Ranking.LockNamespace,
	)

	return ctx, rt, nil
}

// QuotaRules turns the quota section of the config into selection rules.
func (rt *runtime) QuotaRules() (quotadomain.Rules, error) {
	policy, err := quotadomain.ParseTiePolicy(rt.cfg.Quota.TiePolicy)
	if err != nil {
		return quotadomain.Rules{}, err
	}
	return quotadomain.Rules{
		AimagMaxRegionID:     rt.cfg.Quota.AimagMaxRegionID,
		AimagListQuota:       rt.cfg.Quota.AimagListQuota,
		DuuregListQuota:      rt.cfg.Quota.DuuregListQuota,
		MaxFourthPerProvince: rt.cfg.Quota.MaxFourthPerProvince,
		TiePolicy:            policy,
	}, nil
}

func (rt *runtime) Close() {
	if rt.publisher != nil {
		rt.publisher.Close()
	}
	if rt.db != nil {
		_ = rt.db.Close()
	}
	if rt.logFile != nil {
		_ = rt.logFile.Close()
	}
}
