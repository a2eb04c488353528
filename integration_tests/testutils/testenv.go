package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/baysaa41/mmo-ranking/config"
	"github.com/baysaa41/mmo-ranking/integration_tests/containers"
)

// TestEnvironment holds all resources needed for integration testing
type TestEnvironment struct {
	Ctx           context.Context
	CancelContext context.CancelFunc
	PgContainer   *postgres.PostgresContainer
	NatsContainer testcontainers.Container
	DB            *bun.DB
	Config        *config.Config
}

// NewTestEnvironment starts Postgres and NATS, migrates every module and
// River, and returns a config pointing at both. Tests are skipped under
// -short.
func NewTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	env := &TestEnvironment{Ctx: ctx, CancelContext: cancel}
	t.Cleanup(env.Cleanup)

	if err := env.setupContainers(ctx); err != nil {
		t.Fatalf("failed to set up test environment: %v", err)
	}
	return env
}

func (env *TestEnvironment) setupContainers(ctx context.Context) error {
	pgContainer, pgConnStr, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		return fmt.Errorf("failed to setup postgres container: %w", err)
	}
	env.PgContainer = pgContainer

	natsContainer, natsURL, err := containers.SetupNatsContainer(ctx)
	if err != nil {
		return fmt.Errorf("failed to setup nats container: %w", err)
	}
	env.NatsContainer = natsContainer

	sqlDB, err := sql.Open("pgx", pgConnStr)
	if err != nil {
		return fmt.Errorf("failed to open sql DB connection: %w", err)
	}
	env.DB = bun.NewDB(sqlDB, pgdialect.New())

	if err := runMigrations(ctx, env.DB, pgConnStr); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	cfg := config.Defaults()
	cfg.Postgres.DSN = pgConnStr
	cfg.NATS.URL = natsURL
	if err := config.Validate(&cfg); err != nil {
		return err
	}
	env.Config = &cfg
	return nil
}

// Reset empties every application table and the job queue between tests.
func (env *TestEnvironment) Reset(t *testing.T) {
	t.Helper()
	if err := CleanupDatabase(env.Ctx, env.DB); err != nil {
		t.Fatalf("failed to clean database: %v", err)
	}
}

func (env *TestEnvironment) Cleanup() {
	if env.DB != nil {
		_ = env.DB.Close()
	}
	if env.NatsContainer != nil {
		_ = env.NatsContainer.Terminate(context.Background())
	}
	if env.PgContainer != nil {
		_ = env.PgContainer.Terminate(context.Background())
	}
	env.CancelContext()
}
