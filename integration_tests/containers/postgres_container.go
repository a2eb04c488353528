package containers

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const pgImage = "postgres:16-alpine"

// pgCredentials are the throwaway credentials of the test database.
type pgCredentials struct {
	database string
	user     string
	password string
}

func (c pgCredentials) dsn(host string, port nat.Port) string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		c.user, c.password, net.JoinHostPort(host, port.Port()), c.database)
}

// SetupPostgresContainer starts an empty "ranking" database and returns the
// container with a DSN usable by both pgdriver and pgx. Schema is left to the
// migrations.
func SetupPostgresContainer(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	creds := pgCredentials{database: "ranking", user: "ranking", password: "ranking"}

	pg, err := postgres.Run(ctx, pgImage,
		postgres.WithDatabase(creds.database),
		postgres.WithUsername(creds.user),
		postgres.WithPassword(creds.password),
		testcontainers.WithWaitStrategy(
			wait.ForSQL("5432/tcp", "pgx", creds.dsn).WithStartupTimeout(45*time.Second),
		),
	)
	if err != nil {
		if pg != nil {
			_ = pg.Terminate(ctx)
		}
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := pg.Host(ctx)
	if err != nil {
		_ = pg.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to resolve postgres host: %w", err)
	}
	port, err := pg.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = pg.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to resolve postgres port: %w", err)
	}

	return pg, creds.dsn(host, port), nil
}
