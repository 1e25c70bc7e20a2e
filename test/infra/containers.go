package infra

import (
	"context"
	"os"

	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// Postgres wraps the throwaway database a stress run executes against. The
// zero value stands in when an external database is reused, so Terminate is
// always safe to call.
type Postgres struct {
	container *postgres.PostgresContainer
}

// StartPostgres16 boots a Postgres 16 container and returns its DSN.
// overrideDSN or STRESS_TEST_PG_DSN short-circuits the container and points
// the run at an existing database instead.
func StartPostgres16(ctx context.Context, overrideDSN string) (*Postgres, string, error) {
	if overrideDSN != "" {
		return &Postgres{}, overrideDSN, nil
	}
	if dsn := os.Getenv("STRESS_TEST_PG_DSN"); dsn != "" {
		return &Postgres{}, dsn, nil
	}

	ctr, err := postgres.Run(ctx,
		"postgres:16",
		postgres.WithDatabase("sahayak_test"),
		postgres.WithUsername("sahayak"),
		postgres.WithPassword("sahayak-test-pw"),
	)
	if err != nil {
		return nil, "", err
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, "", err
	}
	return &Postgres{container: ctr}, dsn, nil
}

func (p *Postgres) Terminate(ctx context.Context) error {
	if p == nil || p.container == nil {
		return nil
	}
	return p.container.Terminate(ctx)
}
