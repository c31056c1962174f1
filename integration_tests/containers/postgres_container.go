package containers

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresImage is the server the lottery schema is tested against.
const PostgresImage = "postgres:16-alpine"

type postgresCredentials struct {
	database string
	user     string
	password string
}

func (c postgresCredentials) dsn(host string, port nat.Port) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.user, c.password, host, port.Port(), c.database)
}

// SetupPostgresContainer starts Postgres and returns the container with a
// DSN that has TLS disabled.
func SetupPostgresContainer(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	creds := postgresCredentials{database: "lottery", user: "lottery", password: "lottery"}

	pg, err := postgres.Run(ctx, PostgresImage,
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

	dsn, err := disableSSL(pg.MustConnectionString(ctx))
	if err != nil {
		_ = pg.Terminate(ctx)
		return nil, "", err
	}

	log.Printf("Postgres container ready (%s)", PostgresImage)
	return pg, dsn, nil
}

func disableSSL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse connection string: %w", err)
	}
	q := u.Query()
	q.Set("sslmode", "disable")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
