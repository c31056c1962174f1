package testutils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/Black-And-White-Club/numbers-lottery/app/eventbus"
	"github.com/Black-And-White-Club/numbers-lottery/db/bundb"
	"github.com/Black-And-White-Club/numbers-lottery/integration_tests/containers"
	"github.com/testcontainers/testcontainers-go"
	"github.com/uptrace/bun"
)

// TestEnvironment holds the containers and connections shared by the
// integration tests of one package.
type TestEnvironment struct {
	Ctx           context.Context
	Cancel        context.CancelFunc
	PgContainer   testcontainers.Container
	NatsContainer testcontainers.Container
	DSN           string
	NatsURL       string
	DB            *bun.DB
	Logger        *slog.Logger
}

var (
	sharedEnv  *TestEnvironment
	sharedErr  error
	sharedOnce sync.Once
)

// Setup returns the shared environment, starting it on first use. It skips
// the test in -short mode.
func Setup(t *testing.T) *TestEnvironment {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	sharedOnce.Do(func() {
		sharedEnv, sharedErr = newTestEnvironment()
	})
	if sharedErr != nil {
		t.Fatalf("failed to set up integration environment: %v", sharedErr)
	}
	if err := CleanupDatabase(sharedEnv.Ctx, sharedEnv.DB); err != nil {
		t.Fatalf("failed to clean database: %v", err)
	}
	return sharedEnv
}

func newTestEnvironment() (*TestEnvironment, error) {
	ctx, cancel := context.WithCancel(context.Background())
	env := &TestEnvironment{
		Ctx:    ctx,
		Cancel: cancel,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	pg, dsn, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	env.PgContainer, env.DSN = pg, dsn

	nc, natsURL, err := containers.SetupNatsContainer(ctx)
	if err != nil {
		env.Teardown()
		return nil, err
	}
	env.NatsContainer, env.NatsURL = nc, natsURL

	env.DB, err = bundb.Open(ctx, dsn, env.Logger)
	if err != nil {
		env.Teardown()
		return nil, err
	}
	if err := RunMigrations(ctx, env.DB, dsn); err != nil {
		env.Teardown()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return env, nil
}

// NewEventBus connects a fresh NATS backed bus for one test.
func (env *TestEnvironment) NewEventBus(t *testing.T) eventbus.EventBus {
	t.Helper()
	bus, err := eventbus.NewEventBus(env.Ctx, env.NatsURL, "lottery-it", env.Logger)
	if err != nil {
		t.Fatalf("failed to create event bus: %v", err)
	}
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

// Teardown releases every resource the environment holds.
func (env *TestEnvironment) Teardown() {
	if env.DB != nil {
		_ = env.DB.Close()
	}
	if env.NatsContainer != nil {
		_ = env.NatsContainer.Terminate(context.Background())
	}
	if env.PgContainer != nil {
		_ = env.PgContainer.Terminate(context.Background())
	}
	env.Cancel()
}

// Shutdown tears down the shared environment if one was started.
func Shutdown() {
	if sharedEnv != nil {
		sharedEnv.Teardown()
	}
}
