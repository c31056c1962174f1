package lotteryintegrationtests

import (
	"context"
	"sync"
	"testing"
	"time"

	lotteryservice "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/application"
	lotterydomain "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/domain"
	lotterydb "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/infrastructure/repositories"
	"github.com/Black-And-White-Club/numbers-lottery/integration_tests/testutils"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

var (
	owner  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bettor = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	other  = common.HexToAddress("0x00000000000000000000000000000000000000c3")

	baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

type fixedRandom uint8

func (r fixedRandom) WinningNumber(context.Context, lotterydomain.DrawContext) (uint8, error) {
	return uint8(r), nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newService(t *testing.T, env *testutils.TestEnvironment, publisher message.Publisher, clock lotterydomain.Clock, winning uint8) *lotteryservice.LotteryService {
	t.Helper()
	return newServiceWith(t, env, publisher, lotteryservice.Options{Random: fixedRandom(winning), Clock: clock})
}

func newServiceWith(t *testing.T, env *testutils.TestEnvironment, publisher message.Publisher, opts lotteryservice.Options) *lotteryservice.LotteryService {
	t.Helper()
	svc, err := lotteryservice.NewLotteryService(
		lotterydb.NewRepository(env.DB),
		env.Logger,
		nil,
		noop.NewTracerProvider().Tracer("integration"),
		env.DB,
		publisher,
		opts,
	)
	require.NoError(t, err)
	return svc
}

type scheduledRun struct {
	lotteryID uuid.UUID
	round     uint64
	at        time.Time
}

// recordingScheduler stands in for the River queue.
type recordingScheduler struct {
	mu          sync.Mutex
	rescheduled []scheduledRun
}

func (s *recordingScheduler) ScheduleDraw(context.Context, uuid.UUID, uint64, time.Time) error {
	return nil
}

func (s *recordingScheduler) RescheduleDraw(_ context.Context, lotteryID uuid.UUID, round uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rescheduled = append(s.rescheduled, scheduledRun{lotteryID, round, at})
	return nil
}

func (s *recordingScheduler) CancelDrawJobs(context.Context, uuid.UUID) error { return nil }

func (s *recordingScheduler) Rescheduled() []scheduledRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]scheduledRun(nil), s.rescheduled...)
}

func amount(v uint64) lotterydomain.Amount { return lotterydomain.NewAmount(v) }
