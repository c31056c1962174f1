package lotteryservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	lotterydomain "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/domain"
	lotteryevents "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/events"
	lotterydb "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/infrastructure/repositories"
	lotterymetrics "github.com/Black-And-White-Club/numbers-lottery/app/observability/metrics/lottery"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"
)

var (
	owner  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bettor = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	other  = common.HexToAddress("0x00000000000000000000000000000000000000c3")

	baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

var amountComparer = cmp.Comparer(func(a, b lotterydomain.Amount) bool { return a.Cmp(b) == 0 })

type testEnv struct {
	svc       *LotteryService
	repo      *FakeLotteryRepo
	publisher *FakePublisher
	scheduler *FakeScheduler
	clock     *fakeClock
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:      NewFakeLotteryRepo(),
		publisher: &FakePublisher{},
		scheduler: &FakeScheduler{},
		clock:     &fakeClock{now: baseTime},
	}
	if opts.Random == nil {
		opts.Random = fixedRandom(7)
	}
	if opts.Clock == nil {
		opts.Clock = env.clock
	}
	if opts.Scheduler == nil {
		opts.Scheduler = env.scheduler
	}
	svc, err := NewLotteryService(
		env.repo,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		lotterymetrics.NewNoop(),
		noop.NewTracerProvider().Tracer("test"),
		nil,
		env.publisher,
		opts,
	)
	require.NoError(t, err)
	env.svc = svc
	return env
}

func (env *testEnv) create(t *testing.T, fee uint64) *LotteryView {
	t.Helper()
	view, err := env.svc.CreateLottery(context.Background(), CreateLotteryRequest{
		Owner:    owner,
		EntryFee: lotterydomain.NewAmount(fee),
		DrawTime: baseTime.Add(time.Hour),
	})
	require.NoError(t, err)
	return view
}

func TestNewLotteryService(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "defaults to fixed multiplier", opts: Options{Random: fixedRandom(1)}},
		{name: "whole pool", opts: Options{Random: fixedRandom(1), PayoutPolicy: lotterydomain.PolicyWholePool}},
		{name: "missing random source", opts: Options{}, wantErr: true},
		{name: "unknown policy", opts: Options{Random: fixedRandom(1), PayoutPolicy: "jackpot"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewLotteryService(NewFakeLotteryRepo(), nil, nil, nil, nil, nil, tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestCreateLottery(t *testing.T) {
	tests := []struct {
		name      string
		setupRepo func(*FakeLotteryRepo)
		req       CreateLotteryRequest
		wantCode  lotterydomain.Code
		wantErr   bool
	}{
		{
			name: "happy path",
			req:  CreateLotteryRequest{Owner: owner, EntryFee: lotterydomain.NewAmount(10), DrawTime: baseTime.Add(time.Hour)},
		},
		{
			name:     "zero owner",
			req:      CreateLotteryRequest{EntryFee: lotterydomain.NewAmount(10), DrawTime: baseTime},
			wantCode: lotterydomain.CodeInvalidArgument,
		},
		{
			name:     "zero entry fee",
			req:      CreateLotteryRequest{Owner: owner, DrawTime: baseTime},
			wantCode: lotterydomain.CodeInvalidArgument,
		},
		{
			name:     "missing draw time",
			req:      CreateLotteryRequest{Owner: owner, EntryFee: lotterydomain.NewAmount(1)},
			wantCode: lotterydomain.CodeInvalidArgument,
		},
		{
			name: "database error",
			setupRepo: func(f *FakeLotteryRepo) {
				f.CreateLotteryFunc = func(ctx context.Context, db bun.IDB, lottery *lotterydb.Lottery) error {
					return errors.New("connection refused")
				}
			},
			req:     CreateLotteryRequest{Owner: owner, EntryFee: lotterydomain.NewAmount(10), DrawTime: baseTime},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Options{AutoDraw: true})
			if tt.setupRepo != nil {
				tt.setupRepo(env.repo)
			}

			view, err := env.svc.CreateLottery(context.Background(), tt.req)

			switch {
			case tt.wantCode != "":
				require.Error(t, err)
				code, ok := lotterydomain.CodeOf(err)
				require.True(t, ok)
				assert.Equal(t, tt.wantCode, code)
				assert.Nil(t, view)
				assert.Empty(t, env.publisher.Topics())
			case tt.wantErr:
				require.Error(t, err)
				assert.False(t, lotterydomain.IsRejection(err))
				assert.Empty(t, env.scheduler.scheduled)
			default:
				require.NoError(t, err)
				assert.Equal(t, owner.Hex(), view.Owner)
				assert.Equal(t, uint64(1), view.RoundNumber)
				assert.Equal(t, lotterydomain.PhaseOpened, view.Phase)
				assert.True(t, view.PoolBalance.IsZero())
				assert.Equal(t, lotterydomain.PolicyFixedMultiplier, view.PayoutPolicy)
				assert.Equal(t, uint64(lotterydomain.DefaultPrizeMultiplier), view.PrizeMultiplier)
				assert.Equal(t, []string{
					lotteryevents.LotteryCreatedV1,
					lotteryevents.LotteryCreatedV1 + "." + view.ID.String(),
				}, env.publisher.Topics())
				require.Len(t, env.scheduler.scheduled, 1)
				assert.Equal(t, scheduledDraw{view.ID, 1, tt.req.DrawTime}, env.scheduler.scheduled[0])
			}
		})
	}
}

func TestDeposit(t *testing.T) {
	tests := []struct {
		name     string
		caller   common.Address
		lottery  func(created uuid.UUID) uuid.UUID
		wantPool uint64
		wantErr  error
	}{
		{name: "owner funds the pool", caller: owner, wantPool: 500},
		{name: "non-owner rejected", caller: bettor, wantErr: lotterydomain.ErrAccessDenied},
		{
			name:    "unknown lottery",
			caller:  owner,
			lottery: func(uuid.UUID) uuid.UUID { return uuid.New() },
			wantErr: lotterydb.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Options{})
			created := env.create(t, 1)
			id := created.ID
			if tt.lottery != nil {
				id = tt.lottery(id)
			}

			view, err := env.svc.Deposit(context.Background(), id, tt.caller, lotterydomain.NewAmount(500))

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, view)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, lotterydomain.NewAmount(tt.wantPool), view.PoolBalance)

			transfers := env.repo.Transfers()
			require.Len(t, transfers, 1)
			assert.Equal(t, string(lotterydomain.TransferDeposit), transfers[0].Kind)
			assert.Equal(t, owner.Hex(), transfers[0].Counterparty)
		})
	}
}

func TestSubmitNumber(t *testing.T) {
	tests := []struct {
		name     string
		prepare  func(t *testing.T, env *testEnv, id uuid.UUID)
		caller   common.Address
		number   int
		stake    uint64
		wantCode lotterydomain.Code
	}{
		{name: "accepted", caller: bettor, number: 7, stake: 1},
		{name: "stake below fee", caller: bettor, number: 7, stake: 0, wantCode: lotterydomain.CodeInsufficientPayment},
		{name: "number too small", caller: bettor, number: 0, stake: 1, wantCode: lotterydomain.CodeInvalidArgument},
		{name: "number too large", caller: bettor, number: 50, stake: 1, wantCode: lotterydomain.CodeInvalidArgument},
		{
			name: "duplicate entry",
			prepare: func(t *testing.T, env *testEnv, id uuid.UUID) {
				_, err := env.svc.Deposit(context.Background(), id, owner, lotterydomain.NewAmount(1000))
				require.NoError(t, err)
				_, err = env.svc.SubmitNumber(context.Background(), id, bettor, 7, lotterydomain.NewAmount(1))
				require.NoError(t, err)
			},
			caller:   bettor,
			number:   7,
			stake:    1,
			wantCode: lotterydomain.CodeDuplicateEntry,
		},
		{
			name: "pool cannot cover prize",
			prepare: func(t *testing.T, env *testEnv, id uuid.UUID) {
				_, err := env.svc.Deposit(context.Background(), id, owner, lotterydomain.NewAmount(10))
				require.NoError(t, err)
			},
			caller:   bettor,
			number:   7,
			stake:    20,
			wantCode: lotterydomain.CodeInsufficientPool,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Options{})
			created := env.create(t, 1)
			if tt.prepare != nil {
				tt.prepare(t, env, created.ID)
			} else {
				_, err := env.svc.Deposit(context.Background(), created.ID, owner, lotterydomain.NewAmount(1000))
				require.NoError(t, err)
			}

			entry, err := env.svc.SubmitNumber(context.Background(), created.ID, tt.caller, tt.number, lotterydomain.NewAmount(tt.stake))

			if tt.wantCode != "" {
				require.Error(t, err)
				code, ok := lotterydomain.CodeOf(err)
				require.True(t, ok)
				assert.Equal(t, tt.wantCode, code)
				return
			}
			require.NoError(t, err)
			want := &EntryView{
				LotteryID:   created.ID,
				RoundNumber: 1,
				Bettor:      bettor.Hex(),
				Number:      7,
				Stake:       lotterydomain.NewAmount(1),
				Count:       1,
				PoolBalance: lotterydomain.NewAmount(1001),
			}
			if diff := cmp.Diff(want, entry, amountComparer); diff != "" {
				t.Errorf("entry mismatch (-want +got):\n%s", diff)
			}

			count, err := env.svc.EntriesCount(context.Background(), created.ID, 7)
			require.NoError(t, err)
			assert.Equal(t, uint64(1), count)
		})
	}
}

func TestDrawNumber(t *testing.T) {
	env := newTestEnv(t, Options{AutoDraw: true})
	ctx := context.Background()
	created := env.create(t, 1)

	_, err := env.svc.Deposit(ctx, created.ID, owner, lotterydomain.NewAmount(1000))
	require.NoError(t, err)
	_, err = env.svc.SubmitNumber(ctx, created.ID, bettor, 7, lotterydomain.NewAmount(1))
	require.NoError(t, err)
	_, err = env.svc.SubmitNumber(ctx, created.ID, other, 8, lotterydomain.NewAmount(2))
	require.NoError(t, err)

	_, err = env.svc.DrawNumber(ctx, created.ID, other)
	require.ErrorIs(t, err, lotterydomain.ErrTooEarly)

	env.clock.Advance(time.Hour)
	draw, err := env.svc.DrawNumber(ctx, created.ID, other)
	require.NoError(t, err)

	assert.Equal(t, uint8(7), draw.WinningNumber)
	assert.Equal(t, 1, draw.WinnerCount)
	assert.Equal(t, uint64(2), draw.Entries)
	assert.Equal(t, lotterydomain.NewAmount(40), draw.TotalPayout)
	assert.Equal(t, lotterydomain.NewAmount(1003), draw.PoolBefore)
	assert.Equal(t, lotterydomain.NewAmount(963), draw.PoolAfter)
	assert.Equal(t, other.Hex(), draw.DrawnBy)
	require.Len(t, draw.Winners, 1)
	assert.Equal(t, bettor.Hex(), draw.Winners[0].Bettor)

	phase, err := env.svc.GetState(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, lotterydomain.PhaseFinished, phase)

	winning, err := env.svc.WinningNumber(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), winning)

	for n := lotterydomain.MinNumber; n <= lotterydomain.MaxNumber; n++ {
		count, err := env.svc.EntriesCount(ctx, created.ID, n)
		require.NoError(t, err)
		assert.Zero(t, count, "number %d", n)
	}
	assert.Empty(t, env.repo.Entries())

	var payouts []lotterydb.Transfer
	for _, tr := range env.repo.Transfers() {
		if tr.Kind == string(lotterydomain.TransferPayout) {
			payouts = append(payouts, tr)
		}
	}
	require.Len(t, payouts, 1)
	assert.Equal(t, bettor.Hex(), payouts[0].Counterparty)
	assert.Equal(t, lotterydomain.NewAmount(40), payouts[0].Amount)

	draws, err := env.svc.ListDraws(ctx, created.ID, 10)
	require.NoError(t, err)
	require.Len(t, draws, 1)
	assert.Equal(t, 1, draws[0].WinnerCount)
	assert.Nil(t, draws[0].Winners)

	assert.Equal(t, []uuid.UUID{created.ID}, env.scheduler.cancelled)
	assert.Contains(t, env.publisher.Topics(), lotteryevents.NumberDrawnV1)
	assert.Contains(t, env.publisher.Topics(), lotteryevents.NumberDrawnV1+"."+created.ID.String())

	_, err = env.svc.DrawNumber(ctx, created.ID, other)
	require.ErrorIs(t, err, lotterydomain.ErrInvalidState)
}

func TestDrawNumberWalletFailure(t *testing.T) {
	walletErr := errors.New("wallet offline")
	env := newTestEnv(t, Options{
		Wallet: lotterydomain.TransferFunc(func(context.Context, lotterydomain.Transfer) error {
			return walletErr
		}),
	})
	ctx := context.Background()
	created := env.create(t, 1)
	_, err := env.svc.Deposit(ctx, created.ID, owner, lotterydomain.NewAmount(100))
	require.NoError(t, err)
	_, err = env.svc.SubmitNumber(ctx, created.ID, bettor, 7, lotterydomain.NewAmount(1))
	require.NoError(t, err)
	env.clock.Advance(time.Hour)

	draw, err := env.svc.DrawNumber(ctx, created.ID, bettor)
	require.ErrorIs(t, err, walletErr)
	assert.False(t, lotterydomain.IsRejection(err))
	assert.Nil(t, draw)

	view, err := env.svc.GetLottery(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, lotterydomain.PhaseOpened, view.Phase)
	assert.Equal(t, lotterydomain.NewAmount(101), view.PoolBalance)
	assert.Equal(t, uint64(1), view.TotalEntries)
	assert.NotContains(t, env.repo.Trace(), "InsertDraw")
}

func TestDrawNumberPartialPayoutFailure(t *testing.T) {
	walletErr := errors.New("wallet offline")
	var (
		paid      []lotterydomain.Transfer
		calls     int
		refuseAll bool
	)
	env := newTestEnv(t, Options{
		Wallet: lotterydomain.TransferFunc(func(_ context.Context, tr lotterydomain.Transfer) error {
			calls++
			if calls == 2 || refuseAll {
				return walletErr
			}
			paid = append(paid, tr)
			return nil
		}),
	})
	ctx := context.Background()
	created := env.create(t, 1)
	_, err := env.svc.Deposit(ctx, created.ID, owner, lotterydomain.NewAmount(1000))
	require.NoError(t, err)
	_, err = env.svc.SubmitNumber(ctx, created.ID, bettor, 7, lotterydomain.NewAmount(1))
	require.NoError(t, err)
	_, err = env.svc.SubmitNumber(ctx, created.ID, other, 7, lotterydomain.NewAmount(1))
	require.NoError(t, err)
	env.clock.Advance(time.Hour)

	draw, err := env.svc.DrawNumber(ctx, created.ID, bettor)
	require.NoError(t, err)
	require.Len(t, paid, 1)
	require.Len(t, draw.PendingPayouts, 1)
	assert.NotEqual(t, paid[0].To.Hex(), draw.PendingPayouts[0].Bettor)
	assert.Equal(t, 2, draw.WinnerCount)

	view, err := env.svc.GetLottery(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, lotterydomain.PhaseFinished, view.Phase)
	assert.Equal(t, lotterydomain.NewAmount(922), view.PoolBalance)

	// A second draw must not pay the first winner again.
	_, err = env.svc.DrawNumber(ctx, created.ID, bettor)
	require.ErrorIs(t, err, lotterydomain.ErrInvalidState)
	assert.Len(t, paid, 1)

	refuseAll = true
	settlement, err := env.svc.SettlePendingPayouts(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, settlement.Settled)
	assert.Len(t, settlement.Pending, 1)

	refuseAll = false
	settlement, err = env.svc.SettlePendingPayouts(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, settlement.Settled, 1)
	assert.Empty(t, settlement.Pending)
	require.Len(t, paid, 2)
	assert.NotEqual(t, paid[0].To, paid[1].To)
	assert.Contains(t, env.publisher.Topics(), lotteryevents.PayoutsSettledV1)

	settlement, err = env.svc.SettlePendingPayouts(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, settlement.Settled)
	assert.Len(t, paid, 2)

	var payouts int
	for _, tr := range env.repo.Transfers() {
		if tr.Kind != string(lotterydomain.TransferPayout) {
			continue
		}
		payouts++
		assert.Equal(t, lotterydb.TransferSettled, tr.Status)
	}
	assert.Equal(t, 2, payouts)
}

func TestSettlePendingPayoutsUnknownLottery(t *testing.T) {
	env := newTestEnv(t, Options{})
	_, err := env.svc.SettlePendingPayouts(context.Background(), uuid.New())
	assert.ErrorIs(t, err, lotterydb.ErrNotFound)
}

func TestWithdraw(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	created := env.create(t, 1)
	_, err := env.svc.Deposit(ctx, created.ID, owner, lotterydomain.NewAmount(250))
	require.NoError(t, err)

	_, err = env.svc.Withdraw(ctx, created.ID, owner)
	require.ErrorIs(t, err, lotterydomain.ErrInvalidState)

	env.clock.Advance(time.Hour)
	_, err = env.svc.DrawNumber(ctx, created.ID, bettor)
	require.NoError(t, err)

	_, err = env.svc.Withdraw(ctx, created.ID, bettor)
	require.ErrorIs(t, err, lotterydomain.ErrAccessDenied)

	out, err := env.svc.Withdraw(ctx, created.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, lotterydomain.NewAmount(250), out.Amount)
	assert.Equal(t, owner.Hex(), out.To)

	view, err := env.svc.GetLottery(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, view.PoolBalance.IsZero())

	again, err := env.svc.Withdraw(ctx, created.ID, owner)
	require.NoError(t, err)
	assert.True(t, again.Amount.IsZero())

	transfers, err := env.svc.ListTransfers(ctx, created.ID, 0)
	require.NoError(t, err)
	kinds := make([]string, 0, len(transfers))
	for _, tr := range transfers {
		kinds = append(kinds, tr.Kind)
	}
	assert.Equal(t, []string{"withdrawal", "deposit"}, kinds)
}

func TestScheduleNextDraw(t *testing.T) {
	env := newTestEnv(t, Options{AutoDraw: true})
	ctx := context.Background()
	created := env.create(t, 1)
	next := baseTime.Add(48 * time.Hour)

	_, err := env.svc.ScheduleNextDraw(ctx, created.ID, owner, lotterydomain.NewAmount(5), next)
	require.ErrorIs(t, err, lotterydomain.ErrInvalidState)

	env.clock.Advance(time.Hour)
	_, err = env.svc.DrawNumber(ctx, created.ID, bettor)
	require.NoError(t, err)

	_, err = env.svc.ScheduleNextDraw(ctx, created.ID, bettor, lotterydomain.NewAmount(5), next)
	require.ErrorIs(t, err, lotterydomain.ErrAccessDenied)

	_, err = env.svc.ScheduleNextDraw(ctx, created.ID, owner, lotterydomain.Amount{}, next)
	require.ErrorIs(t, err, lotterydomain.ErrInvalidArgument)

	view, err := env.svc.ScheduleNextDraw(ctx, created.ID, owner, lotterydomain.NewAmount(5), next)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), view.RoundNumber)
	assert.Equal(t, lotterydomain.PhaseOpened, view.Phase)
	assert.Equal(t, lotterydomain.NewAmount(5), view.EntryFee)
	assert.True(t, next.Equal(view.DrawTime))

	require.Len(t, env.scheduler.scheduled, 2)
	assert.Equal(t, uint64(2), env.scheduler.scheduled[1].RoundNumber)

	_, err = env.svc.SubmitNumber(ctx, created.ID, bettor, 3, lotterydomain.NewAmount(4))
	require.ErrorIs(t, err, lotterydomain.ErrInsufficientPayment)
}

func TestHandleScheduledDraw(t *testing.T) {
	tests := []struct {
		name      string
		round     uint64
		advance   time.Duration
		wantDraw  bool
		wantError error
	}{
		{name: "live round is settled", round: 1, advance: time.Hour, wantDraw: true},
		{name: "stale round ignored", round: 7, advance: time.Hour},
		{name: "early trigger rejected", round: 1, wantError: lotterydomain.ErrTooEarly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Options{})
			created := env.create(t, 1)
			env.clock.Advance(tt.advance)

			draw, err := env.svc.HandleScheduledDraw(context.Background(), created.ID, tt.round)

			if tt.wantError != nil {
				require.ErrorIs(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
			if !tt.wantDraw {
				assert.Nil(t, draw)
				assert.NotContains(t, env.repo.Trace(), "InsertDraw")
				return
			}
			require.NotNil(t, draw)
			assert.Equal(t, SchedulerCaller.Hex(), draw.DrawnBy)
		})
	}
}

func TestHandleScheduledDrawFiredEarly(t *testing.T) {
	env := newTestEnv(t, Options{AutoDraw: true})
	ctx := context.Background()
	created := env.create(t, 1)
	env.clock.Advance(45 * time.Minute)

	draw, err := env.svc.HandleScheduledDraw(ctx, created.ID, 1)
	require.NoError(t, err)
	assert.Nil(t, draw)
	assert.NotContains(t, env.repo.Trace(), "InsertDraw")
	require.Len(t, env.scheduler.rescheduled, 1)
	assert.Equal(t, created.ID, env.scheduler.rescheduled[0].LotteryID)
	assert.Equal(t, uint64(1), env.scheduler.rescheduled[0].RoundNumber)
	assert.Equal(t, baseTime.Add(75*time.Minute), env.scheduler.rescheduled[0].DrawTime)

	env.clock.Advance(30 * time.Minute)
	draw, err = env.svc.HandleScheduledDraw(ctx, created.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, draw)
	assert.Len(t, env.scheduler.rescheduled, 1)
}

func TestEntriesCountOutOfRange(t *testing.T) {
	env := newTestEnv(t, Options{})
	created := env.create(t, 1)
	for _, n := range []int{-1, 0, 50, 1000} {
		count, err := env.svc.EntriesCount(context.Background(), created.ID, n)
		require.NoError(t, err)
		assert.Zero(t, count)
	}

	_, err := env.svc.EntriesCount(context.Background(), uuid.New(), 7)
	assert.ErrorIs(t, err, lotterydb.ErrNotFound)
}

func TestConcurrentSubmissions(t *testing.T) {
	env := newTestEnv(t, Options{PayoutPolicy: lotterydomain.PolicyWholePool})
	ctx := context.Background()
	created := env.create(t, 1)

	const bettors = 20
	var wg sync.WaitGroup
	errs := make(chan error, bettors)
	for i := 0; i < bettors; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			addr := common.HexToAddress(fmt.Sprintf("0x%040x", i+1))
			_, err := env.svc.SubmitNumber(ctx, created.ID, addr, 1+i%5, lotterydomain.NewAmount(3))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	view, err := env.svc.GetLottery(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(bettors), view.TotalEntries)
	assert.Equal(t, lotterydomain.NewAmount(3*bettors), view.PoolBalance)
	for n := 1; n <= 5; n++ {
		assert.Equal(t, uint64(bettors/5), view.EntriesCounts[n])
	}

	env.svc.locksMu.Lock()
	defer env.svc.locksMu.Unlock()
	assert.Empty(t, env.svc.locks)
}
