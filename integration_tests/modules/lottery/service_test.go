package lotteryintegrationtests

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	lotteryservice "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/application"
	lotterydomain "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/domain"
	lotterydb "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/infrastructure/repositories"
	"github.com/Black-And-White-Club/numbers-lottery/integration_tests/testutils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLotteryLifecycle(t *testing.T) {
	env := testutils.Setup(t)
	ctx := context.Background()
	clock := &testClock{now: baseTime}
	svc := newService(t, env, nil, clock, 7)

	created, err := svc.CreateLottery(ctx, lotteryservice.CreateLotteryRequest{
		Owner:    owner,
		EntryFee: amount(10),
		DrawTime: baseTime.Add(time.Hour),
	})
	require.NoError(t, err)
	id := created.ID

	phase, err := svc.GetState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, lotterydomain.PhaseOpened, phase)

	_, err = svc.Deposit(ctx, id, bettor, amount(1000))
	assert.ErrorIs(t, err, lotterydomain.ErrAccessDenied)

	view, err := svc.Deposit(ctx, id, owner, amount(1000))
	require.NoError(t, err)
	assert.Equal(t, "1000", view.PoolBalance.String())

	_, err = svc.SubmitNumber(ctx, id, bettor, 7, amount(9))
	assert.ErrorIs(t, err, lotterydomain.ErrInsufficientPayment)
	_, err = svc.SubmitNumber(ctx, id, bettor, 50, amount(10))
	assert.ErrorIs(t, err, lotterydomain.ErrInvalidArgument)

	entry, err := svc.SubmitNumber(ctx, id, bettor, 7, amount(10))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), entry.Count)
	assert.Equal(t, "1010", entry.PoolBalance.String())

	_, err = svc.SubmitNumber(ctx, id, bettor, 7, amount(10))
	assert.ErrorIs(t, err, lotterydomain.ErrDuplicateEntry)

	// 40 x (10 + 20) exceeds the 1030 pool.
	_, err = svc.SubmitNumber(ctx, id, other, 7, amount(20))
	assert.ErrorIs(t, err, lotterydomain.ErrInsufficientPool)

	_, err = svc.SubmitNumber(ctx, id, other, 8, amount(10))
	require.NoError(t, err)

	count, err := svc.EntriesCount(ctx, id, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	_, err = svc.DrawNumber(ctx, id, other)
	assert.ErrorIs(t, err, lotterydomain.ErrTooEarly)
	_, err = svc.Withdraw(ctx, id, owner)
	assert.ErrorIs(t, err, lotterydomain.ErrInvalidState)

	clock.Advance(2 * time.Hour)
	draw, err := svc.DrawNumber(ctx, id, other)
	require.NoError(t, err)
	assert.Equal(t, uint8(7), draw.WinningNumber)
	require.Len(t, draw.Winners, 1)
	assert.Equal(t, bettor.Hex(), draw.Winners[0].Bettor)
	assert.Equal(t, "400", draw.TotalPayout.String())
	assert.Equal(t, "620", draw.PoolAfter.String())

	phase, err = svc.GetState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, lotterydomain.PhaseFinished, phase)

	count, err = svc.EntriesCount(ctx, id, 7)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = svc.SubmitNumber(ctx, id, bettor, 3, amount(10))
	assert.ErrorIs(t, err, lotterydomain.ErrInvalidState)

	withdrawal, err := svc.Withdraw(ctx, id, owner)
	require.NoError(t, err)
	assert.Equal(t, "620", withdrawal.Amount.String())
	assert.Equal(t, owner.Hex(), withdrawal.To)

	transfers, err := svc.ListTransfers(ctx, id, 50)
	require.NoError(t, err)
	kinds := map[string]int{}
	for _, tr := range transfers {
		kinds[tr.Kind]++
	}
	assert.Equal(t, map[string]int{"deposit": 1, "stake": 2, "payout": 1, "withdrawal": 1}, kinds)

	draws, err := svc.ListDraws(ctx, id, 10)
	require.NoError(t, err)
	require.Len(t, draws, 1)
	assert.Equal(t, 1, draws[0].WinnerCount)
	assert.Equal(t, other.Hex(), draws[0].DrawnBy)

	next, err := svc.ScheduleNextDraw(ctx, id, owner, amount(5), clock.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, lotterydomain.PhaseOpened, next.Phase)
	assert.Equal(t, uint64(2), next.RoundNumber)
	assert.Equal(t, "0", next.PoolBalance.String())
}

func TestLotteryPersistsAcrossServices(t *testing.T) {
	env := testutils.Setup(t)
	ctx := context.Background()
	clock := &testClock{now: baseTime}

	first := newService(t, env, nil, clock, 7)
	created, err := first.CreateLottery(ctx, lotteryservice.CreateLotteryRequest{
		Owner:    owner,
		EntryFee: amount(1),
		DrawTime: baseTime.Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = first.Deposit(ctx, created.ID, owner, amount(500))
	require.NoError(t, err)
	_, err = first.SubmitNumber(ctx, created.ID, bettor, 12, amount(2))
	require.NoError(t, err)

	second := newService(t, env, nil, clock, 7)
	view, err := second.GetLottery(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "502", view.PoolBalance.String())
	assert.Equal(t, uint64(1), view.TotalEntries)
	assert.Equal(t, map[int]uint64{12: 1}, view.EntriesCounts)

	_, err = second.SubmitNumber(ctx, created.ID, bettor, 12, amount(2))
	assert.ErrorIs(t, err, lotterydomain.ErrDuplicateEntry)

	_, err = second.GetLottery(ctx, uuid.New())
	assert.ErrorIs(t, err, lotterydb.ErrNotFound)
}

func TestConcurrentSubmissionsAcrossReplicas(t *testing.T) {
	env := testutils.Setup(t)
	ctx := context.Background()
	clock := &testClock{now: baseTime}

	replicas := []*lotteryservice.LotteryService{
		newService(t, env, nil, clock, 7),
		newService(t, env, nil, clock, 7),
	}
	created, err := replicas[0].CreateLottery(ctx, lotteryservice.CreateLotteryRequest{
		Owner:    owner,
		EntryFee: amount(10),
		DrawTime: baseTime.Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = replicas[0].Deposit(ctx, created.ID, owner, amount(10_000))
	require.NoError(t, err)

	const bettors = 20
	var wg sync.WaitGroup
	errs := make(chan error, bettors)
	for i := range bettors {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			addr := common.BigToAddress(big.NewInt(int64(0x1000 + i)))
			_, err := replicas[i%len(replicas)].SubmitNumber(ctx, created.ID, addr, 7, amount(10))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	count, err := replicas[1].EntriesCount(ctx, created.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(bettors), count)

	view, err := replicas[1].GetLottery(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "10200", view.PoolBalance.String())
}

func TestPartialPayoutFailureIsSettledLater(t *testing.T) {
	env := testutils.Setup(t)
	ctx := context.Background()
	clock := &testClock{now: baseTime}

	var (
		mu        sync.Mutex
		paid      []lotterydomain.Transfer
		calls     int
		refuseAll bool
	)
	wallet := lotterydomain.TransferFunc(func(_ context.Context, tr lotterydomain.Transfer) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 2 || refuseAll {
			return errors.New("wallet offline")
		}
		paid = append(paid, tr)
		return nil
	})
	svc := newServiceWith(t, env, nil, lotteryservice.Options{Random: fixedRandom(7), Clock: clock, Wallet: wallet})

	created, err := svc.CreateLottery(ctx, lotteryservice.CreateLotteryRequest{
		Owner:    owner,
		EntryFee: amount(1),
		DrawTime: baseTime.Add(time.Hour),
	})
	require.NoError(t, err)
	id := created.ID
	_, err = svc.Deposit(ctx, id, owner, amount(1000))
	require.NoError(t, err)
	_, err = svc.SubmitNumber(ctx, id, bettor, 7, amount(1))
	require.NoError(t, err)
	_, err = svc.SubmitNumber(ctx, id, other, 7, amount(1))
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)

	draw, err := svc.DrawNumber(ctx, id, owner)
	require.NoError(t, err)
	require.Len(t, draw.PendingPayouts, 1)
	require.Len(t, paid, 1)

	payoutStatuses := func() map[string]int {
		transfers, err := svc.ListTransfers(ctx, id, 50)
		require.NoError(t, err)
		out := map[string]int{}
		for _, tr := range transfers {
			if tr.Kind == string(lotterydomain.TransferPayout) {
				out[tr.Status]++
			}
		}
		return out
	}
	assert.Equal(t, map[string]int{lotterydb.TransferSettled: 1, lotterydb.TransferPending: 1}, payoutStatuses())

	_, err = svc.DrawNumber(ctx, id, owner)
	assert.ErrorIs(t, err, lotterydomain.ErrInvalidState)

	mu.Lock()
	refuseAll = true
	mu.Unlock()
	settlement, err := svc.SettlePendingPayouts(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, settlement.Settled)
	assert.Len(t, settlement.Pending, 1)

	mu.Lock()
	refuseAll = false
	mu.Unlock()
	settlement, err = svc.SettlePendingPayouts(ctx, id)
	require.NoError(t, err)
	require.Len(t, settlement.Settled, 1)
	assert.Equal(t, draw.PendingPayouts[0].Bettor, settlement.Settled[0].Counterparty)

	assert.Equal(t, map[string]int{lotterydb.TransferSettled: 2}, payoutStatuses())
	require.Len(t, paid, 2)
	assert.NotEqual(t, paid[0].To, paid[1].To)

	view, err := svc.GetLottery(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, lotterydomain.PhaseFinished, view.Phase)
	assert.Equal(t, "922", view.PoolBalance.String())
}
