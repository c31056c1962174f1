package lotteryservice

import (
	"context"
	"fmt"

	lotterydomain "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/domain"
	lotteryevents "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/events"
	lotterydb "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/infrastructure/repositories"
	"github.com/Black-And-White-Club/numbers-lottery/app/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SubmitNumber records caller's guess with stake paid into the pool.
func (s *LotteryService) SubmitNumber(ctx context.Context, lotteryID uuid.UUID, caller lotterydomain.Address, number int, stake lotterydomain.Amount) (*EntryView, error) {
	defer s.lock(lotteryID)()
	var events []event

	submitTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*EntryView, error], error) {
		return s.submitNumberLogic(ctx, db, lotteryID, caller, number, stake, &events)
	}

	result, err := withTelemetry(s, ctx, "SubmitNumber", lotteryID.String(), func(ctx context.Context) (results.OperationResult[*EntryView, error], error) {
		return runInTx(s, ctx, submitTx)
	})
	view, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordEntrySubmitted(ctx, int(view.Number))
	s.metrics.RecordPoolBalance(ctx, lotteryID.String(), view.PoolBalance.Float64())
	s.publish(ctx, events)
	return view, nil
}

func (s *LotteryService) submitNumberLogic(ctx context.Context, db bun.IDB, lotteryID uuid.UUID, caller lotterydomain.Address, number int, stake lotterydomain.Amount, events *[]event) (results.OperationResult[*EntryView, error], error) {
	ld, err := s.load(ctx, db, lotteryID, true)
	if err != nil {
		return rejectOrFail[*EntryView](err, "failed to load lottery")
	}
	entry, err := ld.lottery.SubmitNumber(ctx, caller, number, stake)
	if err != nil {
		return rejectOrFail[*EntryView](err, "submit number")
	}

	round := ld.lottery.Round()
	err = s.repo.InsertEntry(ctx, db, &lotterydb.Entry{
		ID:          uuid.New(),
		LotteryID:   lotteryID,
		RoundNumber: int64(round.Number),
		Bettor:      entry.Bettor.Hex(),
		Number:      int16(entry.Number),
		Stake:       entry.Stake,
		CreatedAt:   s.clock.Now(),
	})
	if err != nil {
		return results.OperationResult[*EntryView, error]{}, fmt.Errorf("failed to insert entry: %w", err)
	}
	if err := s.save(ctx, db, ld); err != nil {
		return results.OperationResult[*EntryView, error]{}, err
	}
	_, err = s.journal(ctx, db, lotteryID, lotterydomain.Transfer{
		Kind:        lotterydomain.TransferStake,
		To:          caller,
		Amount:      stake,
		RoundNumber: round.Number,
	}, lotterydb.TransferSettled)
	if err != nil {
		return results.OperationResult[*EntryView, error]{}, fmt.Errorf("failed to journal stake: %w", err)
	}

	view := &EntryView{
		LotteryID:   lotteryID,
		RoundNumber: round.Number,
		Bettor:      entry.Bettor.Hex(),
		Number:      entry.Number,
		Stake:       entry.Stake,
		Count:       ld.lottery.EntriesCount(int(entry.Number)),
		PoolBalance: ld.lottery.Pool(),
	}
	*events = append(*events, event{
		topic:     lotteryevents.NumberSubmittedV1,
		lotteryID: lotteryID,
		payload: lotteryevents.NumberSubmittedPayloadV1{
			LotteryID:   lotteryID,
			RoundNumber: round.Number,
			Bettor:      view.Bettor,
			Number:      view.Number,
			Stake:       stake.String(),
			PoolBalance: view.PoolBalance.String(),
		},
	})
	return results.SuccessResult[*EntryView, error](view), nil
}
