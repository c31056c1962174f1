package lotteryservice

import (
	"context"
	"fmt"

	lotterydomain "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/domain"
	lotteryevents "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/events"
	lotterydb "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/infrastructure/repositories"
	"github.com/Black-And-White-Club/numbers-lottery/app/observability/attr"
	"github.com/Black-And-White-Club/numbers-lottery/app/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Deposit adds amount to the pool. Owner only.
func (s *LotteryService) Deposit(ctx context.Context, lotteryID uuid.UUID, caller lotterydomain.Address, amount lotterydomain.Amount) (*LotteryView, error) {
	defer s.lock(lotteryID)()
	var events []event

	depositTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*LotteryView, error], error) {
		return s.depositLogic(ctx, db, lotteryID, caller, amount, &events)
	}

	result, err := withTelemetry(s, ctx, "Deposit", lotteryID.String(), func(ctx context.Context) (results.OperationResult[*LotteryView, error], error) {
		return runInTx(s, ctx, depositTx)
	})
	view, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPoolBalance(ctx, lotteryID.String(), view.PoolBalance.Float64())
	s.publish(ctx, events)
	return view, nil
}

func (s *LotteryService) depositLogic(ctx context.Context, db bun.IDB, lotteryID uuid.UUID, caller lotterydomain.Address, amount lotterydomain.Amount, events *[]event) (results.OperationResult[*LotteryView, error], error) {
	ld, err := s.load(ctx, db, lotteryID, true)
	if err != nil {
		return rejectOrFail[*LotteryView](err, "failed to load lottery")
	}
	if err := ld.lottery.Deposit(ctx, caller, amount); err != nil {
		return rejectOrFail[*LotteryView](err, "deposit")
	}
	if err := s.save(ctx, db, ld); err != nil {
		return results.OperationResult[*LotteryView, error]{}, err
	}
	_, err = s.journal(ctx, db, lotteryID, lotterydomain.Transfer{
		Kind:        lotterydomain.TransferDeposit,
		To:          caller,
		Amount:      amount,
		RoundNumber: ld.lottery.Round().Number,
	}, lotterydb.TransferSettled)
	if err != nil {
		return results.OperationResult[*LotteryView, error]{}, fmt.Errorf("failed to journal deposit: %w", err)
	}

	*events = append(*events, event{
		topic:     lotteryevents.DepositedV1,
		lotteryID: lotteryID,
		payload: lotteryevents.DepositedPayloadV1{
			LotteryID:   lotteryID,
			From:        caller.Hex(),
			Amount:      amount.String(),
			PoolBalance: ld.lottery.Pool().String(),
		},
	})
	return results.SuccessResult[*LotteryView, error](newLotteryView(ld.lottery, ld.row)), nil
}

// Withdraw pays the whole pool to the owner. Owner only, and only while the
// round is finished.
func (s *LotteryService) Withdraw(ctx context.Context, lotteryID uuid.UUID, caller lotterydomain.Address) (*WithdrawalView, error) {
	defer s.lock(lotteryID)()
	var events []event

	withdrawTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*WithdrawalView, error], error) {
		return s.withdrawLogic(ctx, db, lotteryID, caller, &events)
	}

	result, err := withTelemetry(s, ctx, "Withdraw", lotteryID.String(), func(ctx context.Context) (results.OperationResult[*WithdrawalView, error], error) {
		return runInTx(s, ctx, withdrawTx)
	})
	view, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPoolBalance(ctx, lotteryID.String(), 0)
	s.publish(ctx, events)
	return view, nil
}

func (s *LotteryService) withdrawLogic(ctx context.Context, db bun.IDB, lotteryID uuid.UUID, caller lotterydomain.Address, events *[]event) (results.OperationResult[*WithdrawalView, error], error) {
	ld, err := s.load(ctx, db, lotteryID, true)
	if err != nil {
		return rejectOrFail[*WithdrawalView](err, "failed to load lottery")
	}
	amount, err := ld.lottery.Withdraw(ctx, caller)
	if err != nil {
		return rejectOrFail[*WithdrawalView](err, "withdraw")
	}
	if err := s.save(ctx, db, ld); err != nil {
		return results.OperationResult[*WithdrawalView, error]{}, err
	}

	s.logger.InfoContext(ctx, "Pool withdrawn",
		attr.ExtractCorrelationID(ctx),
		attr.LotteryID(lotteryID),
		attr.Amount("amount", amount),
	)
	view := &WithdrawalView{
		LotteryID: lotteryID,
		To:        ld.lottery.Owner().Hex(),
		Amount:    amount,
	}
	*events = append(*events, event{
		topic:     lotteryevents.WithdrawnV1,
		lotteryID: lotteryID,
		payload: lotteryevents.WithdrawnPayloadV1{
			LotteryID: lotteryID,
			To:        view.To,
			Amount:    amount.String(),
		},
	})
	return results.SuccessResult[*WithdrawalView, error](view), nil
}
