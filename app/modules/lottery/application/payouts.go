package lotteryservice

import (
	"context"
	"fmt"

	lotterydomain "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/domain"
	lotteryevents "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/events"
	lotterydb "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/infrastructure/repositories"
	"github.com/Black-And-White-Club/numbers-lottery/app/observability/attr"
	"github.com/Black-And-White-Club/numbers-lottery/app/results"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SettlePendingPayouts hands pending payouts to the wallet oldest first and
// marks each accepted one settled. It stops at the first refusal; whatever is
// left stays pending for the next call. Lottery state is not touched, since
// the draw already took these amounts out of the pool.
func (s *LotteryService) SettlePendingPayouts(ctx context.Context, lotteryID uuid.UUID) (*SettlementView, error) {
	defer s.lock(lotteryID)()
	var events []event

	settleTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*SettlementView, error], error) {
		if _, err := s.repo.GetLotteryForUpdate(ctx, db, lotteryID); err != nil {
			return rejectOrFail[*SettlementView](err, "failed to load lottery")
		}
		pending, err := s.repo.ListPendingTransfers(ctx, db, lotteryID)
		if err != nil {
			return results.OperationResult[*SettlementView, error]{}, err
		}

		view := &SettlementView{LotteryID: lotteryID, Settled: []TransferView{}, Pending: []TransferView{}}
		for i, row := range pending {
			if err := s.settle(ctx, row); err != nil {
				s.logger.WarnContext(ctx, "Wallet refused pending payout",
					attr.ExtractCorrelationID(ctx),
					attr.LotteryID(lotteryID),
					attr.String("transfer_id", row.ID.String()),
					attr.Error(err),
				)
				for _, rest := range pending[i:] {
					view.Pending = append(view.Pending, transferViewFromRow(rest))
				}
				break
			}
			if err := s.repo.MarkTransferSettled(ctx, db, row.ID); err != nil {
				return results.OperationResult[*SettlementView, error]{}, fmt.Errorf("failed to settle transfer %s: %w", row.ID, err)
			}
			row.Status = lotterydb.TransferSettled
			view.Settled = append(view.Settled, transferViewFromRow(row))
		}

		if len(view.Settled) > 0 {
			payload := lotteryevents.PayoutsSettledPayloadV1{LotteryID: lotteryID, Pending: len(view.Pending)}
			for _, t := range view.Settled {
				payload.Settled = append(payload.Settled, lotteryevents.PaidV1{
					RoundNumber: t.RoundNumber,
					To:          t.Counterparty,
					Amount:      t.Amount.String(),
				})
			}
			events = append(events, event{topic: lotteryevents.PayoutsSettledV1, lotteryID: lotteryID, payload: payload})
		}
		return results.SuccessResult[*SettlementView, error](view), nil
	}

	result, err := withTelemetry(s, ctx, "SettlePendingPayouts", lotteryID.String(), func(ctx context.Context) (results.OperationResult[*SettlementView, error], error) {
		return runInTx(s, ctx, settleTx)
	})
	view, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events)
	return view, nil
}

func (s *LotteryService) settle(ctx context.Context, row *lotterydb.Transfer) error {
	if s.wallet == nil {
		return nil
	}
	return s.wallet.Transfer(ctx, lotterydomain.Transfer{
		Kind:        lotterydomain.TransferKind(row.Kind),
		To:          common.HexToAddress(row.Counterparty),
		Amount:      row.Amount,
		RoundNumber: uint64(row.RoundNumber),
	})
}
