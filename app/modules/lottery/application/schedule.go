package lotteryservice

import (
	"context"
	"time"

	lotterydomain "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/domain"
	lotteryevents "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/events"
	"github.com/Black-And-White-Club/numbers-lottery/app/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ScheduleNextDraw opens a new round with a fresh entry fee and draw time.
// Owner only, and only after the previous round has been drawn.
func (s *LotteryService) ScheduleNextDraw(ctx context.Context, lotteryID uuid.UUID, caller lotterydomain.Address, entryFee lotterydomain.Amount, drawTime time.Time) (*LotteryView, error) {
	defer s.lock(lotteryID)()
	var events []event

	scheduleTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*LotteryView, error], error) {
		ld, err := s.load(ctx, db, lotteryID, true)
		if err != nil {
			return rejectOrFail[*LotteryView](err, "failed to load lottery")
		}
		round, err := ld.lottery.ScheduleNextDraw(ctx, caller, entryFee, drawTime.UTC())
		if err != nil {
			return rejectOrFail[*LotteryView](err, "schedule next draw")
		}
		if err := s.save(ctx, db, ld); err != nil {
			return results.OperationResult[*LotteryView, error]{}, err
		}
		events = append(events, event{
			topic:     lotteryevents.DrawScheduledV1,
			lotteryID: lotteryID,
			payload: lotteryevents.DrawScheduledPayloadV1{
				LotteryID:   lotteryID,
				RoundNumber: round.Number,
				EntryFee:    round.EntryFee.String(),
				DrawTime:    round.DrawTime,
			},
		})
		return results.SuccessResult[*LotteryView, error](newLotteryView(ld.lottery, ld.row)), nil
	}

	result, err := withTelemetry(s, ctx, "ScheduleNextDraw", lotteryID.String(), func(ctx context.Context) (results.OperationResult[*LotteryView, error], error) {
		return runInTx(s, ctx, scheduleTx)
	})
	view, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)
	s.scheduleDraw(ctx, lotteryID, lotterydomain.Round{Number: view.RoundNumber, DrawTime: view.DrawTime})
	return view, nil
}
