package lotteryservice

import (
	"context"
	"fmt"
	"time"

	lotterydomain "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/domain"
	lotteryevents "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/events"
	lotterydb "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/infrastructure/repositories"
	"github.com/Black-And-White-Club/numbers-lottery/app/observability/attr"
	"github.com/Black-And-White-Club/numbers-lottery/app/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SchedulerCaller is the caller recorded for draws triggered by the
// scheduler rather than by a user.
var SchedulerCaller = lotterydomain.Address{}

// DrawNumber settles the live round. Anyone may call it once the draw time
// has passed.
func (s *LotteryService) DrawNumber(ctx context.Context, lotteryID uuid.UUID, caller lotterydomain.Address) (*DrawView, error) {
	defer s.lock(lotteryID)()
	var events []event

	drawTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*DrawView, error], error) {
		ld, err := s.load(ctx, db, lotteryID, true)
		if err != nil {
			return rejectOrFail[*DrawView](err, "failed to load lottery")
		}
		return s.drawLogic(ctx, db, ld, caller, &events)
	}

	result, err := withTelemetry(s, ctx, "DrawNumber", lotteryID.String(), func(ctx context.Context) (results.OperationResult[*DrawView, error], error) {
		return runInTx(s, ctx, drawTx)
	})
	view, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}

	s.afterDraw(ctx, view, events)
	if s.autoDraw && s.scheduler != nil {
		if err := s.scheduler.CancelDrawJobs(ctx, lotteryID); err != nil {
			s.logger.WarnContext(ctx, "Failed to cancel pending draw jobs", attr.LotteryID(lotteryID), attr.Error(err))
		}
	}
	return view, nil
}

// HandleScheduledDraw settles roundNumber on behalf of the scheduler. A job
// that fires before the draw time by this service's clock is re-enqueued
// rather than rejected, so the round is still drawn.
func (s *LotteryService) HandleScheduledDraw(ctx context.Context, lotteryID uuid.UUID, roundNumber uint64) (*DrawView, error) {
	defer s.lock(lotteryID)()
	var (
		events  []event
		retryAt time.Time
	)

	drawTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*DrawView, error], error) {
		ld, err := s.load(ctx, db, lotteryID, true)
		if err != nil {
			return rejectOrFail[*DrawView](err, "failed to load lottery")
		}
		round := ld.lottery.Round()
		if round.Number != roundNumber || round.Phase != lotterydomain.PhaseOpened {
			s.logger.InfoContext(ctx, "Ignoring stale draw request",
				attr.ExtractCorrelationID(ctx),
				attr.LotteryID(lotteryID),
				attr.Uint64("requested_round", roundNumber),
				attr.Uint64("live_round", round.Number),
				attr.String("phase", round.Phase.String()),
			)
			return results.SuccessResult[*DrawView, error](nil), nil
		}
		if now := s.clock.Now(); now.Before(round.DrawTime) && s.autoDraw && s.scheduler != nil {
			// The queue's clock is ahead of ours by at least the gap.
			retryAt = round.DrawTime.Add(round.DrawTime.Sub(now))
			return results.SuccessResult[*DrawView, error](nil), nil
		}
		return s.drawLogic(ctx, db, ld, SchedulerCaller, &events)
	}

	result, err := withTelemetry(s, ctx, "HandleScheduledDraw", lotteryID.String(), func(ctx context.Context) (results.OperationResult[*DrawView, error], error) {
		return runInTx(s, ctx, drawTx)
	})
	view, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}
	if !retryAt.IsZero() {
		s.logger.WarnContext(ctx, "Scheduled draw fired early, re-enqueueing",
			attr.ExtractCorrelationID(ctx),
			attr.LotteryID(lotteryID),
			attr.Uint64("round_number", roundNumber),
			attr.Time("retry_at", retryAt),
		)
		if err := s.scheduler.RescheduleDraw(ctx, lotteryID, roundNumber, retryAt); err != nil {
			return nil, fmt.Errorf("failed to reschedule draw: %w", err)
		}
		return nil, nil
	}
	if view == nil {
		return nil, nil
	}

	s.afterDraw(ctx, view, events)
	return view, nil
}

func (s *LotteryService) drawLogic(ctx context.Context, db bun.IDB, ld *loaded, caller lotterydomain.Address, events *[]event) (results.OperationResult[*DrawView, error], error) {
	lotteryID := ld.lottery.ID()
	outcome, err := ld.lottery.DrawNumber(ctx, caller)
	if err != nil {
		return rejectOrFail[*DrawView](err, "draw number")
	}

	if err := s.save(ctx, db, ld); err != nil {
		return results.OperationResult[*DrawView, error]{}, err
	}
	if err := s.repo.DeleteEntries(ctx, db, lotteryID, int64(outcome.RoundNumber)); err != nil {
		return results.OperationResult[*DrawView, error]{}, fmt.Errorf("failed to clear entries: %w", err)
	}
	err = s.repo.InsertDraw(ctx, db, &lotterydb.Draw{
		ID:            uuid.New(),
		LotteryID:     lotteryID,
		RoundNumber:   int64(outcome.RoundNumber),
		WinningNumber: int16(outcome.WinningNumber),
		Winners:       len(outcome.Payouts),
		Entries:       int64(outcome.Entries),
		TotalPayout:   outcome.TotalPayout,
		PoolBefore:    outcome.PoolBefore,
		PoolAfter:     outcome.PoolAfter,
		DrawnBy:       outcome.DrawnBy.Hex(),
		DrawnAt:       outcome.DrawnAt,
	})
	if err != nil {
		return results.OperationResult[*DrawView, error]{}, fmt.Errorf("failed to record draw: %w", err)
	}
	if len(outcome.Unpaid) > 0 {
		s.logger.ErrorContext(ctx, "Payouts left pending after wallet failure",
			attr.ExtractCorrelationID(ctx),
			attr.LotteryID(lotteryID),
			attr.Uint64("round_number", outcome.RoundNumber),
			attr.Int("pending", len(outcome.Unpaid)),
			attr.Error(outcome.PayoutErr),
		)
	}
	for _, p := range outcome.Unpaid {
		_, err := s.journal(ctx, db, lotteryID, lotterydomain.Transfer{
			Kind:        lotterydomain.TransferPayout,
			To:          p.Bettor,
			Amount:      p.Amount,
			RoundNumber: outcome.RoundNumber,
		}, lotterydb.TransferPending)
		if err != nil {
			return results.OperationResult[*DrawView, error]{}, fmt.Errorf("failed to journal pending payout: %w", err)
		}
	}

	view := newDrawView(lotteryID, outcome)
	payload := lotteryevents.NumberDrawnPayloadV1{
		LotteryID:     lotteryID,
		RoundNumber:   outcome.RoundNumber,
		WinningNumber: outcome.WinningNumber,
		Winners:       make([]lotteryevents.WinnerV1, 0, len(view.Winners)),
		TotalPayout:   outcome.TotalPayout.String(),
		Entries:       outcome.Entries,
		PoolBalance:   outcome.PoolAfter.String(),
		DrawnBy:       view.DrawnBy,
		DrawnAt:       outcome.DrawnAt,
	}
	for _, w := range view.Winners {
		payload.Winners = append(payload.Winners, winnerV1(w))
	}
	for _, w := range view.PendingPayouts {
		payload.PendingPayouts = append(payload.PendingPayouts, winnerV1(w))
	}
	*events = append(*events, event{topic: lotteryevents.NumberDrawnV1, lotteryID: lotteryID, payload: payload})
	return results.SuccessResult[*DrawView, error](view), nil
}

func (s *LotteryService) afterDraw(ctx context.Context, view *DrawView, events []event) {
	s.logger.InfoContext(ctx, "Round settled",
		attr.ExtractCorrelationID(ctx),
		attr.LotteryID(view.LotteryID),
		attr.Uint64("round_number", view.RoundNumber),
		attr.Int("winning_number", int(view.WinningNumber)),
		attr.Int("winners", view.WinnerCount),
		attr.Amount("total_payout", view.TotalPayout),
	)
	s.metrics.RecordDraw(ctx, int(view.WinningNumber), view.WinnerCount, view.TotalPayout.Float64())
	s.metrics.RecordPoolBalance(ctx, view.LotteryID.String(), view.PoolAfter.Float64())
	s.publish(ctx, events)
}

func winnerV1(w WinnerView) lotteryevents.WinnerV1 {
	return lotteryevents.WinnerV1{
		Bettor: w.Bettor,
		Stake:  w.Stake.String(),
		Amount: w.Amount.String(),
	}
}
