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

// CreateLottery constructs a lottery with round 1 opened and an empty pool.
func (s *LotteryService) CreateLottery(ctx context.Context, req CreateLotteryRequest) (*LotteryView, error) {
	id := uuid.New()
	var events []event

	createTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*LotteryView, error], error) {
		return s.createLotteryLogic(ctx, db, id, req, &events)
	}

	result, err := withTelemetry(s, ctx, "CreateLottery", id.String(), func(ctx context.Context) (results.OperationResult[*LotteryView, error], error) {
		return runInTx(s, ctx, createTx)
	})
	view, err := unwrap(result, err)
	if err != nil || view == nil {
		return nil, err
	}

	s.publish(ctx, events)
	s.scheduleDraw(ctx, id, lotterydomain.Round{Number: view.RoundNumber, DrawTime: view.DrawTime})
	return view, nil
}

func (s *LotteryService) createLotteryLogic(ctx context.Context, db bun.IDB, id uuid.UUID, req CreateLotteryRequest, events *[]event) (results.OperationResult[*LotteryView, error], error) {
	if req.Owner == (lotterydomain.Address{}) {
		return results.FailureResult[*LotteryView, error](lotterydomain.ErrInvalidAddress), nil
	}
	l, err := lotterydomain.New(id, req.Owner, req.EntryFee, req.DrawTime.UTC(), lotterydomain.Deps{
		Policy:     s.policy,
		Random:     s.random,
		Clock:      s.clock,
		Transferer: s.transferer(db, id),
	})
	if err != nil {
		return rejectOrFail[*LotteryView](err, "failed to construct lottery")
	}

	round := l.Round()
	row := &lotterydb.Lottery{
		ID:           id,
		Owner:        l.Owner().Hex(),
		EntryFee:     round.EntryFee,
		DrawTime:     round.DrawTime,
		Phase:        int16(round.Phase),
		RoundNumber:  int64(round.Number),
		PoolBalance:  l.Pool(),
		PayoutPolicy: s.policy.Name(),
	}
	if fm, ok := s.policy.(lotterydomain.FixedMultiplier); ok {
		row.Multiplier = int64(fm.Multiplier)
	}
	if err := s.repo.CreateLottery(ctx, db, row); err != nil {
		return results.OperationResult[*LotteryView, error]{}, fmt.Errorf("failed to create lottery: %w", err)
	}

	s.logger.InfoContext(ctx, "Lottery created",
		attr.ExtractCorrelationID(ctx),
		attr.LotteryID(id),
		attr.String("owner", row.Owner),
		attr.Amount("entry_fee", round.EntryFee),
		attr.Time("draw_time", round.DrawTime),
	)
	*events = append(*events, event{
		topic:     lotteryevents.LotteryCreatedV1,
		lotteryID: id,
		payload: lotteryevents.LotteryCreatedPayloadV1{
			LotteryID:   id,
			Owner:       row.Owner,
			EntryFee:    round.EntryFee.String(),
			DrawTime:    round.DrawTime,
			RoundNumber: round.Number,
		},
	})
	return results.SuccessResult[*LotteryView, error](newLotteryView(l, row)), nil
}

// GetLottery returns the read model of one lottery.
func (s *LotteryService) GetLottery(ctx context.Context, lotteryID uuid.UUID) (*LotteryView, error) {
	result, err := withTelemetry(s, ctx, "GetLottery", lotteryID.String(), func(ctx context.Context) (results.OperationResult[*LotteryView, error], error) {
		return s.getLotteryLogic(ctx, nil, lotteryID)
	})
	return unwrap(result, err)
}

func (s *LotteryService) getLotteryLogic(ctx context.Context, db bun.IDB, lotteryID uuid.UUID) (results.OperationResult[*LotteryView, error], error) {
	ld, err := s.load(ctx, db, lotteryID, false)
	if err != nil {
		return rejectOrFail[*LotteryView](err, "failed to load lottery")
	}
	return results.SuccessResult[*LotteryView, error](newLotteryView(ld.lottery, ld.row)), nil
}

// ListLotteries returns up to limit lotteries, newest first.
func (s *LotteryService) ListLotteries(ctx context.Context, limit int) ([]LotteryView, error) {
	result, err := withTelemetry(s, ctx, "ListLotteries", fmt.Sprintf("limit=%d", limit), func(ctx context.Context) (results.OperationResult[*[]LotteryView, error], error) {
		rows, err := s.repo.ListLotteries(ctx, nil, limit)
		if err != nil {
			return results.OperationResult[*[]LotteryView, error]{}, err
		}
		out := make([]LotteryView, 0, len(rows))
		for _, row := range rows {
			ld, err := s.load(ctx, nil, row.ID, false)
			if err != nil {
				return results.OperationResult[*[]LotteryView, error]{}, err
			}
			out = append(out, *newLotteryView(ld.lottery, ld.row))
		}
		return results.SuccessResult[*[]LotteryView, error](&out), nil
	})
	views, err := unwrap(result, err)
	if err != nil || views == nil {
		return nil, err
	}
	return *views, nil
}
