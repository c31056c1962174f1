package lotteryservice

import (
	"context"
	"fmt"

	lotterydomain "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/domain"
	"github.com/Black-And-White-Club/numbers-lottery/app/results"
	"github.com/google/uuid"
)

// GetState returns the phase of the live round.
func (s *LotteryService) GetState(ctx context.Context, lotteryID uuid.UUID) (lotterydomain.Phase, error) {
	return query(s, ctx, "GetState", lotteryID, func(l *lotterydomain.Lottery) lotterydomain.Phase {
		return l.Phase()
	})
}

// EntriesCount returns how many live entries target number. Numbers outside
// the guessable range report zero.
func (s *LotteryService) EntriesCount(ctx context.Context, lotteryID uuid.UUID, number int) (uint64, error) {
	return query(s, ctx, "EntriesCount", lotteryID, func(l *lotterydomain.Lottery) uint64 {
		return l.EntriesCount(number)
	})
}

// WinningNumber returns the stored winning number, which is 0 once a round
// has been settled.
func (s *LotteryService) WinningNumber(ctx context.Context, lotteryID uuid.UUID) (uint8, error) {
	return query(s, ctx, "WinningNumber", lotteryID, func(l *lotterydomain.Lottery) uint8 {
		return l.WinningNumber()
	})
}

// ListDraws returns the settlement history, newest first.
func (s *LotteryService) ListDraws(ctx context.Context, lotteryID uuid.UUID, limit int) ([]DrawView, error) {
	result, err := withTelemetry(s, ctx, "ListDraws", lotteryID.String(), func(ctx context.Context) (results.OperationResult[*[]DrawView, error], error) {
		if _, err := s.repo.GetLottery(ctx, nil, lotteryID); err != nil {
			return rejectOrFail[*[]DrawView](err, "failed to load lottery")
		}
		rows, err := s.repo.ListDraws(ctx, nil, lotteryID, limit)
		if err != nil {
			return results.OperationResult[*[]DrawView, error]{}, err
		}
		out := make([]DrawView, 0, len(rows))
		for _, d := range rows {
			out = append(out, drawViewFromRow(d))
		}
		return results.SuccessResult[*[]DrawView, error](&out), nil
	})
	views, err := unwrap(result, err)
	if err != nil || views == nil {
		return nil, err
	}
	return *views, nil
}

// ListTransfers returns the transfer journal, newest first.
func (s *LotteryService) ListTransfers(ctx context.Context, lotteryID uuid.UUID, limit int) ([]TransferView, error) {
	result, err := withTelemetry(s, ctx, "ListTransfers", lotteryID.String(), func(ctx context.Context) (results.OperationResult[*[]TransferView, error], error) {
		if _, err := s.repo.GetLottery(ctx, nil, lotteryID); err != nil {
			return rejectOrFail[*[]TransferView](err, "failed to load lottery")
		}
		rows, err := s.repo.ListTransfers(ctx, nil, lotteryID, limit)
		if err != nil {
			return results.OperationResult[*[]TransferView, error]{}, err
		}
		out := make([]TransferView, 0, len(rows))
		for _, t := range rows {
			out = append(out, transferViewFromRow(t))
		}
		return results.SuccessResult[*[]TransferView, error](&out), nil
	})
	views, err := unwrap(result, err)
	if err != nil || views == nil {
		return nil, err
	}
	return *views, nil
}

// query runs a read-only projection of one lottery under telemetry.
func query[T any](s *LotteryService, ctx context.Context, operationName string, lotteryID uuid.UUID, pick func(*lotterydomain.Lottery) T) (T, error) {
	var zero T
	result, err := withTelemetry(s, ctx, operationName, lotteryID.String(), func(ctx context.Context) (results.OperationResult[*T, error], error) {
		ld, err := s.load(ctx, nil, lotteryID, false)
		if err != nil {
			return rejectOrFail[*T](err, "failed to load lottery")
		}
		v := pick(ld.lottery)
		return results.SuccessResult[*T, error](&v), nil
	})
	v, err := unwrap(result, err)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, fmt.Errorf("%s: empty result", operationName)
	}
	return *v, nil
}
