package lotteryhandlers

import (
	"context"
	"errors"

	lotterydomain "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/domain"
	lotteryevents "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/events"
	lotterydb "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/infrastructure/repositories"
	"github.com/Black-And-White-Club/numbers-lottery/app/observability/attr"
	"github.com/ThreeDotsLabs/watermill/message"
)

// HandleDrawRequested performs a scheduled draw. Rejections are reported on
// the failure topic instead of being retried; infrastructure errors are
// returned so the router retries them. A request that arrives before the
// draw time is re-enqueued by the service and needs nothing here.
func (h *LotteryHandlers) HandleDrawRequested(msg *message.Message) ([]*message.Message, error) {
	return handle(h, "HandleDrawRequested", msg, func(ctx context.Context, payload *lotteryevents.DrawRequestedPayloadV1) ([]*message.Message, error) {
		draw, err := h.service.HandleScheduledDraw(ctx, payload.LotteryID, payload.RoundNumber)
		if err == nil {
			if draw == nil {
				h.logger.InfoContext(ctx, "Draw request was stale or re-enqueued",
					attr.LotteryID(payload.LotteryID),
					attr.Uint64("round_number", payload.RoundNumber),
				)
			}
			return nil, nil
		}

		failure := lotteryevents.DrawRequestFailedPayloadV1{
			LotteryID:   payload.LotteryID,
			RoundNumber: payload.RoundNumber,
			Reason:      err.Error(),
		}
		switch {
		case lotterydomain.IsRejection(err):
			code, _ := lotterydomain.CodeOf(err)
			failure.Code = string(code)
		case errors.Is(err, lotterydb.ErrNotFound):
			failure.Code = "NOT_FOUND"
		default:
			return nil, err
		}

		h.logger.WarnContext(ctx, "Scheduled draw rejected",
			attr.ExtractCorrelationID(ctx),
			attr.LotteryID(payload.LotteryID),
			attr.String("code", failure.Code),
			attr.Error(err),
		)
		out, err := newResult(ctx, lotteryevents.DrawRequestFailedV1, failure)
		if err != nil {
			return nil, err
		}
		return []*message.Message{out}, nil
	})
}
