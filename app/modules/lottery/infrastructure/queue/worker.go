package lotteryqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/numbers-lottery/app/eventbus"
	lotteryevents "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/events"
	"github.com/Black-And-White-Club/numbers-lottery/app/observability/attr"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/riverqueue/river"
)

// DrawWorker turns a due DrawJob into a draw request on the event bus. The
// lottery module performs the draw, so a job for a round that was already
// settled by hand is harmless.
type DrawWorker struct {
	river.WorkerDefaults[DrawJob]
	logger    *slog.Logger
	publisher message.Publisher
	now       func() time.Time
}

func NewDrawWorker(logger *slog.Logger, publisher message.Publisher) *DrawWorker {
	return &DrawWorker{
		logger:    logger,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (w *DrawWorker) Work(ctx context.Context, job *river.Job[DrawJob]) error {
	ctxLogger := w.logger.With(
		attr.LotteryID(job.Args.LotteryID),
		attr.Uint64("round_number", job.Args.RoundNumber),
		attr.String("job_kind", DrawJobKind),
	)
	ctxLogger.InfoContext(ctx, "Draw job due")

	msg, err := eventbus.NewMessage(ctx, lotteryevents.DrawRequestedPayloadV1{
		LotteryID:   job.Args.LotteryID,
		RoundNumber: job.Args.RoundNumber,
		RequestedAt: w.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to build draw request: %w", err)
	}
	if err := w.publisher.Publish(lotteryevents.DrawRequestedV1, msg); err != nil {
		ctxLogger.ErrorContext(ctx, "Failed to publish draw request", attr.Error(err))
		return fmt.Errorf("failed to publish draw request: %w", err)
	}

	ctxLogger.InfoContext(ctx, "Draw request published", attr.String("message_id", msg.UUID))
	return nil
}
