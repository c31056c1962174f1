package lotteryhandlers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/numbers-lottery/app/eventbus"
	lotteryservice "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/application"
	"github.com/Black-And-White-Club/numbers-lottery/app/observability/attr"
	lotterymetrics "github.com/Black-And-White-Club/numbers-lottery/app/observability/metrics/lottery"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const handlerService = "LotteryHandlers"

// LotteryHandlers implements the Handlers interface.
type LotteryHandlers struct {
	service lotteryservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics lotterymetrics.LotteryMetrics
}

// NewLotteryHandlers creates a new LotteryHandlers instance.
func NewLotteryHandlers(
	service lotteryservice.Service,
	logger *slog.Logger,
	tracer trace.Tracer,
	metrics lotterymetrics.LotteryMetrics,
) Handlers {
	return &LotteryHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
		metrics: metrics,
	}
}

// handle decodes a typed payload and runs fn under a span with handler
// metrics. Returned messages carry their destination in the "topic"
// metadata key.
func handle[T any](
	h *LotteryHandlers,
	handlerName string,
	msg *message.Message,
	fn func(ctx context.Context, payload *T) ([]*message.Message, error),
) ([]*message.Message, error) {
	ctx, payload, err := eventbus.Decode[T](msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to decode payload",
			attr.String("handler", handlerName),
			attr.String("message_id", msg.UUID),
			attr.Error(err),
		)
		// Undecodable messages would fail forever; drop them.
		return nil, nil
	}

	ctx, span := h.tracer.Start(ctx, handlerName, trace.WithAttributes(
		attribute.String("message_id", msg.UUID),
	))
	defer span.End()

	h.metrics.RecordOperationAttempt(ctx, handlerName, handlerService)
	start := time.Now()
	defer func() {
		h.metrics.RecordOperationDuration(ctx, handlerName, handlerService, time.Since(start))
	}()

	h.logger.InfoContext(ctx, handlerName+" triggered",
		attr.ExtractCorrelationID(ctx),
		attr.String("message_id", msg.UUID),
	)

	out, err := fn(ctx, payload)
	if err != nil {
		span.RecordError(err)
		h.metrics.RecordOperationFailure(ctx, handlerName, handlerService)
		return nil, fmt.Errorf("%s: %w", handlerName, err)
	}
	h.metrics.RecordOperationSuccess(ctx, handlerName, handlerService)
	return out, nil
}

// newResult builds an outgoing message addressed through metadata.
func newResult(ctx context.Context, topic string, payload any) (*message.Message, error) {
	msg, err := eventbus.NewMessage(ctx, payload)
	if err != nil {
		return nil, err
	}
	msg.Metadata.Set("topic", topic)
	return msg, nil
}
