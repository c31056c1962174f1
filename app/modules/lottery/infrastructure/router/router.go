package lotteryrouter

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	lotteryservice "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/application"
	lotteryevents "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/events"
	lotteryhandlers "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/infrastructure/handlers"
	"github.com/Black-And-White-Club/numbers-lottery/app/observability/attr"
	lotterymetrics "github.com/Black-And-White-Club/numbers-lottery/app/observability/metrics/lottery"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

const (
	TestEnvironmentFlag  = "APP_ENV"
	TestEnvironmentValue = "test"
)

// LotteryRouter wires lottery event handlers onto a Watermill router.
type LotteryRouter struct {
	logger         *slog.Logger
	Router         *message.Router
	subscriber     message.Subscriber
	publisher      message.Publisher
	tracer         trace.Tracer
	metricsBuilder *metrics.PrometheusMetricsBuilder
	metricsEnabled bool
}

func NewLotteryRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	publisher message.Publisher,
	tracer trace.Tracer,
	prometheusRegistry *prometheus.Registry,
) *LotteryRouter {
	inTestEnv := os.Getenv(TestEnvironmentFlag) == TestEnvironmentValue

	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if prometheusRegistry != nil && !inTestEnv {
		builder := metrics.NewPrometheusMetricsBuilder(prometheusRegistry, "", "")
		metricsBuilder = &builder
	}
	return &LotteryRouter{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		publisher:      publisher,
		tracer:         tracer,
		metricsBuilder: metricsBuilder,
		metricsEnabled: metricsBuilder != nil,
	}
}

// Configure adds the router middleware and registers the lottery handlers.
func (r *LotteryRouter) Configure(routerCtx context.Context, service lotteryservice.Service, lotteryMetrics lotterymetrics.LotteryMetrics) error {
	if r.metricsEnabled {
		r.logger.Info("Adding Prometheus router metrics middleware")
		r.metricsBuilder.AddPrometheusRouterMetrics(r.Router)
	} else {
		r.logger.Info("Skipping Prometheus router metrics middleware - either in test environment or metrics not configured")
	}

	handlers := lotteryhandlers.NewLotteryHandlers(service, r.logger, r.tracer, lotteryMetrics)

	r.Router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
		middleware.Retry{MaxRetries: 3}.Middleware,
	)

	if err := r.RegisterHandlers(routerCtx, handlers); err != nil {
		return fmt.Errorf("failed to register handlers: %w", err)
	}
	return nil
}

// RegisterHandlers subscribes each handler to its topic. Returned messages
// are published here rather than by Watermill so the output topic can be
// chosen per message.
func (r *LotteryRouter) RegisterHandlers(ctx context.Context, handlers lotteryhandlers.Handlers) error {
	eventsToHandlers := map[string]message.HandlerFunc{
		lotteryevents.DrawRequestedV1: handlers.HandleDrawRequested,
	}

	for topic, handlerFunc := range eventsToHandlers {
		handlerName := fmt.Sprintf("lottery.%s", topic)
		r.Router.AddHandler(
			handlerName,
			topic,
			r.subscriber,
			"",
			nil,
			func(msg *message.Message) ([]*message.Message, error) {
				messages, err := handlerFunc(msg)
				if err != nil {
					r.logger.ErrorContext(ctx, "Error processing message", attr.String("message_id", msg.UUID), attr.Error(err))
					return nil, err
				}
				for _, m := range messages {
					publishTopic := r.getPublishTopic(handlerName, m)
					if publishTopic == "" {
						r.logger.Error("router failed to resolve publish topic - MESSAGE DROPPED",
							attr.String("handler", handlerName),
							attr.String("msg_uuid", m.UUID),
							attr.String(attr.CorrelationIDKey, m.Metadata.Get(attr.CorrelationIDKey)),
						)
						continue
					}

					r.logger.InfoContext(ctx, "publishing message",
						attr.String("topic", publishTopic),
						attr.String("handler", handlerName),
						attr.String(attr.CorrelationIDKey, m.Metadata.Get(attr.CorrelationIDKey)),
					)

					if err := r.publisher.Publish(publishTopic, m); err != nil {
						return nil, fmt.Errorf("failed to publish to %s: %w", publishTopic, err)
					}
				}
				return nil, nil
			},
		)
	}
	return nil
}

func (r *LotteryRouter) Close() error {
	return r.Router.Close()
}

func (r *LotteryRouter) getPublishTopic(handlerName string, msg *message.Message) string {
	switch handlerName {
	case "lottery." + lotteryevents.DrawRequestedV1:
		return lotteryevents.DrawRequestFailedV1
	default:
		r.logger.Warn("unknown handler in topic resolution",
			attr.String("handler", handlerName),
		)
		return msg.Metadata.Get("topic")
	}
}
