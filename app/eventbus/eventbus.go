package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/numbers-lottery/app/observability/attr"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	nc "github.com/nats-io/nats.go"
)

// EventBus publishes and subscribes Watermill messages.
type EventBus interface {
	message.Publisher
	message.Subscriber
}

type eventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger
}

// NewEventBus connects a Watermill publisher and subscriber to NATS core
// subjects. Subscribers share a queue group so replicas split the work.
func NewEventBus(ctx context.Context, natsURL string, queueGroup string, logger *slog.Logger) (EventBus, error) {
	watermillLogger := watermill.NewSlogLogger(logger)
	marshaler := &nats.NATSMarshaler{}
	natsOptions := []nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.Timeout(10 * time.Second),
		nc.ReconnectWait(time.Second),
		nc.Name("numbers-lottery"),
	}

	publisher, err := nats.NewPublisher(
		nats.PublisherConfig{
			URL:         natsURL,
			Marshaler:   marshaler,
			NatsOptions: natsOptions,
			JetStream:   nats.JetStreamConfig{Disabled: true},
		},
		watermillLogger,
	)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create Watermill publisher", attr.Error(err))
		return nil, fmt.Errorf("failed to create Watermill publisher: %w", err)
	}

	subscriber, err := nats.NewSubscriber(
		nats.SubscriberConfig{
			URL:              natsURL,
			QueueGroupPrefix: queueGroup,
			SubscribersCount: 1,
			Unmarshaler:      marshaler,
			NatsOptions:      natsOptions,
			JetStream:        nats.JetStreamConfig{Disabled: true},
		},
		watermillLogger,
	)
	if err != nil {
		publisher.Close()
		logger.ErrorContext(ctx, "Failed to create Watermill subscriber", attr.Error(err))
		return nil, fmt.Errorf("failed to create Watermill subscriber: %w", err)
	}

	logger.InfoContext(ctx, "Event bus connected", attr.String("nats_url", natsURL))
	return &eventBus{publisher: publisher, subscriber: subscriber, logger: logger}, nil
}

// NewInMemoryEventBus returns a process-local bus for tests and single node
// runs without NATS.
func NewInMemoryEventBus(logger *slog.Logger) EventBus {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, watermill.NewSlogLogger(logger))
	return &eventBus{publisher: pubsub, subscriber: pubsub, logger: logger}
}

func (eb *eventBus) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		if msg.UUID == "" {
			msg.UUID = watermill.NewUUID()
		}
		eb.logger.Debug("Publishing message",
			attr.String("topic", topic),
			attr.String("message_id", msg.UUID),
			attr.String(attr.CorrelationIDKey, msg.Metadata.Get(attr.CorrelationIDKey)),
		)
	}
	if err := eb.publisher.Publish(topic, messages...); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (eb *eventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	eb.logger.Info("Subscribing to topic", attr.String("topic", topic))
	return eb.subscriber.Subscribe(ctx, topic)
}

func (eb *eventBus) Close() error {
	var errs []error
	if err := eb.publisher.Close(); err != nil {
		errs = append(errs, err)
	}
	if any(eb.subscriber) != any(eb.publisher) {
		if err := eb.subscriber.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewMessage marshals payload to JSON and stamps the correlation id from ctx,
// generating one when absent.
func NewMessage(ctx context.Context, payload any) (*message.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	correlationID := attr.CorrelationID(ctx)
	if correlationID == "" {
		correlationID = watermill.NewUUID()
	}
	msg.Metadata.Set(attr.CorrelationIDKey, correlationID)
	msg.SetContext(attr.WithCorrelationID(ctx, correlationID))
	return msg, nil
}

// Decode unmarshals a message payload and returns a context carrying its
// correlation id.
func Decode[T any](msg *message.Message) (context.Context, *T, error) {
	ctx := msg.Context()
	if id := msg.Metadata.Get(attr.CorrelationIDKey); id != "" {
		ctx = attr.WithCorrelationID(ctx, id)
	}
	var payload T
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return ctx, nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return ctx, &payload, nil
}
