package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/clinic-dispensary/pkg/logger"
)

// Consumer wraps Kafka consumer. A message is committed once its handler
// succeeds or rejects it permanently; transient failures are retried with
// backoff and left uncommitted if they persist, so the group redelivers them.
type Consumer struct {
	consumer      sarama.ConsumerGroup
	groupID       string
	topics        []string
	handlers      map[string]EventHandler
	handlersMutex sync.RWMutex

	maxAttempts  int
	retryBackoff time.Duration
	maxBackoff   time.Duration
}

// permanentError marks a failure that redelivery cannot fix
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the consumer commits the message instead of retrying it
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// EventHandler handles the raw payload of one event type
type EventHandler func(ctx context.Context, payload []byte) error

// QuarantineRequestedHandler handles decoded quarantine requests
type QuarantineRequestedHandler func(ctx context.Context, event QuarantineRequestedEvent) error

// NewConsumer creates a new Kafka consumer
func NewConsumer(brokers []string, groupID string, topics []string) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_6_0_0
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	logger.Logger.Info().
		Strs("brokers", brokers).
		Str("group_id", groupID).
		Strs("topics", topics).
		Msg("Kafka consumer initialized")

	return newConsumer(group, groupID, topics), nil
}

func newConsumer(group sarama.ConsumerGroup, groupID string, topics []string) *Consumer {
	return &Consumer{
		consumer: group,
		groupID:  groupID,
		topics:   topics,
		handlers: make(map[string]EventHandler),

		maxAttempts:  5,
		retryBackoff: 200 * time.Millisecond,
		maxBackoff:   10 * time.Second,
	}
}

// RegisterHandler registers an event handler for a specific event type
func (c *Consumer) RegisterHandler(eventType string, handler EventHandler) {
	c.handlersMutex.Lock()
	defer c.handlersMutex.Unlock()
	c.handlers[eventType] = handler
	logger.Logger.Info().
		Str("event_type", eventType).
		Msg("Event handler registered")
}

// HandleQuarantineRequested registers a typed handler for quarantine requests
func (c *Consumer) HandleQuarantineRequested(handler QuarantineRequestedHandler) {
	c.RegisterHandler(EventTypeQuarantineRequested, func(ctx context.Context, payload []byte) error {
		var event QuarantineRequestedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return Permanent(fmt.Errorf("failed to unmarshal quarantine request: %w", err))
		}
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.Int64("unit.id", int64(event.UnitID)),
			attribute.Int64("clinic.id", int64(event.ClinicID)),
		)
		return handler(ctx, event)
	})
}

// Run consumes until ctx is cancelled
func (c *Consumer) Run(ctx context.Context) error {
	handler := &consumerGroupHandler{consumer: c}

	go func() {
		for err := range c.consumer.Errors() {
			logger.Logger.Error().
				Err(err).
				Msg("Consumer error")
		}
	}()

	logger.Logger.Info().
		Strs("topics", c.topics).
		Str("group_id", c.groupID).
		Msg("Kafka consumer started")

	backoff := c.retryBackoff
	for {
		err := c.consumer.Consume(ctx, c.topics, handler)
		if ctx.Err() != nil {
			logger.Logger.Info().Msg("Consumer context cancelled, stopping...")
			return nil
		}
		if err == nil {
			backoff = c.retryBackoff
			continue
		}

		logger.Logger.Error().
			Err(err).
			Dur("retry_in", backoff).
			Msg("Error from consumer")
		if !sleep(ctx, backoff) {
			logger.Logger.Info().Msg("Consumer context cancelled, stopping...")
			return nil
		}
		backoff = c.nextBackoff(backoff)
	}
}

func (c *Consumer) nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > c.maxBackoff {
		return c.maxBackoff
	}
	return d
}

// sleep waits for d and reports false if ctx ended first
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	if c.consumer != nil {
		return c.consumer.Close()
	}
	return nil
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	consumer *Consumer
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := h.process(session.Context(), message); err != nil {
			// the offset stays uncommitted; the next session redelivers it
			return err
		}
		session.MarkMessage(message, "")
	}
	return nil
}

// process retries transient handler failures with backoff. It returns nil
// when the message may be committed.
func (h *consumerGroupHandler) process(ctx context.Context, message *sarama.ConsumerMessage) error {
	c := h.consumer
	backoff := c.retryBackoff
	for attempt := 1; ; attempt++ {
		err := h.handleMessage(ctx, message)
		if err == nil || IsPermanent(err) {
			return nil
		}
		if attempt >= c.maxAttempts {
			return fmt.Errorf("message %s/%d@%d failed after %d attempts: %w",
				message.Topic, message.Partition, message.Offset, attempt, err)
		}
		if !sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff = c.nextBackoff(backoff)
	}
}

// handleMessage dispatches one message. Unroutable messages come back as
// permanent errors.
func (h *consumerGroupHandler) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	carrier := propagation.MapCarrier{}
	var eventType, eventID string
	for _, header := range message.Headers {
		switch key := string(header.Key); key {
		case "traceparent", "tracestate":
			carrier[key] = string(header.Value)
		case "event_type":
			eventType = string(header.Value)
		case "event_id":
			eventID = string(header.Value)
		}
	}
	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)

	tracer := otel.Tracer("kafka-consumer")
	ctx, span := tracer.Start(ctx, "kafka.consume."+eventType,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.source", message.Topic),
			attribute.String("messaging.source_kind", "topic"),
			attribute.Int("messaging.kafka.partition", int(message.Partition)),
			attribute.Int64("messaging.kafka.offset", message.Offset),
			attribute.String("event.type", eventType),
			attribute.String("event.id", eventID),
		),
	)
	defer span.End()

	if eventType == "" {
		span.SetStatus(codes.Error, "Message without event_type header")
		logger.Warn(ctx).Str("topic", message.Topic).Msg("Message without event_type header")
		return Permanent(errors.New("message without event_type header"))
	}

	h.consumer.handlersMutex.RLock()
	handler, exists := h.consumer.handlers[eventType]
	h.consumer.handlersMutex.RUnlock()

	if !exists {
		span.SetStatus(codes.Error, "No handler registered")
		logger.Warn(ctx).
			Str("event_type", eventType).
			Msg("No handler registered for event type")
		return Permanent(fmt.Errorf("no handler registered for %s", eventType))
	}

	if err := handler(ctx, message.Value); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to handle event")
		logger.Error(ctx).
			Err(err).
			Str("event_type", eventType).
			Str("event_id", eventID).
			Bool("permanent", IsPermanent(err)).
			Msg("Failed to handle event")
		return err
	}

	span.SetStatus(codes.Ok, "Event handled successfully")
	logger.Info(ctx).
		Str("event_type", eventType).
		Str("event_id", eventID).
		Msg("Event handled successfully")
	return nil
}
