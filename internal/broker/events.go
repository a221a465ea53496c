package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"commerce-service/internal/models"
	"commerce-service/internal/util"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Topics names the topic of each event type
type Topics struct {
	OrderCreated     string
	StockReservation string
	StockRelease     string
	ProductUpdated   string
}

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
	topics   Topics
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer, topics Topics) *EventPublisher {
	return &EventPublisher{producer: producer, topics: topics}
}

// PublishOrderCreated publishes OrderCreated event
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	return ep.publish(ctx, ep.topics.OrderCreated, event.OrderID.String(), event.EventType, event)
}

// PublishStockReservation publishes StockReservation event
func (ep *EventPublisher) PublishStockReservation(ctx context.Context, event *models.StockReservationEvent) error {
	return ep.publish(ctx, ep.topics.StockReservation, event.OrderID.String(), event.EventType, event)
}

// PublishStockRelease publishes StockRelease event
func (ep *EventPublisher) PublishStockRelease(ctx context.Context, event *models.StockReleaseEvent) error {
	return ep.publish(ctx, ep.topics.StockRelease, event.OrderID.String(), event.EventType, event)
}

// PublishProductUpdated publishes ProductUpdated event
func (ep *EventPublisher) PublishProductUpdated(ctx context.Context, event *models.ProductUpdatedEvent) error {
	return ep.publish(ctx, ep.topics.ProductUpdated, event.ProductID.String(), event.EventType, event)
}

func (ep *EventPublisher) publish(ctx context.Context, topic, key, eventType string, event interface{}) error {
	ctx, span := util.StartSpan(ctx, "EventPublisher.Publish")
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.destination", topic),
		attribute.String("event.type", eventType),
	)

	if err := ep.producer.PublishEvent(ctx, topic, key, eventType, event); err != nil {
		util.EventsPublishedTotal.WithLabelValues(eventType, "error").Inc()
		span.RecordError(err)
		return err
	}
	util.EventsPublishedTotal.WithLabelValues(eventType, "ok").Inc()
	return nil
}

// EventHandler handles incoming events
type EventHandler struct {
	onStockReservation func(context.Context, *models.StockReservationEvent) error
	onStockRelease     func(context.Context, *models.StockReleaseEvent) error
	logger             *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnStockReservation registers a handler for StockReservation events
func (eh *EventHandler) OnStockReservation(handler func(context.Context, *models.StockReservationEvent) error) {
	eh.onStockReservation = handler
}

// OnStockRelease registers a handler for StockRelease events
func (eh *EventHandler) OnStockRelease(handler func(context.Context, *models.StockReleaseEvent) error) {
	eh.onStockRelease = handler
}

// HandleMessage routes messages to appropriate handlers. Payloads that cannot
// be decoded are reported as permanent failures so they are not retried.
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	headers := fromKafkaHeaders(msg.Headers)
	ctx = util.ExtractTraceContext(ctx, headers)

	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to unmarshal base event: %w", err))
	}
	eventType := headers[HeaderEventType]
	if eventType == "" {
		eventType = baseEvent.EventType
	}

	eh.logger.Info("Handling event",
		zap.String("type", eventType),
		zap.String("id", baseEvent.EventID),
		zap.String("topic", msg.Topic),
		zap.Int64("offset", msg.Offset))

	switch eventType {
	case models.EventTypeStockReservation:
		if eh.onStockReservation != nil {
			var event models.StockReservationEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return backoff.Permanent(fmt.Errorf("failed to unmarshal StockReservation event: %w", err))
			}
			return eh.onStockReservation(ctx, &event)
		}

	case models.EventTypeStockRelease:
		if eh.onStockRelease != nil {
			var event models.StockReleaseEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return backoff.Permanent(fmt.Errorf("failed to unmarshal StockRelease event: %w", err))
			}
			return eh.onStockRelease(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", eventType))
	}

	return nil
}
