package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"warehouse-service/internal/models"
	"warehouse-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing warehouse events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishScanRecorded publishes ScanRecorded event keyed by tag so that the
// events of one item stay ordered
func (ep *EventPublisher) PublishScanRecorded(ctx context.Context, event *models.ScanRecordedEvent) error {
	return ep.producer.PublishEvent(ctx, "item-"+event.RFIDTag, event)
}

// PublishAlertEvent publishes an alert lifecycle event keyed by product
func (ep *EventPublisher) PublishAlertEvent(ctx context.Context, event *models.AlertEvent) error {
	key := fmt.Sprintf("product-%d", event.ProductID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onScanRequested func(context.Context, *models.ScanRequestedEvent) error
	logger          *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.Named("events")}
}

// OnScanRequested registers a handler for ScanRequested events
func (eh *EventHandler) OnScanRequested(handler func(context.Context, *models.ScanRequestedEvent) error) {
	eh.onScanRequested = handler
}

// HandleMessage routes messages to appropriate handlers. Reader gateways may
// omit event_type; such messages are treated as scan requests.
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event", zap.String("type", baseEvent.EventType), zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeScanRequested, "":
		if eh.onScanRequested != nil {
			var event models.ScanRequestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ScanRequested event: %w", err)
			}
			return eh.onScanRequested(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
