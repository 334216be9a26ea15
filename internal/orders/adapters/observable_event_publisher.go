package adapters

import (
	"context"

	"github.com/dejobratic/orderflow/internal/eventbus"
	"github.com/dejobratic/orderflow/internal/orders/ports"
	"github.com/dejobratic/orderflow/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// ObservableEventPublisher traces and counts every Publish call made by the application layer.
type ObservableEventPublisher struct {
	publisher ports.EventPublisher
	metrics   *eventbus.Metrics
}

func NewObservableEventPublisher(publisher ports.EventPublisher, metrics *eventbus.Metrics) *ObservableEventPublisher {
	return &ObservableEventPublisher{
		publisher: publisher,
		metrics:   metrics,
	}
}

func (e *ObservableEventPublisher) Publish(ctx context.Context, topic string, payload any) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.Publish "+topic)
	defer span.End()

	telemetry.AddSpanAttributes(span, attribute.String("topic", topic))

	err := e.publisher.Publish(ctx, topic, payload)
	e.metrics.RecordPublish(ctx, topic, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
