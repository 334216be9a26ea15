package eventbus

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	published       metric.Int64Counter
	handlerDuration metric.Float64Histogram
	handlerFailures metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.published, err = meter.Int64Counter(
		"eventbus_published_total",
		metric.WithDescription("Events handed to the event bus"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create eventbus_published_total counter: %w", err)
	}

	m.handlerDuration, err = meter.Float64Histogram(
		"eventbus_handler_duration_seconds",
		metric.WithDescription("Duration of event handler invocations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create eventbus_handler_duration histogram: %w", err)
	}

	m.handlerFailures, err = meter.Int64Counter(
		"eventbus_handler_failures_total",
		metric.WithDescription("Event handler invocations that returned an error or panicked"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create eventbus_handler_failures_total counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordDelivery(ctx context.Context, topic, handler string, durationSeconds float64, success bool) {
	status := "success"
	if !success {
		status = "error"
		m.handlerFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("topic", topic),
			attribute.String("handler", handler),
		))
	}
	m.handlerDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("topic", topic),
		attribute.String("handler", handler),
		attribute.String("status", status),
	))
}

func (m *Metrics) RecordPublish(ctx context.Context, topic string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.published.Add(ctx, 1, metric.WithAttributes(
		attribute.String("topic", topic),
		attribute.String("status", status),
	))
}
