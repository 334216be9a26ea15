package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	statusTransitionsTotal    metric.Int64Counter
	statusTransitionDuration  metric.Float64Histogram
	paymentConfirmationsTotal metric.Int64Counter
	notificationsTotal        metric.Int64Counter
	carrierSubmissionsTotal   metric.Int64Counter
	notificationDeliveries    metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.statusTransitionsTotal, err = meter.Int64Counter(
		"order_status_transitions_total",
		metric.WithDescription("Total number of order status transition attempts"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_status_transitions_total counter: %w", err)
	}

	m.statusTransitionDuration, err = meter.Float64Histogram(
		"order_status_transition_duration_seconds",
		metric.WithDescription("Duration of order status transitions"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_status_transition_duration histogram: %w", err)
	}

	m.paymentConfirmationsTotal, err = meter.Int64Counter(
		"order_payment_confirmations_total",
		metric.WithDescription("Total number of payment confirmations received"),
		metric.WithUnit("{confirmation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_payment_confirmations_total counter: %w", err)
	}

	m.notificationsTotal, err = meter.Int64Counter(
		"order_notifications_total",
		metric.WithDescription("Status change notifications by outcome"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_notifications_total counter: %w", err)
	}

	m.carrierSubmissionsTotal, err = meter.Int64Counter(
		"carrier_submissions_total",
		metric.WithDescription("Orders submitted to the shipping carrier"),
		metric.WithUnit("{submission}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create carrier_submissions_total counter: %w", err)
	}

	m.notificationDeliveries, err = meter.Int64Counter(
		"notification_deliveries_total",
		metric.WithDescription("Notification requests handed to the sender, by outcome"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create notification_deliveries_total counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordStatusTransition(ctx context.Context, to string, success bool) {
	m.statusTransitionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("to_status", to),
		attribute.String("status", outcome(success)),
	))
}

func (m *Metrics) RecordStatusTransitionDuration(ctx context.Context, durationSeconds float64) {
	m.statusTransitionDuration.Record(ctx, durationSeconds)
}

func (m *Metrics) RecordPaymentConfirmed(ctx context.Context, success bool) {
	m.paymentConfirmationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", outcome(success)),
	))
}

// RecordNotification counts dispatcher outcomes. result is "queued", "skipped" or "error".
func (m *Metrics) RecordNotification(ctx context.Context, kind, result string) {
	m.notificationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("result", result),
	))
}

func (m *Metrics) RecordNotificationDelivery(ctx context.Context, kind string, success bool) {
	m.notificationDeliveries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", outcome(success)),
	))
}

func (m *Metrics) RecordCarrierSubmission(ctx context.Context, success bool) {
	m.carrierSubmissionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", outcome(success)),
	))
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
