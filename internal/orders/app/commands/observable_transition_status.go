package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/metrics"
	"github.com/dejobratic/orderflow/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableTransitionStatusHandler struct {
	handler TransitionStatusHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableTransitionStatusHandler(handler TransitionStatusHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableTransitionStatusHandler {
	return &ObservableTransitionStatusHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableTransitionStatusHandler) Handle(ctx context.Context, cmd TransitionStatusCommand) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "TransitionStatusCommand.Handle")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", cmd.OrderID),
		attribute.String("order.new_status", string(cmd.Status)),
	)

	start := time.Now()
	var success bool
	defer func() {
		o.metrics.RecordStatusTransitionDuration(ctx, time.Since(start).Seconds())
		o.metrics.RecordStatusTransition(ctx, string(cmd.Status), success)
	}()

	order, err := o.handler.Handle(ctx, cmd)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		o.logger.WarnContext(ctx, "order status transition rejected",
			"order_id", cmd.OrderID,
			"new_status", cmd.Status,
			"error", err,
		)
		return nil, err
	}

	o.logger.InfoContext(ctx, "order status changed",
		"order_id", order.ID,
		"new_status", order.Status,
		"tracking_number", order.Tracking(),
	)

	success = true
	telemetry.SetSpanSuccess(span)

	return order, nil
}
