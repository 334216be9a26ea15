package commands

import (
	"context"
	"log/slog"

	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/metrics"
	"github.com/dejobratic/orderflow/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableConfirmPaymentHandler struct {
	handler ConfirmPaymentHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableConfirmPaymentHandler(handler ConfirmPaymentHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableConfirmPaymentHandler {
	return &ObservableConfirmPaymentHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableConfirmPaymentHandler) Handle(ctx context.Context, cmd ConfirmPaymentCommand) (*domain.PaymentConfirmedEvent, error) {
	ctx, span := telemetry.StartSpan(ctx, "ConfirmPaymentCommand.Handle")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", cmd.OrderID),
		attribute.String("user.id", cmd.UserID),
	)

	event, err := o.handler.Handle(ctx, cmd)
	o.metrics.RecordPaymentConfirmed(ctx, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		o.logger.ErrorContext(ctx, "failed to confirm payment",
			"order_id", cmd.OrderID,
			"user_id", cmd.UserID,
			"error", err,
		)
		return nil, err
	}

	o.logger.InfoContext(ctx, "payment confirmed", "order_id", event.OrderID, "user_id", event.UserID)
	telemetry.SetSpanSuccess(span)

	return event, nil
}
