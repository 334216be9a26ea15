package listeners

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dejobratic/orderflow/internal/eventbus"
	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/metrics"
	"github.com/dejobratic/orderflow/internal/orders/ports"
)

// CarrierSubmissionListener forwards paid orders to the shipping carrier.
// A failed submission is logged and counted only. The order keeps its status and
// nothing is retried; resubmission is an operator or scheduled job concern.
type CarrierSubmissionListener struct {
	carrier ports.CarrierClient
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewCarrierSubmissionListener(carrier ports.CarrierClient, logger *slog.Logger, metrics *metrics.Metrics) *CarrierSubmissionListener {
	return &CarrierSubmissionListener{
		carrier: carrier,
		logger:  logger.With("handler", "carrier_submission"),
		metrics: metrics,
	}
}

// Handle implements eventbus.Handler for domain.TopicOrderPaymentConfirmed.
func (l *CarrierSubmissionListener) Handle(ctx context.Context, event eventbus.Event) error {
	confirmed, ok := event.Payload.(domain.PaymentConfirmedEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T on %s", event.Payload, event.Topic)
	}

	err := l.carrier.SubmitOrder(ctx, confirmed.OrderID)
	if l.metrics != nil {
		l.metrics.RecordCarrierSubmission(ctx, err == nil)
	}

	if err != nil {
		l.logger.ErrorContext(ctx, "carrier submission failed",
			"order_id", confirmed.OrderID,
			"user_id", confirmed.UserID,
			"error", err,
		)
		return nil
	}

	l.logger.InfoContext(ctx, "order submitted to carrier", "order_id", confirmed.OrderID)
	return nil
}
