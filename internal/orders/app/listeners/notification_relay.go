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

// NotificationRelay hands queued notification requests to the sender that renders and
// delivers them. Send failures are logged and counted, never retried.
type NotificationRelay struct {
	sender  ports.NotificationSender
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewNotificationRelay(sender ports.NotificationSender, logger *slog.Logger, metrics *metrics.Metrics) *NotificationRelay {
	return &NotificationRelay{
		sender:  sender,
		logger:  logger.With("handler", "notification_relay"),
		metrics: metrics,
	}
}

// Handle implements eventbus.Handler for domain.TopicNotificationEmail.
func (r *NotificationRelay) Handle(ctx context.Context, event eventbus.Event) error {
	request, ok := event.Payload.(domain.NotificationRequest)
	if !ok {
		return fmt.Errorf("unexpected payload %T on %s", event.Payload, event.Topic)
	}

	err := r.sender.Send(ctx, request)
	if r.metrics != nil {
		r.metrics.RecordNotificationDelivery(ctx, string(request.Kind), err == nil)
	}

	if err != nil {
		r.logger.ErrorContext(ctx, "notification delivery failed",
			"kind", request.Kind,
			"order_id", request.Context[domain.ContextOrderID],
			"error", err,
		)
		return nil
	}

	return nil
}
