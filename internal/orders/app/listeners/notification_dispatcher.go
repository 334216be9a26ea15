package listeners

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dejobratic/orderflow/internal/eventbus"
	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/metrics"
	"github.com/dejobratic/orderflow/internal/orders/ports"
)

const (
	defaultFirstName = "Customer"

	notificationQueued  = "queued"
	notificationSkipped = "skipped"
	notificationError   = "error"
)

// NotificationDispatcher turns committed status changes into customer notification requests.
//
// Every failure is logged here and swallowed: a status change has already succeeded by
// the time this runs and must not appear to fail because a notification could not be built.
type NotificationDispatcher struct {
	orders  ports.OrderRepository
	events  ports.EventPublisher
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewNotificationDispatcher(
	orders ports.OrderRepository,
	events ports.EventPublisher,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *NotificationDispatcher {
	return &NotificationDispatcher{
		orders:  orders,
		events:  events,
		logger:  logger.With("handler", "notification_dispatcher"),
		metrics: metrics,
	}
}

// Handle implements eventbus.Handler for domain.TopicOrderStatusChanged.
func (d *NotificationDispatcher) Handle(ctx context.Context, event eventbus.Event) error {
	change, ok := event.Payload.(domain.StatusChangeEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T on %s", event.Payload, event.Topic)
	}

	d.Dispatch(ctx, change)
	return nil
}

// Dispatch publishes at most one NotificationRequest for change.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, change domain.StatusChangeEvent) {
	logger := d.logger.With(
		"order_id", change.OrderID,
		"old_status", change.OldStatus,
		"new_status", change.NewStatus,
	)

	defer func() {
		if rec := recover(); rec != nil {
			logger.ErrorContext(ctx, "status notification panicked", "error", fmt.Sprint(rec))
			d.record(ctx, "", notificationError)
		}
	}()

	kind, notify := change.NewStatus.NotificationKind()
	if !notify {
		logger.DebugContext(ctx, "status does not notify customers")
		d.record(ctx, "", notificationSkipped)
		return
	}

	resolved, err := d.orders.GetOrderWithUser(ctx, change.OrderID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			logger.WarnContext(ctx, "order not found for status notification")
			d.record(ctx, kind, notificationSkipped)
			return
		}
		logger.ErrorContext(ctx, "failed to load order for status notification", "error", err)
		d.record(ctx, kind, notificationError)
		return
	}

	user := resolved.User
	if user == nil {
		logger.WarnContext(ctx, "order owner not found for status notification", "user_id", resolved.Order.UserID)
		d.record(ctx, kind, notificationSkipped)
		return
	}
	if !user.HasEmail() {
		logger.WarnContext(ctx, "order owner has no email address", "user_id", user.ID)
		d.record(ctx, kind, notificationSkipped)
		return
	}

	request := domain.NotificationRequest{
		To:      user.Email,
		Kind:    kind,
		Context: buildContext(change, user),
	}

	if err := d.events.Publish(ctx, domain.TopicNotificationEmail, request); err != nil {
		logger.ErrorContext(ctx, "failed to queue status notification", "kind", kind, "error", err)
		d.record(ctx, kind, notificationError)
		return
	}

	logger.InfoContext(ctx, "status notification queued", "kind", kind)
	d.record(ctx, kind, notificationQueued)
}

func (d *NotificationDispatcher) record(ctx context.Context, kind domain.NotificationKind, result string) {
	if d.metrics != nil {
		d.metrics.RecordNotification(ctx, string(kind), result)
	}
}

func buildContext(change domain.StatusChangeEvent, user *domain.User) map[string]any {
	firstName := user.FirstName
	if firstName == "" {
		firstName = defaultFirstName
	}

	return map[string]any{
		domain.ContextFirstName:         firstName,
		domain.ContextLastName:          user.LastName,
		domain.ContextOrderID:           change.OrderID,
		domain.ContextTrackingReference: change.Tracking(),
		domain.ContextPreviousStatus:    string(change.OldStatus),
		domain.ContextNewStatus:         string(change.NewStatus),
		domain.ContextStatusDescription: change.NewStatus.Description(),
	}
}
