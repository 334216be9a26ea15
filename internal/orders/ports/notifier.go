package ports

import (
	"context"

	"github.com/dejobratic/orderflow/internal/orders/domain"
)

// NotificationSender renders and delivers customer notifications.
type NotificationSender interface {
	Send(ctx context.Context, request domain.NotificationRequest) error
}
