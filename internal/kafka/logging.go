package kafka

import (
	"context"
	"log/slog"

	"github.com/dejobratic/orderflow/internal/orders/domain"
)

// LoggingSender logs notification requests instead of producing them. Used when no brokers are configured.
type LoggingSender struct {
	logger *slog.Logger
}

func NewLoggingSender(logger *slog.Logger) *LoggingSender {
	return &LoggingSender{logger: logger.With("component", "logging_notification_sender")}
}

func (s *LoggingSender) Send(ctx context.Context, request domain.NotificationRequest) error {
	s.logger.InfoContext(ctx, "notification::"+string(request.Kind),
		"to", request.To,
		"order_id", request.Context[domain.ContextOrderID],
	)
	return nil
}

func (s *LoggingSender) Close() error {
	return nil
}
