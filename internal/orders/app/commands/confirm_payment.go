package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/ports"
)

// ErrNotPublished is returned when the event bus refuses an event.
var ErrNotPublished = errors.New("event not published")

type ConfirmPaymentCommand struct {
	OrderID string
	UserID  string
}

func (c ConfirmPaymentCommand) Validate() error {
	if strings.TrimSpace(c.OrderID) == "" {
		return fmt.Errorf("%w: order_id is required", ErrInvalidCommand)
	}
	if strings.TrimSpace(c.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidCommand)
	}
	return nil
}

type ConfirmPaymentHandler interface {
	Handle(ctx context.Context, cmd ConfirmPaymentCommand) (*domain.PaymentConfirmedEvent, error)
}

// ConfirmPaymentCommandHandler announces a confirmed payment. It does not read or change
// the order; shipping reacts to the event.
type ConfirmPaymentCommandHandler struct {
	events ports.EventPublisher
}

func NewConfirmPaymentCommandHandler(events ports.EventPublisher) *ConfirmPaymentCommandHandler {
	return &ConfirmPaymentCommandHandler{events: events}
}

func (h *ConfirmPaymentCommandHandler) Handle(ctx context.Context, cmd ConfirmPaymentCommand) (*domain.PaymentConfirmedEvent, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	event := domain.PaymentConfirmedEvent{
		OrderID: cmd.OrderID,
		UserID:  cmd.UserID,
	}

	if err := h.events.Publish(ctx, domain.TopicOrderPaymentConfirmed, event); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotPublished, err)
	}

	return &event, nil
}
