package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/ports"
)

// ErrInvalidCommand is wrapped by command validation failures.
var ErrInvalidCommand = errors.New("invalid command")

// TransitionStatusCommand moves an order to a new status, optionally recording a tracking number.
type TransitionStatusCommand struct {
	OrderID        string
	Status         domain.OrderStatus
	TrackingNumber *string
}

func (c TransitionStatusCommand) Validate() error {
	if strings.TrimSpace(c.OrderID) == "" {
		return fmt.Errorf("%w: order_id is required", ErrInvalidCommand)
	}
	if !c.Status.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidStatus, string(c.Status))
	}
	if c.TrackingNumber != nil && strings.TrimSpace(*c.TrackingNumber) == "" {
		return fmt.Errorf("%w: tracking_number must not be blank", ErrInvalidCommand)
	}
	return nil
}

type TransitionStatusHandler interface {
	Handle(ctx context.Context, cmd TransitionStatusCommand) (*domain.Order, error)
}

// TransitionStatusCommandHandler owns order status writes. A StatusChangeEvent is
// published only after the repository has committed the new status.
type TransitionStatusCommandHandler struct {
	repo   ports.OrderRepository
	events ports.EventPublisher
	logger *slog.Logger
}

func NewTransitionStatusCommandHandler(
	repo ports.OrderRepository,
	events ports.EventPublisher,
	logger *slog.Logger,
) *TransitionStatusCommandHandler {
	return &TransitionStatusCommandHandler{
		repo:   repo,
		events: events,
		logger: logger,
	}
}

func (h *TransitionStatusCommandHandler) Handle(ctx context.Context, cmd TransitionStatusCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	order, err := h.repo.GetByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	if err := domain.ValidateTransition(order.Status, cmd.Status); err != nil {
		return nil, err
	}

	if err := h.repo.UpdateStatus(ctx, order.ID, order.Status, cmd.Status, cmd.TrackingNumber); err != nil {
		if errors.Is(err, ports.ErrStatusConflict) {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidTransition, err)
		}
		return nil, err
	}

	event := domain.StatusChangeEvent{
		OrderID:        order.ID,
		OldStatus:      order.Status,
		NewStatus:      cmd.Status,
		TrackingNumber: order.TrackingNumber,
	}
	if cmd.TrackingNumber != nil {
		event.TrackingNumber = cmd.TrackingNumber
	}

	order.Status = cmd.Status
	order.TrackingNumber = event.TrackingNumber

	// The status is committed at this point; a refused publish only costs the side effects.
	if err := h.events.Publish(ctx, domain.TopicOrderStatusChanged, event); err != nil {
		h.logger.ErrorContext(ctx, "status committed but event was not published",
			"order_id", order.ID,
			"topic", domain.TopicOrderStatusChanged,
			"new_status", cmd.Status,
			"error", err,
		)
	}

	return order, nil
}
