package app

import (
	"context"
	"log/slog"

	"github.com/dejobratic/orderflow/internal/orders/app/commands"
	"github.com/dejobratic/orderflow/internal/orders/app/queries"
	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/metrics"
	"github.com/dejobratic/orderflow/internal/orders/ports"
)

// Service is the order lifecycle manager used by the API. It owns status writes and
// payment confirmations and publishes the events the pipeline listeners react to.
type Service struct {
	idemStore               ports.IdempotencyStore
	transitionStatusHandler commands.TransitionStatusHandler
	confirmPaymentHandler   commands.ConfirmPaymentHandler
	getOrderHandler         *queries.GetOrderQueryHandler
}

// NewService wires required dependencies.
func NewService(
	repo ports.OrderRepository,
	events ports.EventPublisher,
	idem ports.IdempotencyStore,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *Service {
	transition := commands.NewTransitionStatusCommandHandler(repo, events, logger)
	confirm := commands.NewConfirmPaymentCommandHandler(events)

	return &Service{
		idemStore:               idem,
		transitionStatusHandler: commands.NewObservableTransitionStatusHandler(transition, logger, metrics),
		confirmPaymentHandler:   commands.NewObservableConfirmPaymentHandler(confirm, logger, metrics),
		getOrderHandler:         queries.NewGetOrderQueryHandler(repo),
	}
}

// TransitionStatusInput captures payload for changing an order's status.
type TransitionStatusInput struct {
	Status         string  `json:"status"`
	TrackingNumber *string `json:"tracking_number,omitempty"`
}

// TransitionStatus parses the requested status and applies it to the order.
func (s *Service) TransitionStatus(ctx context.Context, orderID string, input TransitionStatusInput) (*domain.Order, error) {
	status, err := domain.ParseOrderStatus(input.Status)
	if err != nil {
		return nil, err
	}

	return s.transitionStatusHandler.Handle(ctx, commands.TransitionStatusCommand{
		OrderID:        orderID,
		Status:         status,
		TrackingNumber: input.TrackingNumber,
	})
}

// ConfirmPaymentInput captures payload for a payment confirmation.
type ConfirmPaymentInput struct {
	UserID string `json:"user_id"`
}

// ConfirmPayment announces that orderID has been paid for.
func (s *Service) ConfirmPayment(ctx context.Context, orderID string, input ConfirmPaymentInput) (*domain.PaymentConfirmedEvent, error) {
	return s.confirmPaymentHandler.Handle(ctx, commands.ConfirmPaymentCommand{
		OrderID: orderID,
		UserID:  input.UserID,
	})
}

// GetOrder retrieves an order and its owner by ID.
func (s *Service) GetOrder(ctx context.Context, id string) (*queries.OrderDetails, error) {
	return s.getOrderHandler.Handle(ctx, queries.GetOrderQuery{OrderID: id})
}

// SaveIdempotentResponse writes response details for a key.
func (s *Service) SaveIdempotentResponse(ctx context.Context, key string, response ports.StoredResponse) error {
	return s.idemStore.Save(ctx, key, response)
}

// ReserveIdempotencyKey claims key for orderID before any side effect runs.
func (s *Service) ReserveIdempotencyKey(ctx context.Context, key, orderID string) (bool, error) {
	return s.idemStore.Reserve(ctx, key, orderID)
}

// ReleaseIdempotencyKey frees a reservation whose request failed.
func (s *Service) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return s.idemStore.Release(ctx, key)
}

// GetIdempotentResponse retrieves previously stored response data.
func (s *Service) GetIdempotentResponse(ctx context.Context, key string) (*ports.StoredResponse, error) {
	return s.idemStore.Get(ctx, key)
}
