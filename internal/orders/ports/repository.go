package ports

import (
	"context"
	"errors"

	"github.com/dejobratic/orderflow/internal/orders/domain"
)

// OrderRepository exposes persistence operations required by the application layer.
type OrderRepository interface {
	Create(ctx context.Context, order domain.Order) error
	CreateUser(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// GetOrderWithUser loads an order joined with its owner. The returned User is nil
	// when the owner no longer exists.
	GetOrderWithUser(ctx context.Context, id string) (*domain.OrderWithUser, error)
	// UpdateStatus moves the order from status from to status to, failing with ErrStatusConflict
	// when the stored status is no longer from. A nil trackingNumber leaves the stored value unchanged.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, trackingNumber *string) error
}

var (
	// ErrNotFound is returned when the requested order does not exist.
	ErrNotFound = errors.New("order not found")

	// ErrStatusConflict is returned when another write changed the status first.
	ErrStatusConflict = errors.New("order status changed concurrently")
)
