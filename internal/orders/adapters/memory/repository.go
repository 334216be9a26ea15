package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/ports"
)

// Repository provides an in-memory store useful for local development and tests.
type Repository struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
	users  map[string]domain.User
}

// NewRepository constructs a new in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		orders: make(map[string]domain.Order),
		users:  make(map[string]domain.User),
	}
}

// Create stores a new order instance. Owners are not checked so dangling orders can be modelled.
func (r *Repository) Create(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = now
	}
	order.TrackingNumber = cloneString(order.TrackingNumber)
	r.orders[order.ID] = order
	return nil
}

// CreateUser stores or replaces a user.
func (r *Repository) CreateUser(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

// DeleteOrder removes an order; used to simulate deletions racing with notifications.
func (r *Repository) DeleteOrder(_ context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.orders, id)
}

// GetByID fetches a single order by identifier.
func (r *Repository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copy := order
	copy.TrackingNumber = cloneString(order.TrackingNumber)
	return &copy, nil
}

// GetOrderWithUser fetches an order with its owner, leaving User nil when the owner is gone.
func (r *Repository) GetOrderWithUser(ctx context.Context, id string) (*domain.OrderWithUser, error) {
	order, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := &domain.OrderWithUser{Order: *order}
	if user, ok := r.users[order.UserID]; ok {
		result.User = &user
	}
	return result, nil
}

// UpdateStatus sets the status, tracking number when provided, and updatedAt timestamp when the
// stored status still equals from.
func (r *Repository) UpdateStatus(_ context.Context, id string, from, to domain.OrderStatus, trackingNumber *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return ports.ErrNotFound
	}
	if order.Status != from {
		return fmt.Errorf("%w: %s is %s, expected %s", ports.ErrStatusConflict, id, order.Status, from)
	}

	order.Status = to
	if trackingNumber != nil {
		order.TrackingNumber = cloneString(trackingNumber)
	}
	order.UpdatedAt = time.Now().UTC()
	r.orders[id] = order
	return nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
