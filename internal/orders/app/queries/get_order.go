package queries

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/ports"
)

// ErrInvalidQuery is wrapped by query validation failures.
var ErrInvalidQuery = errors.New("invalid query")

// GetOrderQuery looks up one order by ID.
type GetOrderQuery struct {
	OrderID string
}

func (q GetOrderQuery) Validate() error {
	if strings.TrimSpace(q.OrderID) == "" {
		return fmt.Errorf("%w: order_id is required", ErrInvalidQuery)
	}
	return nil
}

// OrderDetails is the read model served for a single order.
type OrderDetails struct {
	Order             domain.Order `json:"order"`
	StatusDescription string       `json:"status_description"`
	User              *domain.User `json:"user,omitempty"`
}

type GetOrderQueryHandler struct {
	repo ports.OrderRepository
}

func NewGetOrderQueryHandler(repo ports.OrderRepository) *GetOrderQueryHandler {
	return &GetOrderQueryHandler{repo: repo}
}

// Handle returns ports.ErrNotFound for unknown orders. A missing owner yields a nil User.
func (h *GetOrderQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (*OrderDetails, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	resolved, err := h.repo.GetOrderWithUser(ctx, strings.TrimSpace(query.OrderID))
	if err != nil {
		return nil, err
	}

	return &OrderDetails{
		Order:             resolved.Order,
		StatusDescription: resolved.Order.Status.Description(),
		User:              resolved.User,
	}, nil
}
