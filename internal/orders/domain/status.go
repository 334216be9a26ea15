package domain

import (
	"errors"
	"fmt"
	"strings"
)

// OrderStatus captures where an order is in its fulfilment and delivery lifecycle.
type OrderStatus string

const (
	StatusPending     OrderStatus = "PENDING"
	StatusProcessing  OrderStatus = "PROCESSING"
	StatusDispatched  OrderStatus = "DISPATCHED"
	StatusTransit     OrderStatus = "TRANSIT"
	StatusDelivered   OrderStatus = "DELIVERED"
	StatusUndelivered OrderStatus = "UNDELIVERED"
	StatusException   OrderStatus = "EXCEPTION"
	StatusExpired     OrderStatus = "EXPIRED"
	StatusFailed      OrderStatus = "FAILED"
	StatusNotFound    OrderStatus = "NOTFOUND"
)

var (
	// ErrInvalidStatus is returned when a value is not a member of the OrderStatus set.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrInvalidTransition is returned when the lifecycle does not allow moving between two statuses.
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// Statuses lists every valid status in lifecycle order.
func Statuses() []OrderStatus {
	return []OrderStatus{
		StatusPending,
		StatusProcessing,
		StatusDispatched,
		StatusTransit,
		StatusDelivered,
		StatusUndelivered,
		StatusException,
		StatusExpired,
		StatusFailed,
		StatusNotFound,
	}
}

// ParseOrderStatus accepts a status name in any letter case.
func ParseOrderStatus(value string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(value)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, value)
	}
	return status, nil
}

// Valid reports whether s belongs to the closed status set.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusDispatched, StatusTransit, StatusDelivered,
		StatusUndelivered, StatusException, StatusExpired, StatusFailed, StatusNotFound:
		return true
	default:
		return false
	}
}

func (s OrderStatus) String() string {
	return string(s)
}

// Description returns the customer facing phrase for the status.
func (s OrderStatus) Description() string {
	switch s {
	case StatusPending:
		return "Your order is awaiting confirmation"
	case StatusProcessing:
		return "Your order is being prepared"
	case StatusDispatched:
		return "Your order has been dispatched"
	case StatusTransit:
		return "Your order is on its way"
	case StatusDelivered:
		return "Your order has been delivered"
	case StatusUndelivered:
		return "Delivery was attempted but unsuccessful"
	case StatusException:
		return "There is an issue with your delivery"
	case StatusExpired:
		return "Tracking information has expired"
	case StatusFailed:
		return "Your order could not be completed"
	case StatusNotFound:
		return "Tracking information is not yet available"
	default:
		return "Status update"
	}
}

// NotificationKind returns the customer notification sent when an order enters s.
// The boolean is false for statuses that do not notify anyone.
func (s OrderStatus) NotificationKind() (NotificationKind, bool) {
	switch s {
	case StatusDispatched:
		return NotificationOrderDispatched, true
	case StatusTransit:
		return NotificationOrderInTransit, true
	case StatusDelivered:
		return NotificationOrderDelivered, true
	case StatusUndelivered, StatusException:
		return NotificationOrderException, true
	case StatusPending, StatusProcessing, StatusExpired, StatusFailed, StatusNotFound:
		return "", false
	default:
		return "", false
	}
}

// IsTerminal indicates that no further transitions are allowed out of s.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusDelivered, StatusExpired, StatusFailed:
		return true
	default:
		return false
	}
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	if from == to || !to.Valid() {
		return false
	}

	switch from {
	case StatusPending:
		return oneOf(to, StatusProcessing, StatusFailed, StatusExpired)
	case StatusProcessing:
		return oneOf(to, StatusDispatched, StatusFailed, StatusExpired)
	case StatusDispatched:
		return oneOf(to, StatusTransit, StatusDelivered, StatusUndelivered, StatusException, StatusNotFound, StatusExpired)
	case StatusTransit:
		return oneOf(to, StatusDelivered, StatusUndelivered, StatusException, StatusNotFound, StatusExpired)
	case StatusUndelivered:
		return oneOf(to, StatusTransit, StatusDelivered, StatusException, StatusExpired)
	case StatusException:
		return oneOf(to, StatusTransit, StatusDelivered, StatusUndelivered, StatusExpired, StatusFailed)
	case StatusNotFound:
		return oneOf(to, StatusDispatched, StatusTransit, StatusDelivered, StatusException, StatusExpired)
	case StatusDelivered, StatusExpired, StatusFailed:
		return false
	default:
		return false
	}
}

// ValidateTransition wraps ErrInvalidTransition with both statuses when CanTransition is false.
func ValidateTransition(from, to OrderStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, string(to))
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

func oneOf(status OrderStatus, allowed ...OrderStatus) bool {
	for _, candidate := range allowed {
		if status == candidate {
			return true
		}
	}
	return false
}

// NotificationKind categorises the customer notifications produced by status changes.
type NotificationKind string

const (
	NotificationOrderDispatched NotificationKind = "ORDER_DISPATCHED"
	NotificationOrderInTransit  NotificationKind = "ORDER_IN_TRANSIT"
	NotificationOrderDelivered  NotificationKind = "ORDER_DELIVERED"
	NotificationOrderException  NotificationKind = "ORDER_EXCEPTION"
)
