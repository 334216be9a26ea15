package domain

import (
	"errors"
	"strings"
	"time"
)

// Order is the persisted purchase record. The lifecycle code only reads it and
// asks the repository to change its status.
type Order struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id"`
	Status         OrderStatus `json:"status"`
	TrackingNumber *string     `json:"tracking_number,omitempty"`
	IsPreOrder     bool        `json:"is_pre_order"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// User is the customer that owns orders.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// OrderWithUser is an order joined with its owner. User is nil when the owner row is missing.
type OrderWithUser struct {
	Order Order `json:"order"`
	User  *User `json:"user,omitempty"`
}

// Validate ensures the order adheres to business constraints.
func (o Order) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return errors.New("id is required")
	}
	if strings.TrimSpace(o.UserID) == "" {
		return errors.New("user_id is required")
	}
	if !o.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// IsTerminal indicates whether the order is in a terminal state.
func (o Order) IsTerminal() bool {
	return o.Status.IsTerminal()
}

// Tracking returns the tracking number or an empty string.
func (o Order) Tracking() string {
	if o.TrackingNumber == nil {
		return ""
	}
	return *o.TrackingNumber
}

// HasEmail reports whether the user can receive email notifications.
func (u *User) HasEmail() bool {
	return u != nil && strings.TrimSpace(u.Email) != ""
}
