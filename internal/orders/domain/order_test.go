package domain_test

import (
	"testing"
	"time"

	"github.com/dejobratic/orderflow/internal/orders/domain"
)

func TestOrderValidate(t *testing.T) {
	tests := []struct {
		name    string
		order   domain.Order
		wantErr bool
	}{
		{
			name: "valid order",
			order: domain.Order{
				ID:        "ord_1",
				UserID:    "user_1",
				Status:    domain.StatusPending,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			},
			wantErr: false,
		},
		{
			name:    "missing id",
			order:   domain.Order{UserID: "user_1", Status: domain.StatusPending},
			wantErr: true,
		},
		{
			name:    "whitespace only user id",
			order:   domain.Order{ID: "ord_1", UserID: "   ", Status: domain.StatusPending},
			wantErr: true,
		},
		{
			name:    "unknown status",
			order:   domain.Order{ID: "ord_1", UserID: "user_1", Status: "shipped"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Order.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOrderIsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status domain.OrderStatus
		want   bool
	}{
		{"delivered is terminal", domain.StatusDelivered, true},
		{"failed is terminal", domain.StatusFailed, true},
		{"expired is terminal", domain.StatusExpired, true},
		{"pending is not terminal", domain.StatusPending, false},
		{"transit is not terminal", domain.StatusTransit, false},
		{"exception is not terminal", domain.StatusException, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := domain.Order{Status: tt.status}
			if got := order.IsTerminal(); got != tt.want {
				t.Errorf("Order.IsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrderTracking(t *testing.T) {
	t.Run("returns empty string without tracking number", func(t *testing.T) {
		if got := (domain.Order{}).Tracking(); got != "" {
			t.Errorf("expected empty tracking, got %q", got)
		}
	})

	t.Run("returns tracking number when set", func(t *testing.T) {
		tracking := "RM123"
		if got := (domain.Order{TrackingNumber: &tracking}).Tracking(); got != "RM123" {
			t.Errorf("expected RM123, got %q", got)
		}
	})
}

func TestUserHasEmail(t *testing.T) {
	var missing *domain.User
	if missing.HasEmail() {
		t.Error("expected nil user to have no email")
	}
	if (&domain.User{Email: "  "}).HasEmail() {
		t.Error("expected blank email to be treated as missing")
	}
	if !(&domain.User{Email: "a@b.com"}).HasEmail() {
		t.Error("expected email to be present")
	}
}
