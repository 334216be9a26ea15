package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dejobratic/orderflow/internal/orders/adapters/memory"
	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/ports"
)

func TestRepository(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) *memory.Repository {
		t.Helper()
		repo := memory.NewRepository()
		if err := repo.CreateUser(ctx, domain.User{ID: "user_1", Email: "a@b.com"}); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
		if err := repo.Create(ctx, domain.Order{ID: "ord_1", UserID: "user_1", Status: domain.StatusPending}); err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		return repo
	}

	t.Run("stamps timestamps on create", func(t *testing.T) {
		order, err := setup(t).GetByID(ctx, "ord_1")
		if err != nil {
			t.Fatalf("GetByID() failed: %v", err)
		}
		if order.CreatedAt.IsZero() || order.UpdatedAt.IsZero() {
			t.Error("expected timestamps to be set")
		}
	})

	t.Run("updates status and tracking number", func(t *testing.T) {
		repo := setup(t)
		before, _ := repo.GetByID(ctx, "ord_1")
		tracking := "RM123"

		if err := repo.UpdateStatus(ctx, "ord_1", domain.StatusPending, domain.StatusProcessing, &tracking); err != nil {
			t.Fatalf("UpdateStatus() failed: %v", err)
		}
		tracking = "mutated"

		after, _ := repo.GetByID(ctx, "ord_1")
		if after.Status != domain.StatusProcessing {
			t.Errorf("expected PROCESSING, got %s", after.Status)
		}
		if after.Tracking() != "RM123" {
			t.Errorf("expected stored tracking to be isolated from caller, got %q", after.Tracking())
		}
		if after.UpdatedAt.Before(before.UpdatedAt) {
			t.Error("expected updated_at to move forward")
		}
	})

	t.Run("nil tracking number keeps the stored value", func(t *testing.T) {
		repo := setup(t)
		tracking := "RM123"
		_ = repo.UpdateStatus(ctx, "ord_1", domain.StatusPending, domain.StatusProcessing, &tracking)
		_ = repo.UpdateStatus(ctx, "ord_1", domain.StatusProcessing, domain.StatusDispatched, nil)

		order, _ := repo.GetByID(ctx, "ord_1")
		if order.Tracking() != "RM123" {
			t.Errorf("expected RM123, got %q", order.Tracking())
		}
	})

	t.Run("joins the owning user", func(t *testing.T) {
		result, err := setup(t).GetOrderWithUser(ctx, "ord_1")
		if err != nil {
			t.Fatalf("GetOrderWithUser() failed: %v", err)
		}
		if result.User == nil || result.User.Email != "a@b.com" {
			t.Errorf("unexpected user %+v", result.User)
		}
	})

	t.Run("leaves user nil for dangling orders", func(t *testing.T) {
		repo := setup(t)
		_ = repo.Create(ctx, domain.Order{ID: "ord_2", UserID: "ghost", Status: domain.StatusPending})

		result, err := repo.GetOrderWithUser(ctx, "ord_2")
		if err != nil {
			t.Fatalf("GetOrderWithUser() failed: %v", err)
		}
		if result.User != nil {
			t.Errorf("expected nil user, got %+v", result.User)
		}
	})

	t.Run("rejects a write from a stale status", func(t *testing.T) {
		repo := setup(t)
		if err := repo.UpdateStatus(ctx, "ord_1", domain.StatusPending, domain.StatusProcessing, nil); err != nil {
			t.Fatalf("UpdateStatus() failed: %v", err)
		}

		err := repo.UpdateStatus(ctx, "ord_1", domain.StatusPending, domain.StatusFailed, nil)

		if !errors.Is(err, ports.ErrStatusConflict) {
			t.Errorf("expected ErrStatusConflict, got %v", err)
		}
		order, _ := repo.GetByID(ctx, "ord_1")
		if order.Status != domain.StatusProcessing {
			t.Errorf("expected PROCESSING to be kept, got %s", order.Status)
		}
	})

	t.Run("returns ErrNotFound for unknown or deleted orders", func(t *testing.T) {
		repo := setup(t)
		repo.DeleteOrder(ctx, "ord_1")

		if _, err := repo.GetByID(ctx, "ord_1"); !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("GetByID: expected ErrNotFound, got %v", err)
		}
		if _, err := repo.GetOrderWithUser(ctx, "ord_1"); !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("GetOrderWithUser: expected ErrNotFound, got %v", err)
		}
		if err := repo.UpdateStatus(ctx, "ord_1", domain.StatusPending, domain.StatusProcessing, nil); !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("UpdateStatus: expected ErrNotFound, got %v", err)
		}
	})
}
