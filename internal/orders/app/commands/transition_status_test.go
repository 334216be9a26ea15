package commands_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/dejobratic/orderflow/internal/orders/adapters/memory"
	"github.com/dejobratic/orderflow/internal/orders/app/commands"
	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/ports"
)

func strPtr(s string) *string { return &s }

func TestTransitionStatus(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("commits status then publishes a status change event", func(t *testing.T) {
		repo := &mockRepository{
			getByIDFn: func(ctx context.Context, id string) (*domain.Order, error) {
				return &domain.Order{ID: id, UserID: "user_1", Status: domain.StatusProcessing}, nil
			},
		}
		events := &mockPublisher{}
		events.onPublish = func() { repo.calls = append(repo.calls, "publish") }
		handler := commands.NewTransitionStatusCommandHandler(repo, events, logger)

		order, err := handler.Handle(context.Background(), commands.TransitionStatusCommand{
			OrderID:        "ord_1",
			Status:         domain.StatusDispatched,
			TrackingNumber: strPtr("RM123"),
		})

		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if order.Status != domain.StatusDispatched {
			t.Errorf("expected status %s, got %s", domain.StatusDispatched, order.Status)
		}
		if order.Tracking() != "RM123" {
			t.Errorf("expected tracking RM123, got %q", order.Tracking())
		}

		if got := strings.Join(repo.calls, ","); got != "get,update,publish" {
			t.Errorf("expected get,update,publish ordering, got %s", got)
		}

		if len(events.events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events.events))
		}
		if events.events[0].topic != domain.TopicOrderStatusChanged {
			t.Errorf("expected topic %s, got %s", domain.TopicOrderStatusChanged, events.events[0].topic)
		}
		event, ok := events.events[0].payload.(domain.StatusChangeEvent)
		if !ok {
			t.Fatalf("expected StatusChangeEvent payload, got %T", events.events[0].payload)
		}
		if event.OrderID != "ord_1" || event.OldStatus != domain.StatusProcessing || event.NewStatus != domain.StatusDispatched {
			t.Errorf("unexpected event %+v", event)
		}
		if event.Tracking() != "RM123" {
			t.Errorf("expected event tracking RM123, got %q", event.Tracking())
		}
	})

	t.Run("keeps the stored tracking number when none is supplied", func(t *testing.T) {
		repo := &mockRepository{
			getByIDFn: func(ctx context.Context, id string) (*domain.Order, error) {
				return &domain.Order{ID: id, Status: domain.StatusDispatched, TrackingNumber: strPtr("RM999")}, nil
			},
		}
		events := &mockPublisher{}
		handler := commands.NewTransitionStatusCommandHandler(repo, events, logger)

		_, err := handler.Handle(context.Background(), commands.TransitionStatusCommand{OrderID: "ord_1", Status: domain.StatusTransit})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		event := events.events[0].payload.(domain.StatusChangeEvent)
		if event.Tracking() != "RM999" {
			t.Errorf("expected stored tracking RM999, got %q", event.Tracking())
		}
	})

	t.Run("returns not found without publishing", func(t *testing.T) {
		repo := &mockRepository{
			getByIDFn: func(ctx context.Context, id string) (*domain.Order, error) {
				return nil, ports.ErrNotFound
			},
		}
		events := &mockPublisher{}
		handler := commands.NewTransitionStatusCommandHandler(repo, events, logger)

		order, err := handler.Handle(context.Background(), commands.TransitionStatusCommand{OrderID: "missing", Status: domain.StatusProcessing})

		if !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if order != nil {
			t.Errorf("expected nil order, got %+v", order)
		}
		if len(events.events) != 0 {
			t.Errorf("expected no events, got %d", len(events.events))
		}
	})

	t.Run("rejects invalid transition without writing or publishing", func(t *testing.T) {
		repo := &mockRepository{
			getByIDFn: func(ctx context.Context, id string) (*domain.Order, error) {
				return &domain.Order{ID: id, Status: domain.StatusDelivered}, nil
			},
		}
		events := &mockPublisher{}
		handler := commands.NewTransitionStatusCommandHandler(repo, events, logger)

		_, err := handler.Handle(context.Background(), commands.TransitionStatusCommand{OrderID: "ord_1", Status: domain.StatusPending})

		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
		if strings.Contains(strings.Join(repo.calls, ","), "update") {
			t.Error("expected no status write")
		}
		if len(events.events) != 0 {
			t.Errorf("expected no events, got %d", len(events.events))
		}
	})

	t.Run("does not publish when the write fails", func(t *testing.T) {
		writeErr := errors.New("database connection failed")
		repo := &mockRepository{
			updateStatusFn: func(ctx context.Context, id string, from, to domain.OrderStatus, trackingNumber *string) error {
				return writeErr
			},
		}
		events := &mockPublisher{}
		handler := commands.NewTransitionStatusCommandHandler(repo, events, logger)

		_, err := handler.Handle(context.Background(), commands.TransitionStatusCommand{OrderID: "ord_1", Status: domain.StatusProcessing})

		if !errors.Is(err, writeErr) {
			t.Errorf("expected write error, got %v", err)
		}
		if len(events.events) != 0 {
			t.Errorf("expected no events, got %d", len(events.events))
		}
	})

	t.Run("succeeds when the bus refuses the event", func(t *testing.T) {
		var buf bytes.Buffer
		repo := &mockRepository{}
		events := &mockPublisher{
			publishFn: func(ctx context.Context, topic string, payload any) error {
				return errors.New("event bus closed")
			},
		}
		handler := commands.NewTransitionStatusCommandHandler(repo, events, slog.New(slog.NewJSONHandler(&buf, nil)))

		order, err := handler.Handle(context.Background(), commands.TransitionStatusCommand{OrderID: "ord_1", Status: domain.StatusProcessing})

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if order.Status != domain.StatusProcessing {
			t.Errorf("expected status %s, got %s", domain.StatusProcessing, order.Status)
		}
		if !strings.Contains(buf.String(), "event was not published") {
			t.Errorf("expected publish failure to be logged, got %s", buf.String())
		}
	})

	t.Run("validates the command", func(t *testing.T) {
		tests := []struct {
			name string
			cmd  commands.TransitionStatusCommand
			want error
		}{
			{"missing order id", commands.TransitionStatusCommand{Status: domain.StatusProcessing}, commands.ErrInvalidCommand},
			{"unknown status", commands.TransitionStatusCommand{OrderID: "ord_1", Status: "SHIPPED"}, domain.ErrInvalidStatus},
			{"blank tracking number", commands.TransitionStatusCommand{OrderID: "ord_1", Status: domain.StatusDispatched, TrackingNumber: strPtr(" ")}, commands.ErrInvalidCommand},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				repo := &mockRepository{}
				handler := commands.NewTransitionStatusCommandHandler(repo, &mockPublisher{}, logger)

				_, err := handler.Handle(context.Background(), tt.cmd)
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
				if len(repo.calls) != 0 {
					t.Errorf("expected repository to be untouched, got %v", repo.calls)
				}
			})
		}
	})
}

// readBarrierRepository holds every GetByID until all expected readers have read the same status.
type readBarrierRepository struct {
	*memory.Repository
	reads sync.WaitGroup
}

func (r *readBarrierRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := r.Repository.GetByID(ctx, id)
	r.reads.Done()
	r.reads.Wait()
	return order, err
}

func TestTransitionStatusConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRepository()
	if err := store.Create(ctx, domain.Order{ID: "ord_1", UserID: "user_1", Status: domain.StatusDispatched}); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	repo := &readBarrierRepository{Repository: store}
	repo.reads.Add(2)

	events := &mockPublisher{}
	handler := commands.NewTransitionStatusCommandHandler(repo, events, slog.New(slog.DiscardHandler))

	targets := []domain.OrderStatus{domain.StatusDelivered, domain.StatusExpired}
	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, status := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = handler.Handle(ctx, commands.TransitionStatusCommand{OrderID: "ord_1", Status: status})
		}()
	}
	wg.Wait()

	var winner domain.OrderStatus
	var rejected int
	for i, err := range errs {
		switch {
		case err == nil:
			winner = targets[i]
		case errors.Is(err, domain.ErrInvalidTransition) && errors.Is(err, ports.ErrStatusConflict):
			rejected++
		default:
			t.Errorf("unexpected error for %s: %v", targets[i], err)
		}
	}
	if winner == "" || rejected != 1 {
		t.Fatalf("expected one accepted and one rejected transition, got errs=%v", errs)
	}

	order, err := store.GetByID(ctx, "ord_1")
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if order.Status != winner {
		t.Errorf("expected final status %s, got %s", winner, order.Status)
	}

	if len(events.events) != 1 {
		t.Fatalf("expected exactly 1 status change event, got %d", len(events.events))
	}
	event := events.events[0].payload.(domain.StatusChangeEvent)
	if event.OldStatus != domain.StatusDispatched || event.NewStatus != winner {
		t.Errorf("unexpected event %+v", event)
	}
}

func TestTransitionStatusConflictIsRejected(t *testing.T) {
	repo := &mockRepository{
		getByIDFn: func(ctx context.Context, id string) (*domain.Order, error) {
			return &domain.Order{ID: id, Status: domain.StatusTransit}, nil
		},
		updateStatusFn: func(ctx context.Context, id string, from, to domain.OrderStatus, trackingNumber *string) error {
			if from != domain.StatusTransit {
				t.Errorf("expected the read status as the expected status, got %s", from)
			}
			return ports.ErrStatusConflict
		},
	}
	events := &mockPublisher{}
	handler := commands.NewTransitionStatusCommandHandler(repo, events, slog.New(slog.DiscardHandler))

	order, err := handler.Handle(context.Background(), commands.TransitionStatusCommand{OrderID: "ord_1", Status: domain.StatusDelivered})

	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if order != nil {
		t.Errorf("expected nil order, got %+v", order)
	}
	if len(events.events) != 0 {
		t.Errorf("expected no events, got %d", len(events.events))
	}
}
