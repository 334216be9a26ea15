package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/dejobratic/orderflow/internal/database"
	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/ports"
	"github.com/dejobratic/orderflow/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// ObservableRepository adds spans and query metrics around an OrderRepository.
type ObservableRepository struct {
	repo    ports.OrderRepository
	metrics *database.Metrics
}

func NewObservableRepository(repo ports.OrderRepository, metrics *database.Metrics) *ObservableRepository {
	return &ObservableRepository{
		repo:    repo,
		metrics: metrics,
	}
}

func (r *ObservableRepository) Create(ctx context.Context, order domain.Order) error {
	return r.observe(ctx, "OrderRepository.Create", "create_order", func(ctx context.Context) error {
		return r.repo.Create(ctx, order)
	}, attribute.String("order.id", order.ID), attribute.String("user.id", order.UserID))
}

func (r *ObservableRepository) CreateUser(ctx context.Context, user domain.User) error {
	return r.observe(ctx, "OrderRepository.CreateUser", "upsert_user", func(ctx context.Context) error {
		return r.repo.CreateUser(ctx, user)
	}, attribute.String("user.id", user.ID))
}

func (r *ObservableRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var order *domain.Order
	err := r.observe(ctx, "OrderRepository.GetByID", "get_order_by_id", func(ctx context.Context) error {
		var err error
		order, err = r.repo.GetByID(ctx, id)
		return err
	}, attribute.String("order.id", id))
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *ObservableRepository) GetOrderWithUser(ctx context.Context, id string) (*domain.OrderWithUser, error) {
	var result *domain.OrderWithUser
	err := r.observe(ctx, "OrderRepository.GetOrderWithUser", "get_order_with_user", func(ctx context.Context) error {
		var err error
		result, err = r.repo.GetOrderWithUser(ctx, id)
		return err
	}, attribute.String("order.id", id))
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *ObservableRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, trackingNumber *string) error {
	return r.observe(ctx, "OrderRepository.UpdateStatus", "update_order_status", func(ctx context.Context) error {
		return r.repo.UpdateStatus(ctx, id, from, to, trackingNumber)
	},
		attribute.String("order.id", id),
		attribute.String("order.old_status", string(from)),
		attribute.String("order.new_status", string(to)),
	)
}

func (r *ObservableRepository) observe(ctx context.Context, spanName, operation string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer span.End()

	telemetry.AddSpanAttributes(span, append(attrs, attribute.String("operation", operation))...)

	start := time.Now()
	err := fn(ctx)
	r.metrics.RecordQuery(ctx, operation, time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		if !errors.Is(err, ports.ErrNotFound) && !errors.Is(err, ports.ErrStatusConflict) {
			r.metrics.RecordQueryError(ctx, operation)
		}
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
