package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, order domain.Order) error {
	query := `
		INSERT INTO orders (id, user_id, status, tracking_number, is_pre_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = now
	}

	_, err := r.pool.Exec(ctx, query,
		order.ID,
		order.UserID,
		order.Status,
		order.TrackingNumber,
		order.IsPreOrder,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

func (r *Repository) CreateUser(ctx context.Context, user domain.User) error {
	query := `
		INSERT INTO users (id, email, first_name, last_name)
		VALUES ($1, NULLIF($2, ''), $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email, first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name
	`

	_, err := r.pool.Exec(ctx, query, user.ID, user.Email, user.FirstName, user.LastName)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT id, user_id, status, tracking_number, is_pre_order, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var order domain.Order
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.TrackingNumber,
		&order.IsPreOrder,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	return &order, nil
}

func (r *Repository) GetOrderWithUser(ctx context.Context, id string) (*domain.OrderWithUser, error) {
	query := `
		SELECT o.id, o.user_id, o.status, o.tracking_number, o.is_pre_order, o.created_at, o.updated_at,
		       u.id, u.email, u.first_name, u.last_name
		FROM orders o
		LEFT JOIN users u ON u.id = o.user_id
		WHERE o.id = $1
	`

	var (
		order     domain.Order
		userID    *string
		email     *string
		firstName *string
		lastName  *string
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.TrackingNumber,
		&order.IsPreOrder,
		&order.CreatedAt,
		&order.UpdatedAt,
		&userID,
		&email,
		&firstName,
		&lastName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select order with user: %w", err)
	}

	result := &domain.OrderWithUser{Order: order}
	if userID != nil {
		result.User = &domain.User{
			ID:        *userID,
			Email:     deref(email),
			FirstName: deref(firstName),
			LastName:  deref(lastName),
		}
	}

	return result, nil
}

// UpdateStatus is a compare-and-set on the status column.
func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, trackingNumber *string) error {
	query := `
		UPDATE orders
		SET status = $1, tracking_number = COALESCE($2, tracking_number), updated_at = $3
		WHERE id = $4 AND status = $5
	`

	result, err := r.pool.Exec(ctx, query, to, trackingNumber, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return r.statusMismatch(ctx, id, from)
	}

	return nil
}

// statusMismatch explains a zero-row update: the order is gone or its status moved on.
func (r *Repository) statusMismatch(ctx context.Context, id string, expected domain.OrderStatus) error {
	var current domain.OrderStatus
	err := r.pool.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ports.ErrNotFound
		}
		return fmt.Errorf("read order status: %w", err)
	}
	return fmt.Errorf("%w: %s is %s, expected %s", ports.ErrStatusConflict, id, current, expected)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
