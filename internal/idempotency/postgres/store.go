package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dejobratic/orderflow/internal/orders/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store keeps payment confirmation responses in the idempotency_keys table.
type Store struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// NewStore returns a Store whose entries expire after ttl. A zero ttl keeps entries forever.
func NewStore(pool *pgxpool.Pool, ttl time.Duration) *Store {
	return &Store{pool: pool, ttl: ttl}
}

func (s *Store) Get(ctx context.Context, key string) (*ports.StoredResponse, error) {
	query := `
		SELECT status_code, body, order_id, created_at
		FROM idempotency_keys
		WHERE key = $1 AND created_at > $2
	`

	var resp ports.StoredResponse
	err := s.pool.QueryRow(ctx, query, key, s.cutoff()).Scan(
		&resp.StatusCode,
		&resp.Body,
		&resp.OrderID,
		&resp.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select idempotency key: %w", err)
	}

	return &resp, nil
}

// Reserve inserts a pending row (status_code 0). An expired row is taken over; a live one
// leaves the key with its current owner.
func (s *Store) Reserve(ctx context.Context, key, orderID string) (bool, error) {
	query := `
		INSERT INTO idempotency_keys (key, status_code, body, order_id)
		VALUES ($1, 0, ''::bytea, $2)
		ON CONFLICT (key) DO UPDATE
		SET status_code = 0, body = ''::bytea, order_id = EXCLUDED.order_id, created_at = NOW()
		WHERE idempotency_keys.created_at <= $3
	`

	tag, err := s.pool.Exec(ctx, query, key, orderID, s.cutoff())
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Save inserts the response, replacing the row only when it is pending or expired.
func (s *Store) Save(ctx context.Context, key string, response ports.StoredResponse) error {
	query := `
		INSERT INTO idempotency_keys (key, status_code, body, order_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET status_code = EXCLUDED.status_code, body = EXCLUDED.body,
		    order_id = EXCLUDED.order_id, created_at = NOW()
		WHERE idempotency_keys.status_code = 0 OR idempotency_keys.created_at <= $5
	`

	_, err := s.pool.Exec(ctx, query, key, response.StatusCode, response.Body, response.OrderID, s.cutoff())
	if err != nil {
		return fmt.Errorf("insert idempotency key: %w", err)
	}

	return nil
}

// Release deletes the row for key while it is still pending.
func (s *Store) Release(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1 AND status_code = 0`, key)
	if err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// Purge deletes expired rows and reports how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at <= $1`, s.cutoff())
	if err != nil {
		return 0, fmt.Errorf("purge idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) cutoff() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return time.Now().UTC().Add(-s.ttl)
}
