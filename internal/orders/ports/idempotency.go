package ports

import (
	"context"
	"time"
)

// StoredResponse contains the response data to replay for a reused key. A zero StatusCode
// marks a reservation whose request has not finished yet.
type StoredResponse struct {
	StatusCode int
	Body       []byte
	OrderID    string
	CreatedAt  time.Time
}

// Pending reports whether the entry is a reservation without a response.
func (r StoredResponse) Pending() bool {
	return r.StatusCode == 0
}

// IdempotencyStore lets payment confirmations be retried by the caller without
// submitting the order to the carrier twice. Get returns nil for unknown or
// expired keys. Reserve atomically claims a free key with a pending entry and
// reports false when a live entry already exists. Save completes a pending
// entry; a completed entry is never replaced. Release drops a pending entry so
// the key can be retried.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*StoredResponse, error)
	Reserve(ctx context.Context, key, orderID string) (bool, error)
	Save(ctx context.Context, key string, response StoredResponse) error
	Release(ctx context.Context, key string) error
}
