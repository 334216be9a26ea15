package commands_test

import (
	"context"
	"sync"

	"github.com/dejobratic/orderflow/internal/orders/domain"
)

type mockRepository struct {
	getByIDFn      func(ctx context.Context, id string) (*domain.Order, error)
	updateStatusFn func(ctx context.Context, id string, from, to domain.OrderStatus, trackingNumber *string) error
	calls          []string
}

func (m *mockRepository) Create(ctx context.Context, order domain.Order) error {
	return nil
}

func (m *mockRepository) CreateUser(ctx context.Context, user domain.User) error {
	return nil
}

func (m *mockRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	m.calls = append(m.calls, "get")
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return &domain.Order{ID: id, UserID: "user_1", Status: domain.StatusPending}, nil
}

func (m *mockRepository) GetOrderWithUser(ctx context.Context, id string) (*domain.OrderWithUser, error) {
	return nil, nil
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, trackingNumber *string) error {
	m.calls = append(m.calls, "update")
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, from, to, trackingNumber)
	}
	return nil
}

type published struct {
	topic   string
	payload any
}

type mockPublisher struct {
	mu        sync.Mutex
	publishFn func(ctx context.Context, topic string, payload any) error
	events    []published
	onPublish func()
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, published{topic: topic, payload: payload})
	if m.onPublish != nil {
		m.onPublish()
	}
	if m.publishFn != nil {
		return m.publishFn(ctx, topic, payload)
	}
	return nil
}
