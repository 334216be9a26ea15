package listeners_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dejobratic/orderflow/internal/orders/adapters/memory"
	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/metrics"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type published struct {
	topic   string
	payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	events []published
}

func (f *fakePublisher) Publish(_ context.Context, topic string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, published{topic: topic, payload: payload})
	return nil
}

func (f *fakePublisher) requests(t *testing.T) []domain.NotificationRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.NotificationRequest
	for _, e := range f.events {
		if e.topic != domain.TopicNotificationEmail {
			t.Errorf("unexpected topic %s", e.topic)
			continue
		}
		out = append(out, e.payload.(domain.NotificationRequest))
	}
	return out
}

type fakeCarrier struct {
	mu        sync.Mutex
	err       error
	submitted []string
}

func (f *fakeCarrier) SubmitOrder(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, orderID)
	return f.err
}

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []domain.NotificationRequest
}

func (f *fakeSender) Send(_ context.Context, request domain.NotificationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, request)
	return f.err
}

// failingRepository fails every read with a non-NotFound error.
type failingRepository struct {
	*memory.Repository
}

func (failingRepository) GetOrderWithUser(context.Context, string) (*domain.OrderWithUser, error) {
	return nil, errors.New("connection reset")
}

func strPtr(s string) *string { return &s }

func seed(t *testing.T, users []domain.User, orders []domain.Order) *memory.Repository {
	t.Helper()
	ctx := context.Background()
	repo := memory.NewRepository()
	for _, u := range users {
		if err := repo.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	for _, o := range orders {
		if err := repo.Create(ctx, o); err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
	}
	return repo
}

func newRecordingMetrics(t *testing.T) (*metrics.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	m, err := metrics.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() failed: %v", err)
	}
	return m, reader
}

// counterValue sums the data points of name whose status attribute equals status.
func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name, status string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s: expected Sum[int64], got %T", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				if v, ok := dp.Attributes.Value(attribute.Key("status")); ok && v.AsString() == status {
					total += dp.Value
				}
			}
		}
	}
	return total
}
