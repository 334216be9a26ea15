package commands_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/dejobratic/orderflow/internal/orders/app/commands"
	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/metrics"
	"github.com/dejobratic/orderflow/internal/orders/ports"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newMetrics(t *testing.T) (*metrics.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := metrics.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() failed: %v", err)
	}
	return m, reader
}

func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s: expected Sum[int64]", name)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestObservableTransitionStatusHandler(t *testing.T) {
	t.Run("logs and counts successful transitions", func(t *testing.T) {
		var buf bytes.Buffer
		m, reader := newMetrics(t)
		core := commands.NewTransitionStatusCommandHandler(&mockRepository{}, &mockPublisher{}, slog.New(slog.DiscardHandler))
		handler := commands.NewObservableTransitionStatusHandler(core, slog.New(slog.NewJSONHandler(&buf, nil)), m)

		_, err := handler.Handle(context.Background(), commands.TransitionStatusCommand{OrderID: "ord_1", Status: domain.StatusProcessing})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !strings.Contains(buf.String(), "order status changed") {
			t.Errorf("expected success log, got %s", buf.String())
		}
		if got := counterTotal(t, reader, "order_status_transitions_total"); got != 1 {
			t.Errorf("expected 1 transition recorded, got %d", got)
		}
	})

	t.Run("passes errors through unchanged", func(t *testing.T) {
		var buf bytes.Buffer
		m, _ := newMetrics(t)
		repo := &mockRepository{
			getByIDFn: func(ctx context.Context, id string) (*domain.Order, error) { return nil, ports.ErrNotFound },
		}
		core := commands.NewTransitionStatusCommandHandler(repo, &mockPublisher{}, slog.New(slog.DiscardHandler))
		handler := commands.NewObservableTransitionStatusHandler(core, slog.New(slog.NewJSONHandler(&buf, nil)), m)

		_, err := handler.Handle(context.Background(), commands.TransitionStatusCommand{OrderID: "ord_404", Status: domain.StatusProcessing})
		if !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if !strings.Contains(buf.String(), "ord_404") {
			t.Errorf("expected rejected transition to be logged with order id, got %s", buf.String())
		}
	})
}

func TestObservableConfirmPaymentHandler(t *testing.T) {
	m, reader := newMetrics(t)
	handler := commands.NewObservableConfirmPaymentHandler(
		commands.NewConfirmPaymentCommandHandler(&mockPublisher{}),
		slog.New(slog.DiscardHandler),
		m,
	)

	if _, err := handler.Handle(context.Background(), commands.ConfirmPaymentCommand{OrderID: "ord_3", UserID: "user_9"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := counterTotal(t, reader, "order_payment_confirmations_total"); got != 1 {
		t.Errorf("expected 1 confirmation recorded, got %d", got)
	}
}
