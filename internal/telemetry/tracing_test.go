package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTracerProvider(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exp := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(trace.WithSyncer(exp))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	return exp
}

func TestSpanHelpers(t *testing.T) {
	t.Run("records attributes, events and success", func(t *testing.T) {
		exp := setupTracerProvider(t)

		ctx, span := StartSpan(context.Background(), "OrderLifecycle.Transition")
		AddSpanAttributes(span, attribute.String("order.id", "ord_1"))
		AddSpanEvent(span, "status.committed", attribute.String("order.new_status", "DISPATCHED"))
		SetSpanSuccess(span)

		if TraceID(ctx) == "" || SpanID(ctx) == "" {
			t.Error("expected trace and span ids in context")
		}
		span.End()

		spans := exp.GetSpans()
		if len(spans) != 1 {
			t.Fatalf("expected 1 span, got %d", len(spans))
		}
		got := spans[0]
		if got.Name != "OrderLifecycle.Transition" {
			t.Errorf("unexpected span name %s", got.Name)
		}
		if got.Status.Code != codes.Ok {
			t.Errorf("expected Ok status, got %v", got.Status.Code)
		}
		if len(got.Attributes) != 1 || got.Attributes[0].Value.AsString() != "ord_1" {
			t.Errorf("unexpected attributes %v", got.Attributes)
		}
		if len(got.Events) != 1 || got.Events[0].Name != "status.committed" {
			t.Errorf("unexpected events %v", got.Events)
		}
	})

	t.Run("records errors", func(t *testing.T) {
		exp := setupTracerProvider(t)

		_, span := StartSpan(context.Background(), "CarrierClient.SubmitOrder")
		RecordSpanError(span, errors.New("carrier unavailable"))
		RecordSpanError(span, nil)
		span.End()

		got := exp.GetSpans()[0]
		if got.Status.Code != codes.Error || got.Status.Description != "carrier unavailable" {
			t.Errorf("unexpected status %+v", got.Status)
		}
	})

	t.Run("helpers tolerate nil spans", func(t *testing.T) {
		AddSpanAttributes(nil, attribute.String("k", "v"))
		AddSpanEvent(nil, "event")
		RecordSpanError(nil, errors.New("x"))
		SetSpanSuccess(nil)
	})

	t.Run("ids are empty without a span", func(t *testing.T) {
		if TraceID(context.Background()) != "" || SpanID(context.Background()) != "" {
			t.Error("expected empty ids")
		}
	})
}

func TestPropagation(t *testing.T) {
	setupTracerProvider(t)
	previous := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(previous) })

	ctx, client := StartClientSpan(context.Background(), "Carrier.SubmitOrder")
	defer client.End()

	headers := propagation.MapCarrier{}
	Inject(ctx, headers)
	if headers.Get("traceparent") == "" {
		t.Fatal("expected traceparent header")
	}

	serverCtx, server := StartServerSpan(context.Background(), headers, "POST /shipments")
	defer server.End()

	if TraceID(serverCtx) != TraceID(ctx) {
		t.Errorf("expected server span to continue trace %s, got %s", TraceID(ctx), TraceID(serverCtx))
	}
	if SpanID(serverCtx) == SpanID(ctx) {
		t.Error("expected a new span id for the server span")
	}
}
