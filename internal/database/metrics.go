package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records repository query latency and failures by operation.
type Metrics struct {
	queryDuration metric.Float64Histogram
	queryErrors   metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.queryDuration, err = meter.Float64Histogram(
		"db_query_duration_seconds",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create db_query_duration histogram: %w", err)
	}

	m.queryErrors, err = meter.Int64Counter(
		"db_query_errors_total",
		metric.WithDescription("Database queries that returned an error other than not found"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create db_query_errors counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordQuery(ctx context.Context, operation string, durationSeconds float64) {
	m.queryDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

func (m *Metrics) RecordQueryError(ctx context.Context, operation string) {
	m.queryErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// ObservePool reports pgxpool connection counts on every collection. Unregister the
// returned registration before closing the pool.
func ObservePool(meter metric.Meter, pool *pgxpool.Pool) (metric.Registration, error) {
	total, err := meter.Int64ObservableGauge(
		"db_pool_connections",
		metric.WithDescription("Connections currently held by the pool, by state"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create db_pool_connections gauge: %w", err)
	}

	maxConns, err := meter.Int64ObservableGauge(
		"db_pool_max_connections",
		metric.WithDescription("Configured pool size"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create db_pool_max_connections gauge: %w", err)
	}

	acquired := metric.WithAttributes(attribute.String("state", "acquired"))
	idle := metric.WithAttributes(attribute.String("state", "idle"))
	constructing := metric.WithAttributes(attribute.String("state", "constructing"))

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stat := pool.Stat()
		o.ObserveInt64(total, int64(stat.AcquiredConns()), acquired)
		o.ObserveInt64(total, int64(stat.IdleConns()), idle)
		o.ObserveInt64(total, int64(stat.ConstructingConns()), constructing)
		o.ObserveInt64(maxConns, int64(stat.MaxConns()))
		return nil
	}, total, maxConns)
}
