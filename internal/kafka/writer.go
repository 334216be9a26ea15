// Package kafka delivers notification requests to a Kafka topic for the mailer to render and send.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/telemetry"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// WriterConfig configures the notification producer.
type WriterConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

// NotificationWriter implements ports.NotificationSender on top of a Kafka writer.
// Messages are keyed by recipient so one customer's notifications stay ordered.
type NotificationWriter struct {
	writer  messageWriter
	topic   string
	metrics *Metrics
	logger  *slog.Logger
}

func NewNotificationWriter(cfg WriterConfig, metrics *Metrics, logger *slog.Logger) *NotificationWriter {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           batchTimeout,
		AllowAutoTopicCreation: true,
	}

	return newNotificationWriter(writer, cfg.Topic, metrics, logger)
}

func newNotificationWriter(writer messageWriter, topic string, metrics *Metrics, logger *slog.Logger) *NotificationWriter {
	return &NotificationWriter{
		writer:  writer,
		topic:   topic,
		metrics: metrics,
		logger:  logger.With("component", "kafka_notification_writer", "topic", topic),
	}
}

func (w *NotificationWriter) Send(ctx context.Context, request domain.NotificationRequest) error {
	value, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	headers := headerCarrier{{Key: "kind", Value: []byte(request.Kind)}}
	telemetry.Inject(ctx, &headers)

	start := time.Now()
	err = w.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(request.To),
		Value:   value,
		Headers: headers,
	})
	if w.metrics != nil {
		w.metrics.RecordPublish(ctx, w.topic, time.Since(start).Seconds(), err == nil)
	}
	if err != nil {
		return fmt.Errorf("write notification to %s: %w", w.topic, err)
	}

	w.logger.DebugContext(ctx, "notification queued", "kind", request.Kind)
	return nil
}

// Close flushes pending messages and releases the writer.
func (w *NotificationWriter) Close() error {
	return w.writer.Close()
}

// headerCarrier adapts Kafka headers to the OpenTelemetry text map carrier.
type headerCarrier []kafka.Header

func (c *headerCarrier) Get(key string) string {
	for _, h := range *c {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i, h := range *c {
		if h.Key == key {
			(*c)[i].Value = []byte(value)
			return
		}
	}
	*c = append(*c, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*c))
	for _, h := range *c {
		keys = append(keys, h.Key)
	}
	return keys
}
