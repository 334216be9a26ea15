// Package eventbus is a single-process publish/subscribe bus. Deliveries run on their
// own goroutine so publishers never wait for subscribers, and a failing subscriber is
// logged without affecting the publisher or the other subscribers of the topic.
//
// Nothing is persisted: events scheduled but not yet delivered when the process exits
// are lost.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dejobratic/orderflow/internal/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrClosed              = errors.New("event bus closed")
	ErrNotStarted          = errors.New("event bus not started")
	ErrAlreadyStarted      = errors.New("event bus already started")
	ErrInvalidSubscription = errors.New("invalid subscription")
)

// Event is the envelope delivered to subscribers. It is never mutated after publish.
type Event struct {
	ID          uuid.UUID
	Topic       string
	Payload     any
	PublishedAt time.Time
}

// Handler consumes events for one topic.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription binds a named handler to a topic. Name identifies the handler in logs and metrics.
type Subscription struct {
	Topic   string
	Name    string
	Handler Handler
}

func (s Subscription) validate() error {
	if s.Topic == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidSubscription)
	}
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSubscription)
	}
	if s.Handler == nil {
		return fmt.Errorf("%w: handler is required for %s", ErrInvalidSubscription, s.Name)
	}
	return nil
}

// Bus fans out published events to the handlers subscribed to their topic.
//
// Subscriptions are registered before Start and are frozen afterwards. For a single
// publish, handlers run one after another in registration order. Separate publishes
// are delivered independently and may complete in any order.
type Bus struct {
	logger  *slog.Logger
	metrics *Metrics

	mu      sync.RWMutex
	subs    map[string][]Subscription
	started bool
	closed  bool

	inflight sync.WaitGroup
}

// New constructs a bus. metrics may be nil.
func New(logger *slog.Logger, metrics *Metrics) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger:  logger,
		metrics: metrics,
		subs:    make(map[string][]Subscription),
	}
}

// Subscribe registers subscriptions in the given order.
func (b *Bus) Subscribe(subs ...Subscription) error {
	for _, sub := range subs {
		if err := sub.validate(); err != nil {
			return err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return ErrAlreadyStarted
	}
	if b.closed {
		return ErrClosed
	}

	for _, sub := range subs {
		b.subs[sub.Topic] = append(b.subs[sub.Topic], sub)
		b.logger.Debug("event handler subscribed", "topic", sub.Topic, "handler", sub.Name)
	}
	return nil
}

// Start freezes the subscriber graph and enables publishing.
func (b *Bus) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if b.started {
		return ErrAlreadyStarted
	}
	b.started = true

	topics := make([]string, 0, len(b.subs))
	for topic := range b.subs {
		topics = append(topics, topic)
	}
	b.logger.Info("event bus started", "topics", topics)
	return nil
}

// Publish schedules delivery of payload to every handler subscribed to topic and
// returns without waiting for them. Handler failures are never reported here.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	// Events raised by a running handler are still accepted while Close drains, so
	// cascades such as status change -> notification finish before shutdown.
	if b.closed && !isDelivery(ctx) {
		return ErrClosed
	}
	if !b.started {
		return ErrNotStarted
	}

	subs := b.subs[topic]
	if len(subs) == 0 {
		b.logger.DebugContext(ctx, "no subscribers for topic", "topic", topic)
		return nil
	}

	event := Event{
		ID:          uuid.New(),
		Topic:       topic,
		Payload:     payload,
		PublishedAt: time.Now().UTC(),
	}

	// Keep the trace but drop the caller's deadline and cancellation.
	deliveryCtx := context.WithValue(context.WithoutCancel(ctx), deliveryKey{}, true)

	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		for _, sub := range subs {
			b.deliver(deliveryCtx, sub, event)
		}
	}()

	return nil
}

// Close stops accepting events and waits for scheduled deliveries, or until ctx is done.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		b.logger.Warn("event bus stopped with deliveries still running", "error", ctx.Err())
		return fmt.Errorf("drain event bus: %w", ctx.Err())
	}
}

func (b *Bus) deliver(ctx context.Context, sub Subscription, event Event) {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.Deliver "+event.Topic)
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("event.id", event.ID.String()),
		attribute.String("event.topic", event.Topic),
		attribute.String("event.handler", sub.Name),
	)

	start := time.Now()
	err := invoke(ctx, sub.Handler, event)
	duration := time.Since(start).Seconds()

	if b.metrics != nil {
		b.metrics.RecordDelivery(ctx, event.Topic, sub.Name, duration, err == nil)
	}

	if err != nil {
		telemetry.RecordSpanError(span, err)
		b.logger.ErrorContext(ctx, "event handler failed",
			"topic", event.Topic,
			"event_id", event.ID.String(),
			"handler", sub.Name,
			"payload", event.Payload,
			"error", err,
		)
		return
	}

	telemetry.SetSpanSuccess(span)
}

type deliveryKey struct{}

func isDelivery(ctx context.Context) bool {
	v, _ := ctx.Value(deliveryKey{}).(bool)
	return v
}

func invoke(ctx context.Context, handler Handler, event Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panicked: %v", rec)
		}
	}()
	return handler.Handle(ctx, event)
}
