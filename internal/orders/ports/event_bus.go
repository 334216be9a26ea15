package ports

import "context"

// EventPublisher hands order lifecycle events to the event bus. Publish only schedules
// delivery; it never waits for subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}
