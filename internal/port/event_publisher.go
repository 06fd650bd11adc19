package port

import "context"

// EventPublisher delivers a named event to the message broker. Success means
// the broker accepted the message, not that any consumer processed it.
type EventPublisher interface {
	Publish(ctx context.Context, eventName string, payload any) error
}
