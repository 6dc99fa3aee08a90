package ports

import "context"

// EventPublisher delivers an outbox record to the downstream broker.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte) error
}
