package events

import (
	"context"
	"log/slog"
)

// LoggingPublisher emits outbox events to the structured log stream. It
// stands in for a broker client while keeping the worker's publish
// contract real; swapping in a broker touches only this type.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, eventType string, payload []byte) error {
	p.logger.InfoContext(ctx, "domain event published",
		"module", "events.publisher",
		"layer", "adapter",
		"operation", "publish_event",
		"outcome", "success",
		"event_type", eventType,
		"payload_bytes", len(payload),
	)
	return nil
}
