package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/closedesk/transaction-service/internal/domain"
	"github.com/closedesk/transaction-service/internal/ports"
)

// HandleIdentityEvent applies one verified provider lifecycle event.
// Deliveries are at-least-once: the replay cache short-circuits hot
// duplicates and the webhook_events insert is the durable arbiter, so
// a replayed event id never reaches the dispatch below twice.
func (s *Service) HandleIdentityEvent(ctx context.Context, event IdentityEvent) error {
	if event.EventID == "" || event.EventType == "" {
		return fmt.Errorf("%w: event id and type are required", domain.ErrInvalidInput)
	}

	if s.replay != nil {
		seen, err := s.replay.Seen(ctx, event.EventID, s.cfg.ReplayTTL)
		if err != nil {
			// Advisory only; the durable table still dedupes.
			slog.Default().WarnContext(ctx, "replay cache unavailable",
				"service", serviceName,
				"module", "application",
				"layer", "application",
				"operation", "handle_identity_event",
				"outcome", "warning",
				"error", err,
			)
		} else if seen {
			return nil
		}
	}

	fresh, err := s.webhookEvents.Record(ctx, event.EventID, event.EventType, s.nowFn())
	if err != nil {
		return err
	}
	if !fresh {
		return nil
	}

	switch event.EventType {
	case "user.created":
		_, err := s.CreateFromExternalProfile(ctx, ports.Profile{
			ExternalID: event.ExternalID,
			Email:      event.Email,
			FirstName:  event.FirstName,
			LastName:   event.LastName,
		}, s.cfg.DefaultRole)
		if errors.Is(err, domain.ErrConflict) {
			// The principal is already reconciled; redelivery resolved.
			slog.Default().InfoContext(ctx, "creation event resolved to existing user",
				"service", serviceName,
				"module", "application",
				"layer", "application",
				"operation", "handle_identity_event",
				"outcome", "noop",
				"event_type", event.EventType,
			)
			return nil
		}
		return err

	case "user.updated":
		return s.ApplyProfileUpdate(ctx, ports.Profile{
			ExternalID: event.ExternalID,
			Email:      event.Email,
			FirstName:  event.FirstName,
			LastName:   event.LastName,
		})

	case "user.deleted":
		return s.ApplyDeletion(ctx, event.ExternalID)

	default:
		slog.Default().InfoContext(ctx, "unhandled identity event type ignored",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "handle_identity_event",
			"outcome", "noop",
			"event_type", event.EventType,
		)
		return nil
	}
}
