package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/closedesk/transaction-service/internal/domain"
	"github.com/closedesk/transaction-service/internal/ports"
)

// Resolve returns the local user linked to the external principal, or
// domain.ErrNotFound when no link exists yet.
func (s *Service) Resolve(ctx context.Context, externalID string) (domain.User, error) {
	if externalID == "" {
		return domain.User{}, fmt.Errorf("%w: external id is required", domain.ErrInvalidInput)
	}
	return s.users.GetByExternalID(ctx, externalID)
}

// ResolveOrProvision resolves the external principal, fetching the
// provider profile and running first-contact reconciliation on a miss.
func (s *Service) ResolveOrProvision(ctx context.Context, externalID string) (domain.User, error) {
	user, err := s.Resolve(ctx, externalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}

	profile, err := s.profiles.FetchProfile(ctx, externalID)
	if err != nil {
		return domain.User{}, err
	}
	return s.CreateFromExternalProfile(ctx, profile, s.cfg.DefaultRole)
}

// CreateFromExternalProfile runs first-contact reconciliation. A
// pre-provisioned row with the profile's email is claimed by attaching
// the external id; otherwise a new row is inserted. Races against
// concurrent reconcilers lose a uniqueness constraint and retry as
// reads, so every caller converges on the same row.
func (s *Service) CreateFromExternalProfile(ctx context.Context, profile ports.Profile, role domain.Role) (domain.User, error) {
	if profile.ExternalID == "" {
		return domain.User{}, fmt.Errorf("%w: external id is required", domain.ErrInvalidInput)
	}
	email, err := normalizeEmail(profile.Email)
	if err != nil {
		return domain.User{}, err
	}

	const maxAttempts = 3
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if user, err := s.users.GetByExternalID(ctx, profile.ExternalID); err == nil {
			return user, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, err
		}

		existing, err := s.users.GetByEmail(ctx, email)
		if err == nil {
			if existing.HasExternalID() {
				if *existing.ExternalID == profile.ExternalID {
					return existing, nil
				}
				return domain.User{}, fmt.Errorf("%w: email already linked to another principal", domain.ErrConflict)
			}
			claimed, err := s.users.AttachExternalID(ctx, existing.UserID, profile.ExternalID, s.nowFn())
			if err == nil {
				return claimed, nil
			}
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			return domain.User{}, err
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, err
		}

		now := s.nowFn()
		externalID := profile.ExternalID
		payload, _ := json.Marshal(map[string]any{
			"external_id":    externalID,
			"email":          email,
			"role":           role,
			"provisioned_at": now,
		})
		created, err := s.users.CreateWithOutboxTx(ctx, ports.CreateUserParams{
			ExternalID: &externalID,
			Email:      email,
			FirstName:  profile.FirstName,
			LastName:   profile.LastName,
			Role:       role,
			CreatedAt:  now,
		}, ports.OutboxEvent{
			EventID:      uuid.New(),
			EventType:    "user.provisioned",
			PartitionKey: email,
			Payload:      payload,
			OccurredAt:   now,
		})
		if err == nil {
			return created, nil
		}
		if errors.Is(err, domain.ErrConflict) {
			// Lost the insert race; next pass resolves the winner's row.
			continue
		}
		return domain.User{}, err
	}
	return domain.User{}, fmt.Errorf("%w: reconciliation retries exhausted", domain.ErrConflict)
}

// ApplyProfileUpdate applies a provider profile change to the linked
// local row. Updates for principals never seen locally are no-ops;
// deletion may have raced ahead of the update.
func (s *Service) ApplyProfileUpdate(ctx context.Context, profile ports.Profile) error {
	if profile.ExternalID == "" {
		return fmt.Errorf("%w: external id is required", domain.ErrInvalidInput)
	}
	email, err := normalizeEmail(profile.Email)
	if err != nil {
		return err
	}

	now := s.nowFn()
	payload, _ := json.Marshal(map[string]any{
		"external_id": profile.ExternalID,
		"email":       email,
		"updated_at":  now,
	})
	updated, err := s.users.UpdateProfileByExternalIDTx(ctx, profile.ExternalID, email, profile.FirstName, profile.LastName, now, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    "user.updated",
		PartitionKey: email,
		Payload:      payload,
		OccurredAt:   now,
	})
	if err != nil {
		return err
	}
	if !updated {
		slog.Default().InfoContext(ctx, "profile update for unknown principal ignored",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "apply_profile_update",
			"outcome", "noop",
		)
	}
	return nil
}

// ApplyDeletion removes the local row linked to the external
// principal, its participant rows, and the transactions it owns.
// Unknown principals are no-ops.
func (s *Service) ApplyDeletion(ctx context.Context, externalID string) error {
	if externalID == "" {
		return fmt.Errorf("%w: external id is required", domain.ErrInvalidInput)
	}

	now := s.nowFn()
	payload, _ := json.Marshal(map[string]any{
		"external_id": externalID,
		"deleted_at":  now,
	})
	deleted, err := s.users.DeleteByExternalIDTx(ctx, externalID, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    "user.deleted",
		PartitionKey: externalID,
		Payload:      payload,
		OccurredAt:   now,
	})
	if err != nil {
		return err
	}
	if !deleted {
		slog.Default().InfoContext(ctx, "deletion for unknown principal ignored",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "apply_deletion",
			"outcome", "noop",
		)
	}
	return nil
}

// Me resolves the caller, provisioning the local record on first
// contact.
func (s *Service) Me(ctx context.Context, externalID string) (UserView, error) {
	user, err := s.ResolveOrProvision(ctx, externalID)
	if err != nil {
		return UserView{}, err
	}
	return toUserView(user), nil
}
