package application

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/closedesk/transaction-service/internal/domain"
	"github.com/closedesk/transaction-service/internal/ports"
)

// SelectRole sets the caller's role, provisioning the local record
// first when none exists. Retries and concurrent duplicate calls are
// safe; the user row's uniqueness constraints arbitrate and every
// caller converges on one row carrying the requested role.
func (s *Service) SelectRole(ctx context.Context, externalID, rawRole string) (UserView, error) {
	role, err := domain.ParseRole(rawRole)
	if err != nil {
		return UserView{}, err
	}

	user, err := s.Resolve(ctx, externalID)
	if errors.Is(err, domain.ErrNotFound) {
		profile, ferr := s.profiles.FetchProfile(ctx, externalID)
		if ferr != nil {
			return UserView{}, ferr
		}
		user, err = s.CreateFromExternalProfile(ctx, profile, role)
	}
	if err != nil {
		return UserView{}, err
	}

	if user.Role != role {
		now := s.nowFn()
		payload, _ := json.Marshal(map[string]any{
			"user_id":    user.UserID,
			"old_role":   user.Role,
			"new_role":   role,
			"changed_at": now,
		})
		user, err = s.users.UpdateRoleTx(ctx, user.UserID, role, now, ports.OutboxEvent{
			EventID:      uuid.New(),
			EventType:    "user.role_changed",
			PartitionKey: user.UserID.String(),
			Payload:      payload,
			OccurredAt:   now,
		})
		if err != nil {
			return UserView{}, err
		}
	}
	return toUserView(user), nil
}
