package application

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/closedesk/transaction-service/internal/domain"
)

// Action is an access-controlled operation on a resource.
type Action string

const (
	ActionViewTransaction   Action = "transaction.view"
	ActionCreateTransaction Action = "transaction.create"
	ActionManageTransaction Action = "transaction.manage"
	ActionViewTeam          Action = "team.view"
)

// Decision is the outcome of an access check. A denied decision always
// carries the sentinel explaining how the denial must surface.
type Decision struct {
	Allowed bool
	Reason  error
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason error) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Authorize evaluates whether user may perform action, for transaction
// actions against txn. Denials never leak existence: a transaction the
// user cannot see denies with ErrNotFound, identical to an absent row.
// A resource the user may see but not act on denies with
// ErrRoleRequired. No error path grants access.
func (s *Service) Authorize(user domain.User, action Action, txn *domain.Transaction) Decision {
	switch action {
	case ActionCreateTransaction:
		if user.Role.CanOwnTransactions() {
			return Allow()
		}
		return Deny(domain.ErrRoleRequired)

	case ActionViewTeam:
		if user.Role == domain.RoleBroker {
			return Allow()
		}
		return Deny(domain.ErrRoleRequired)

	case ActionViewTransaction:
		if txn == nil {
			return Deny(domain.ErrNotFound)
		}
		if txn.AgentID == user.UserID || txn.HasParticipant(user.UserID) {
			return Allow()
		}
		return Deny(domain.ErrNotFound)

	case ActionManageTransaction:
		if txn == nil {
			return Deny(domain.ErrNotFound)
		}
		if txn.AgentID == user.UserID {
			return Allow()
		}
		if txn.HasParticipant(user.UserID) {
			return Deny(domain.ErrRoleRequired)
		}
		return Deny(domain.ErrNotFound)

	default:
		return Deny(domain.ErrUnauthorized)
	}
}

// CheckAccess answers an access question on behalf of another service.
// The reply mirrors the HTTP surface: allowed, or the sentinel the
// denial maps to. An unknown principal denies with ErrNotFound.
func (s *Service) CheckAccess(ctx context.Context, externalID string, action Action, transactionID *uuid.UUID) (Decision, error) {
	user, err := s.Resolve(ctx, externalID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Deny(domain.ErrNotFound), nil
		}
		return Decision{}, err
	}

	var txn *domain.Transaction
	if transactionID != nil {
		loaded, err := s.transactions.GetByID(ctx, *transactionID)
		if err == nil {
			txn = &loaded
		} else if !errors.Is(err, domain.ErrNotFound) {
			return Decision{}, err
		}
	}
	return s.Authorize(user, action, txn), nil
}

// VisibilityScope returns the mandatory listing filter for the user.
func (s *Service) VisibilityScope(user domain.User) domain.VisibilityScope {
	return domain.ScopeFor(user)
}
