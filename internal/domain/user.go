package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of platform roles. It is validated once at the
// system boundary; downstream code treats a Role value as already valid.
type Role string

const (
	RoleAgent      Role = "agent"
	RoleBroker     Role = "broker"
	RoleBuyer      Role = "buyer"
	RoleSeller     Role = "seller"
	RoleTitleAgent Role = "title_insurance_agent"
)

// DefaultRole is assigned when a principal is provisioned without an
// explicit role selection.
const DefaultRole = RoleAgent

// ParseRole validates a raw role string against the closed enum.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAgent:
		return RoleAgent, nil
	case RoleBroker:
		return RoleBroker, nil
	case RoleBuyer:
		return RoleBuyer, nil
	case RoleSeller:
		return RoleSeller, nil
	case RoleTitleAgent:
		return RoleTitleAgent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
	}
}

// CanOwnTransactions reports whether the role may create, and therefore
// own, transactions.
func (r Role) CanOwnTransactions() bool {
	return r == RoleAgent || r == RoleBroker
}

// SeesOwnedTransactions reports whether listing visibility is keyed on
// ownership rather than participation. Brokers see their own
// transactions only; brokerage-wide visibility is not modeled.
func (r Role) SeesOwnedTransactions() bool {
	return r == RoleAgent || r == RoleBroker
}

// User is the local record for one platform principal. ExternalID links
// it to the identity provider and stays nil for users pre-provisioned
// by email (participant attachment) before they ever authenticate.
type User struct {
	UserID     uuid.UUID
	ExternalID *string
	Email      string
	FirstName  string
	LastName   string
	Role       Role
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasExternalID reports whether the user has been reconciled with the
// identity provider.
func (u User) HasExternalID() bool {
	return u.ExternalID != nil && *u.ExternalID != ""
}

// ScopeKind selects how a listing query is filtered.
type ScopeKind string

const (
	// ScopeOwned restricts listings to transactions whose owning agent
	// is the user.
	ScopeOwned ScopeKind = "owned"
	// ScopeParticipating restricts listings to transactions the user is
	// attached to as a participant.
	ScopeParticipating ScopeKind = "participating"
)

// VisibilityScope is the mandatory filter for a user's listing queries.
// The access engine computes it once; repositories interpret it. No
// listing path may run unscoped.
type VisibilityScope struct {
	Kind   ScopeKind
	UserID uuid.UUID
}

// ScopeFor derives the visibility scope from the user's role.
func ScopeFor(user User) VisibilityScope {
	if user.Role.SeesOwnedTransactions() {
		return VisibilityScope{Kind: ScopeOwned, UserID: user.UserID}
	}
	return VisibilityScope{Kind: ScopeParticipating, UserID: user.UserID}
}
