package unit

import (
	"errors"
	"testing"

	"github.com/closedesk/transaction-service/internal/domain"
)

func TestParseStatus(t *testing.T) {
	t.Parallel()

	for _, status := range domain.PipelineOrder() {
		parsed, err := domain.ParseStatus(string(status))
		if err != nil {
			t.Fatalf("parse %s failed: %v", status, err)
		}
		if parsed != status {
			t.Fatalf("parse %s returned %s", status, parsed)
		}
	}

	if _, err := domain.ParseStatus("  Cancelled "); err != nil {
		t.Fatalf("cancelled must parse case-insensitively: %v", err)
	}
	if _, err := domain.ParseStatus("escrow"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("unknown status must be invalid input, got %v", err)
	}
}

func TestStatusTransitionRules(t *testing.T) {
	t.Parallel()

	order := domain.PipelineOrder()

	// Any forward move is legal, including stage skips.
	for i, from := range order {
		for j, to := range order {
			got := from.CanTransitionTo(to)
			want := j > i && !from.Terminal()
			if got != want {
				t.Fatalf("%s -> %s: got %v, want %v", from, to, got, want)
			}
		}
	}

	// Cancellation is reachable from every open stage and no terminal one.
	for _, from := range order {
		want := !from.Terminal()
		if got := from.CanTransitionTo(domain.StatusCancelled); got != want {
			t.Fatalf("%s -> cancelled: got %v, want %v", from, got, want)
		}
	}
	if domain.StatusCancelled.CanTransitionTo(domain.StatusDraft) {
		t.Fatalf("cancelled must be terminal")
	}
	if domain.StatusClosed.CanTransitionTo(domain.StatusCancelled) {
		t.Fatalf("closed must be terminal")
	}
}

func TestTerminalAndOpen(t *testing.T) {
	t.Parallel()

	for _, status := range domain.TerminalStatuses() {
		if !status.Terminal() || status.IsOpen() {
			t.Fatalf("%s must be terminal and not open", status)
		}
	}
	if domain.StatusDraft.Terminal() || !domain.StatusDraft.IsOpen() {
		t.Fatalf("draft must be open")
	}
}

func TestVisibilityScopeFollowsRole(t *testing.T) {
	t.Parallel()

	cases := []struct {
		role domain.Role
		kind domain.ScopeKind
	}{
		{domain.RoleAgent, domain.ScopeOwned},
		{domain.RoleBroker, domain.ScopeOwned},
		{domain.RoleBuyer, domain.ScopeParticipating},
		{domain.RoleSeller, domain.ScopeParticipating},
		{domain.RoleTitleAgent, domain.ScopeParticipating},
	}
	for _, tc := range cases {
		scope := domain.ScopeFor(domain.User{Role: tc.role})
		if scope.Kind != tc.kind {
			t.Fatalf("role %s: got scope %v, want %v", tc.role, scope.Kind, tc.kind)
		}
	}
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	role, err := domain.ParseRole(" Title_Insurance_Agent ")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if role != domain.RoleTitleAgent {
		t.Fatalf("unexpected role: %s", role)
	}
	if _, err := domain.ParseRole("landlord"); !errors.Is(err, domain.ErrInvalidRole) {
		t.Fatalf("expected invalid role, got %v", err)
	}
}
