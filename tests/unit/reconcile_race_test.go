package unit

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/closedesk/transaction-service/internal/application"
	"github.com/closedesk/transaction-service/internal/domain"
	"github.com/closedesk/transaction-service/internal/ports"
)

func TestConcurrentRoleSelectionCreatesOneUser(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.profiles.add("ext-conc", "conc@example.com", "", "")

	const callers = 2
	var wg sync.WaitGroup
	errs := make([]error, callers)
	views := make([]application.UserView, callers)
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			views[i], errs[i] = f.service.SelectRole(ctx, "ext-conc", "broker")
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d failed: %v", i, err)
		}
	}
	if views[0].UserID != views[1].UserID {
		t.Fatalf("concurrent callers must converge on one row, got %s and %s", views[0].UserID, views[1].UserID)
	}
	if len(f.users.byID) != 1 {
		t.Fatalf("expected exactly one user row, got %d", len(f.users.byID))
	}
	for _, u := range f.users.byID {
		if u.Role != domain.RoleBroker {
			t.Fatalf("expected broker role, got %s", u.Role)
		}
	}
}

func TestReconcileRetriesAfterLostInsertRace(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	// The first insert loses the uniqueness race; the rival's row is
	// visible on the retry read.
	winnerID := uuid.New()
	f.users.createConflicts = 1
	f.users.onCreateConflict = func() {
		ext := "ext-race"
		f.users.byID[winnerID] = domain.User{
			UserID:     winnerID,
			ExternalID: &ext,
			Email:      "race@example.com",
			Role:       domain.RoleAgent,
		}
	}

	user, err := f.service.CreateFromExternalProfile(ctx, ports.Profile{
		ExternalID: "ext-race",
		Email:      "race@example.com",
	}, domain.RoleAgent)
	if err != nil {
		t.Fatalf("losing the insert race must resolve to the winner's row: %v", err)
	}
	if user.UserID != winnerID {
		t.Fatalf("expected the winner's row, got %s", user.UserID)
	}
	if len(f.users.byID) != 1 {
		t.Fatalf("expected exactly one user row, got %d", len(f.users.byID))
	}
}

func TestReconcileRetriesAfterLostClaimRace(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	// Pre-provisioned unlinked row; a rival reconciler for the same
	// principal claims it first, so the attach guard fails once.
	seeded := f.users.seed(domain.User{
		UserID: uuid.New(),
		Email:  "claim@example.com",
		Role:   domain.RoleSeller,
	})
	f.users.attachConflicts = 1
	f.users.onAttachConflict = func() {
		row := f.users.byID[seeded.UserID]
		ext := "ext-claim"
		row.ExternalID = &ext
		f.users.byID[seeded.UserID] = row
	}

	user, err := f.service.CreateFromExternalProfile(ctx, ports.Profile{
		ExternalID: "ext-claim",
		Email:      "claim@example.com",
	}, domain.RoleAgent)
	if err != nil {
		t.Fatalf("losing the claim race must resolve to the claimed row: %v", err)
	}
	if user.UserID != seeded.UserID {
		t.Fatalf("expected the pre-provisioned row, got %s", user.UserID)
	}
	if user.Role != domain.RoleSeller {
		t.Fatalf("claimed row must keep its role, got %s", user.Role)
	}
	if len(f.users.byID) != 1 {
		t.Fatalf("expected exactly one user row, got %d", len(f.users.byID))
	}
}
