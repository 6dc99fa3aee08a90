package contract

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	httpadapter "github.com/closedesk/transaction-service/internal/adapters/http"
	"github.com/closedesk/transaction-service/internal/adapters/security"
	"github.com/closedesk/transaction-service/internal/application"
	"github.com/closedesk/transaction-service/internal/domain"
	"github.com/closedesk/transaction-service/internal/ports"
)

const contractWebhookSecret = "whsec_Y29udHJhY3QtdGVzdC1zZWNyZXQ="

type contractFixture struct {
	service  *application.Service
	router   http.Handler
	sessions *security.SessionTokenVerifier
	users    *contractUsers
	profiles *contractProfiles
}

func newContractFixture(t *testing.T) *contractFixture {
	t.Helper()

	transactions := &contractTransactions{
		byID:         map[uuid.UUID]domain.Transaction{},
		participants: map[uuid.UUID][]domain.Participant{},
	}
	users := &contractUsers{byID: map[uuid.UUID]domain.User{}, transactions: transactions}
	profiles := &contractProfiles{byExternalID: map[string]ports.Profile{}}

	svc := application.NewService(application.Dependencies{
		Users:         users,
		Transactions:  transactions,
		WebhookEvents: &contractWebhookEvents{seen: map[string]bool{}},
		Replay:        &contractReplay{seen: map[string]bool{}},
		Profiles:      profiles,
	})

	sessions, err := security.NewEphemeralSessionTokenVerifier()
	if err != nil {
		t.Fatalf("ephemeral verifier: %v", err)
	}
	webhooks, err := security.NewSvixVerifier(contractWebhookSecret, 5*time.Minute)
	if err != nil {
		t.Fatalf("webhook verifier: %v", err)
	}

	return &contractFixture{
		service:  svc,
		router:   httpadapter.NewRouter(httpadapter.NewHandler(svc, sessions, webhooks)),
		sessions: sessions,
		users:    users,
		profiles: profiles,
	}
}

// token mints a session token for externalID and registers the matching
// provider profile so first contact can provision.
func (f *contractFixture) token(t *testing.T, externalID, email string) string {
	t.Helper()
	f.profiles.add(externalID, email)
	token, err := f.sessions.Sign(externalID, "sess-"+externalID, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

type contractUsers struct {
	mu           sync.Mutex
	byID         map[uuid.UUID]domain.User
	transactions *contractTransactions
}

func (f *contractUsers) GetByExternalID(_ context.Context, externalID string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.ExternalID != nil && *u.ExternalID == externalID {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (f *contractUsers) GetByID(_ context.Context, userID uuid.UUID) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *contractUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (f *contractUsers) CreateWithOutboxTx(_ context.Context, params ports.CreateUserParams, _ ports.OutboxEvent) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == params.Email {
			return domain.User{}, fmt.Errorf("%w: email taken", domain.ErrConflict)
		}
		if params.ExternalID != nil && u.ExternalID != nil && *u.ExternalID == *params.ExternalID {
			return domain.User{}, fmt.Errorf("%w: external id taken", domain.ErrConflict)
		}
	}
	user := domain.User{
		UserID:     uuid.New(),
		ExternalID: params.ExternalID,
		Email:      params.Email,
		FirstName:  params.FirstName,
		LastName:   params.LastName,
		Role:       params.Role,
		CreatedAt:  params.CreatedAt,
		UpdatedAt:  params.CreatedAt,
	}
	f.byID[user.UserID] = user
	return user, nil
}

func (f *contractUsers) AttachExternalID(_ context.Context, userID uuid.UUID, externalID string, at time.Time) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	if u.ExternalID != nil {
		return domain.User{}, fmt.Errorf("%w: row already claimed", domain.ErrConflict)
	}
	u.ExternalID = &externalID
	u.UpdatedAt = at
	f.byID[userID] = u
	return u, nil
}

func (f *contractUsers) UpdateProfileByExternalIDTx(_ context.Context, externalID, email, firstName, lastName string, at time.Time, _ ports.OutboxEvent) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, u := range f.byID {
		if u.ExternalID != nil && *u.ExternalID == externalID {
			u.Email = email
			u.FirstName = firstName
			u.LastName = lastName
			u.UpdatedAt = at
			f.byID[id] = u
			return true, nil
		}
	}
	return false, nil
}

func (f *contractUsers) UpdateRoleTx(_ context.Context, userID uuid.UUID, role domain.Role, at time.Time, _ ports.OutboxEvent) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = at
	f.byID[userID] = u
	return u, nil
}

func (f *contractUsers) DeleteByExternalIDTx(_ context.Context, externalID string, _ ports.OutboxEvent) (bool, error) {
	f.mu.Lock()
	var deletedID *uuid.UUID
	for id, u := range f.byID {
		if u.ExternalID != nil && *u.ExternalID == externalID {
			id := id
			deletedID = &id
			break
		}
	}
	if deletedID == nil {
		f.mu.Unlock()
		return false, nil
	}
	delete(f.byID, *deletedID)
	f.mu.Unlock()

	f.transactions.removeParticipantRows(*deletedID)
	f.transactions.removeOwnedTransactions(*deletedID)
	return true, nil
}

func (f *contractUsers) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.User
	for _, u := range f.byID {
		if u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

type contractTransactions struct {
	mu           sync.Mutex
	byID         map[uuid.UUID]domain.Transaction
	participants map[uuid.UUID][]domain.Participant
	seq          int
}

func (f *contractTransactions) CreateWithOutboxTx(_ context.Context, params ports.CreateTransactionParams, _ ports.OutboxEvent) (domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	txn := domain.Transaction{
		TransactionID:  uuid.New(),
		AgentID:        params.AgentID,
		Address:        params.Address,
		Status:         domain.StatusDraft,
		SalePriceCents: params.SalePriceCents,
		CreatedAt:      params.CreatedAt.Add(time.Duration(f.seq) * time.Microsecond),
		UpdatedAt:      params.CreatedAt,
	}
	f.byID[txn.TransactionID] = txn
	return txn, nil
}

func (f *contractTransactions) GetByID(_ context.Context, transactionID uuid.UUID) (domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.byID[transactionID]
	if !ok {
		return domain.Transaction{}, domain.ErrNotFound
	}
	txn.Participants = append([]domain.Participant(nil), f.participants[transactionID]...)
	return txn, nil
}

func (f *contractTransactions) ListVisible(_ context.Context, scope domain.VisibilityScope, limit, offset int) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Transaction
	for id, txn := range f.byID {
		switch scope.Kind {
		case domain.ScopeOwned:
			if txn.AgentID != scope.UserID {
				continue
			}
		case domain.ScopeParticipating:
			found := false
			for _, p := range f.participants[id] {
				if p.UserID == scope.UserID {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		default:
			return nil, domain.ErrInvalidInput
		}
		out = append(out, txn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *contractTransactions) AddParticipant(_ context.Context, participant domain.Participant) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[participant.TransactionID]; !ok {
		return false, domain.ErrNotFound
	}
	for _, p := range f.participants[participant.TransactionID] {
		if p.UserID == participant.UserID {
			return false, nil
		}
	}
	f.participants[participant.TransactionID] = append(f.participants[participant.TransactionID], participant)
	return true, nil
}

func (f *contractTransactions) UpdateStatusTx(_ context.Context, transactionID uuid.UUID, from, to domain.Status, at time.Time, _ ports.OutboxEvent) (domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.byID[transactionID]
	if !ok {
		return domain.Transaction{}, domain.ErrNotFound
	}
	if txn.Status != from {
		return domain.Transaction{}, fmt.Errorf("%w: status moved concurrently", domain.ErrConflict)
	}
	txn.Status = to
	txn.UpdatedAt = at
	f.byID[transactionID] = txn
	txn.Participants = append([]domain.Participant(nil), f.participants[transactionID]...)
	return txn, nil
}

func (f *contractTransactions) removeOwnedTransactions(userID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, txn := range f.byID {
		if txn.AgentID == userID {
			delete(f.byID, id)
			delete(f.participants, id)
		}
	}
}

func (f *contractTransactions) removeParticipantRows(userID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, rows := range f.participants {
		kept := rows[:0]
		for _, p := range rows {
			if p.UserID != userID {
				kept = append(kept, p)
			}
		}
		f.participants[id] = kept
	}
}

type contractWebhookEvents struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (f *contractWebhookEvents) Record(_ context.Context, eventID, _ string, _ time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[eventID] {
		return false, nil
	}
	f.seen[eventID] = true
	return true, nil
}

type contractReplay struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (f *contractReplay) Seen(_ context.Context, eventID string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[eventID] {
		return true, nil
	}
	f.seen[eventID] = true
	return false, nil
}

type contractProfiles struct {
	mu           sync.Mutex
	byExternalID map[string]ports.Profile
}

func (f *contractProfiles) add(externalID, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byExternalID[externalID] = ports.Profile{ExternalID: externalID, Email: email}
}

func (f *contractProfiles) FetchProfile(_ context.Context, externalID string) (ports.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byExternalID[externalID]
	if !ok {
		return ports.Profile{}, domain.ErrNotFound
	}
	return p, nil
}
