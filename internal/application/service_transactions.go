package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/closedesk/transaction-service/internal/domain"
	"github.com/closedesk/transaction-service/internal/ports"
)

// CreateTransaction opens a new transaction owned by the caller.
func (s *Service) CreateTransaction(ctx context.Context, externalID string, req CreateTransactionRequest) (TransactionView, error) {
	user, err := s.ResolveOrProvision(ctx, externalID)
	if err != nil {
		return TransactionView{}, err
	}
	if decision := s.Authorize(user, ActionCreateTransaction, nil); !decision.Allowed {
		return TransactionView{}, decision.Reason
	}

	address := strings.TrimSpace(req.Address)
	if address == "" {
		return TransactionView{}, fmt.Errorf("%w: address is required", domain.ErrInvalidInput)
	}
	if req.SalePriceCents != nil && *req.SalePriceCents < 0 {
		return TransactionView{}, fmt.Errorf("%w: sale price must not be negative", domain.ErrInvalidInput)
	}

	now := s.nowFn()
	payload, _ := json.Marshal(map[string]any{
		"agent_id":   user.UserID,
		"address":    address,
		"status":     domain.StatusDraft,
		"created_at": now,
	})
	txn, err := s.transactions.CreateWithOutboxTx(ctx, ports.CreateTransactionParams{
		AgentID:        user.UserID,
		Address:        address,
		SalePriceCents: req.SalePriceCents,
		CreatedAt:      now,
	}, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    "transaction.created",
		PartitionKey: user.UserID.String(),
		Payload:      payload,
		OccurredAt:   now,
	})
	if err != nil {
		return TransactionView{}, err
	}
	return toTransactionView(txn), nil
}

// GetTransaction returns one transaction with participants. Absent and
// non-visible rows are indistinguishable to the caller.
func (s *Service) GetTransaction(ctx context.Context, externalID string, transactionID uuid.UUID) (TransactionView, error) {
	user, err := s.ResolveOrProvision(ctx, externalID)
	if err != nil {
		return TransactionView{}, err
	}

	txn, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return TransactionView{}, err
	}
	if decision := s.Authorize(user, ActionViewTransaction, &txn); !decision.Allowed {
		return TransactionView{}, decision.Reason
	}
	return toTransactionView(txn), nil
}

// ListTransactions returns the caller's visible transactions, newest
// first.
func (s *Service) ListTransactions(ctx context.Context, externalID string, q ListTransactionsQuery) ([]TransactionView, error) {
	user, err := s.ResolveOrProvision(ctx, externalID)
	if err != nil {
		return nil, err
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > s.cfg.ListPageLimit {
		q.Limit = s.cfg.ListPageLimit
	}
	offset := (q.Page - 1) * q.Limit

	scope := s.VisibilityScope(user)
	txns, err := s.transactions.ListVisible(ctx, scope, q.Limit, offset)
	if err != nil {
		return nil, err
	}

	result := make([]TransactionView, 0, len(txns))
	for _, txn := range txns {
		result = append(result, toTransactionView(txn))
	}
	return result, nil
}

// AddParticipant attaches a user by email to a transaction the caller
// owns. An unknown email pre-provisions a user row without an external
// id; first-contact reconciliation later claims it. Re-attachment is a
// no-op.
func (s *Service) AddParticipant(ctx context.Context, externalID string, transactionID uuid.UUID, req AddParticipantRequest) (TransactionView, error) {
	capacity, err := domain.ParseRole(req.Capacity)
	if err != nil {
		return TransactionView{}, err
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return TransactionView{}, err
	}

	user, err := s.ResolveOrProvision(ctx, externalID)
	if err != nil {
		return TransactionView{}, err
	}
	txn, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return TransactionView{}, err
	}
	if decision := s.Authorize(user, ActionManageTransaction, &txn); !decision.Allowed {
		return TransactionView{}, decision.Reason
	}
	if txn.Status.Terminal() {
		return TransactionView{}, fmt.Errorf("%w: transaction is %s", domain.ErrInvalidTransition, txn.Status)
	}

	participant, err := s.findOrProvisionByEmail(ctx, email, capacity)
	if err != nil {
		return TransactionView{}, err
	}

	if _, err := s.transactions.AddParticipant(ctx, domain.Participant{
		TransactionID: txn.TransactionID,
		UserID:        participant.UserID,
		Capacity:      capacity,
		CreatedAt:     s.nowFn(),
	}); err != nil {
		return TransactionView{}, err
	}

	refreshed, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return TransactionView{}, err
	}
	return toTransactionView(refreshed), nil
}

// findOrProvisionByEmail resolves a user by email, inserting an
// unlinked row on a miss. Losing the insert race falls back to the
// winner's row.
func (s *Service) findOrProvisionByEmail(ctx context.Context, email string, role domain.Role) (domain.User, error) {
	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}

	now := s.nowFn()
	payload, _ := json.Marshal(map[string]any{
		"email":          email,
		"role":           role,
		"provisioned_at": now,
	})
	created, err := s.users.CreateWithOutboxTx(ctx, ports.CreateUserParams{
		ExternalID: nil,
		Email:      email,
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
		return s.users.GetByEmail(ctx, email)
	}
	return domain.User{}, err
}

// UpdateStatus advances the pipeline or cancels. The repository write
// is guarded on the observed status, so concurrent movers lose with a
// conflict instead of skipping stages.
func (s *Service) UpdateStatus(ctx context.Context, externalID string, transactionID uuid.UUID, rawStatus string) (TransactionView, error) {
	next, err := domain.ParseStatus(rawStatus)
	if err != nil {
		return TransactionView{}, err
	}

	user, err := s.ResolveOrProvision(ctx, externalID)
	if err != nil {
		return TransactionView{}, err
	}
	txn, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return TransactionView{}, err
	}
	if decision := s.Authorize(user, ActionManageTransaction, &txn); !decision.Allowed {
		return TransactionView{}, decision.Reason
	}
	if !txn.Status.CanTransitionTo(next) {
		return TransactionView{}, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, txn.Status, next)
	}

	now := s.nowFn()
	payload, _ := json.Marshal(map[string]any{
		"transaction_id": txn.TransactionID,
		"old_status":     txn.Status,
		"new_status":     next,
		"changed_at":     now,
	})
	updated, err := s.transactions.UpdateStatusTx(ctx, txn.TransactionID, txn.Status, next, now, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    "transaction.status_changed",
		PartitionKey: txn.TransactionID.String(),
		Payload:      payload,
		OccurredAt:   now,
	})
	if err != nil {
		return TransactionView{}, err
	}
	return toTransactionView(updated), nil
}

// TransactionState is the internal read model for dependent services
// (deadline and compliance computations). It bypasses visibility;
// callers are trusted peers, not end users.
func (s *Service) TransactionState(ctx context.Context, transactionID uuid.UUID) (domain.Status, error) {
	txn, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return "", err
	}
	return txn.Status, nil
}

// TeamRoster is the broker-only read model over agents.
func (s *Service) TeamRoster(ctx context.Context, externalID string) ([]UserView, error) {
	user, err := s.ResolveOrProvision(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if decision := s.Authorize(user, ActionViewTeam, nil); !decision.Allowed {
		return nil, decision.Reason
	}

	agents, err := s.users.ListByRole(ctx, s.cfg.TeamRosterRole)
	if err != nil {
		return nil, err
	}
	result := make([]UserView, 0, len(agents))
	for _, agent := range agents {
		result = append(result, toUserView(agent))
	}
	return result, nil
}
