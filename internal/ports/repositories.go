package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/closedesk/transaction-service/internal/domain"
)

// CreateUserParams carries the fields for a new user row. ExternalID is
// nil for rows pre-provisioned by email ahead of first authentication.
type CreateUserParams struct {
	ExternalID *string
	Email      string
	FirstName  string
	LastName   string
	Role       domain.Role
	CreatedAt  time.Time
}

// UserRepository persists users. Writes that race concurrent callers
// are arbitrated by the store's uniqueness constraints on external_id
// and email; losers surface domain.ErrConflict.
type UserRepository interface {
	GetByExternalID(ctx context.Context, externalID string) (domain.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateWithOutboxTx inserts the user and enqueues the event in one
	// transaction. A uniqueness loss returns domain.ErrConflict.
	CreateWithOutboxTx(ctx context.Context, params CreateUserParams, event OutboxEvent) (domain.User, error)

	// AttachExternalID claims a pre-provisioned row for an external
	// principal. The write is guarded on external_id still being null;
	// losing that guard returns domain.ErrConflict.
	AttachExternalID(ctx context.Context, userID uuid.UUID, externalID string, at time.Time) (domain.User, error)

	// UpdateProfileByExternalID applies a profile update to the row
	// bearing externalID. Returns false with nil error when no such row
	// exists (out-of-order lifecycle events are no-ops).
	UpdateProfileByExternalIDTx(ctx context.Context, externalID, email, firstName, lastName string, at time.Time, event OutboxEvent) (bool, error)

	// UpdateRoleTx sets the user's role and enqueues the event in one
	// transaction.
	UpdateRoleTx(ctx context.Context, userID uuid.UUID, role domain.Role, at time.Time, event OutboxEvent) (domain.User, error)

	// DeleteByExternalIDTx removes the user row, its participant rows,
	// and the transactions it owns. Returns false with nil error when
	// no row matches.
	DeleteByExternalIDTx(ctx context.Context, externalID string, event OutboxEvent) (bool, error)

	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
}

// CreateTransactionParams carries the fields for a new transaction.
type CreateTransactionParams struct {
	AgentID        uuid.UUID
	Address        string
	SalePriceCents *int64
	CreatedAt      time.Time
}

// TransactionRepository persists transactions and participants.
type TransactionRepository interface {
	CreateWithOutboxTx(ctx context.Context, params CreateTransactionParams, event OutboxEvent) (domain.Transaction, error)

	// GetByID loads the transaction with its participants. Visibility
	// is the access engine's concern, not the repository's.
	GetByID(ctx context.Context, transactionID uuid.UUID) (domain.Transaction, error)

	// ListVisible returns transactions matching the scope, newest
	// first. It never runs unscoped.
	ListVisible(ctx context.Context, scope domain.VisibilityScope, limit, offset int) ([]domain.Transaction, error)

	// AddParticipant inserts the participant row, returning false when
	// the (transaction, user) pair already exists.
	AddParticipant(ctx context.Context, participant domain.Participant) (bool, error)

	// UpdateStatusTx moves the transaction from one status to another
	// and enqueues the event in one transaction. The write is guarded
	// on the current status still being from; losing that guard
	// returns domain.ErrConflict.
	UpdateStatusTx(ctx context.Context, transactionID uuid.UUID, from, to domain.Status, at time.Time, event OutboxEvent) (domain.Transaction, error)
}

// WebhookEventRepository is the durable at-least-once arbiter for
// identity webhooks. Record inserts the event id, returning false when
// it was already processed.
type WebhookEventRepository interface {
	Record(ctx context.Context, eventID, eventType string, receivedAt time.Time) (bool, error)
}

// OutboxEvent is a domain event to enqueue alongside a state change.
// EventID doubles as the outbox row id.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord is one enqueued event as stored.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	FirstSeenAt    time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository stores domain events until the worker publishes
// them. Claims carry a token and TTL so a crashed worker's batch
// becomes reclaimable once the claim lapses.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}
