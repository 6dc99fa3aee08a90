package postgres

import (
	"time"

	"github.com/google/uuid"
)

type userModel struct {
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;default:gen_random_uuid();primaryKey"`
	ExternalID *string   `gorm:"column:external_id"`
	Email      string    `gorm:"column:email"`
	FirstName  string    `gorm:"column:first_name"`
	LastName   string    `gorm:"column:last_name"`
	Role       string    `gorm:"column:role"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

type transactionModel struct {
	TransactionID  uuid.UUID `gorm:"column:transaction_id;type:uuid;default:gen_random_uuid();primaryKey"`
	AgentID        uuid.UUID `gorm:"column:agent_id"`
	Address        string    `gorm:"column:address"`
	Status         string    `gorm:"column:status"`
	SalePriceCents *int64    `gorm:"column:sale_price_cents"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (transactionModel) TableName() string { return "transactions" }

type participantModel struct {
	TransactionID uuid.UUID `gorm:"column:transaction_id;type:uuid;primaryKey"`
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	Capacity      string    `gorm:"column:capacity"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (participantModel) TableName() string { return "transaction_participants" }

type txnOutboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	FirstSeenAt    time.Time  `gorm:"column:first_seen_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (txnOutboxModel) TableName() string { return "txn_outbox" }

type webhookEventModel struct {
	EventID    string    `gorm:"column:event_id;primaryKey"`
	EventType  string    `gorm:"column:event_type"`
	ReceivedAt time.Time `gorm:"column:received_at"`
}

func (webhookEventModel) TableName() string { return "webhook_events" }
