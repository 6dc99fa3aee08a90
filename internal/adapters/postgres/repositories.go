package postgres

import (
	"gorm.io/gorm"

	"github.com/closedesk/transaction-service/internal/ports"
)

type Repositories struct {
	Users         ports.UserRepository
	Transactions  ports.TransactionRepository
	Outbox        ports.OutboxRepository
	WebhookEvents ports.WebhookEventRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:         &userRepository{db: db},
		Transactions:  &transactionRepository{db: db},
		Outbox:        &outboxRepository{db: db},
		WebhookEvents: &webhookEventRepository{db: db},
	}
}
