package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/closedesk/transaction-service/internal/domain"
)

// IdentityEvent is one provider lifecycle delivery, already
// signature-verified by the transport layer.
type IdentityEvent struct {
	EventID    string
	EventType  string
	ExternalID string
	Email      string
	FirstName  string
	LastName   string
}

type RoleSelectRequest struct {
	Role string `json:"role"`
}

type UserView struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
	Linked    bool      `json:"linked"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateTransactionRequest struct {
	Address        string `json:"address"`
	SalePriceCents *int64 `json:"sale_price_cents,omitempty"`
}

type AddParticipantRequest struct {
	Email    string `json:"email"`
	Capacity string `json:"capacity"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type ParticipantView struct {
	UserID   uuid.UUID `json:"user_id"`
	Capacity string    `json:"capacity"`
	AddedAt  time.Time `json:"added_at"`
}

type TransactionView struct {
	TransactionID  uuid.UUID         `json:"transaction_id"`
	AgentID        uuid.UUID         `json:"agent_id"`
	Address        string            `json:"address"`
	Status         string            `json:"status"`
	SalePriceCents *int64            `json:"sale_price_cents,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	Participants   []ParticipantView `json:"participants,omitempty"`
}

type ListTransactionsQuery struct {
	Page  int
	Limit int
}

func toUserView(u domain.User) UserView {
	return UserView{
		UserID:    u.UserID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
		Linked:    u.HasExternalID(),
		CreatedAt: u.CreatedAt,
	}
}

func toTransactionView(t domain.Transaction) TransactionView {
	view := TransactionView{
		TransactionID:  t.TransactionID,
		AgentID:        t.AgentID,
		Address:        t.Address,
		Status:         string(t.Status),
		SalePriceCents: t.SalePriceCents,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	for _, p := range t.Participants {
		view.Participants = append(view.Participants, ParticipantView{
			UserID:   p.UserID,
			Capacity: string(p.Capacity),
			AddedAt:  p.CreatedAt,
		})
	}
	return view
}
