package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/closedesk/transaction-service/internal/domain"
)

func toDomainUser(row userModel) domain.User {
	return domain.User{
		UserID:     row.UserID,
		ExternalID: row.ExternalID,
		Email:      row.Email,
		FirstName:  row.FirstName,
		LastName:   row.LastName,
		Role:       domain.Role(row.Role),
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

func toDomainTransaction(row transactionModel, participants []participantModel) domain.Transaction {
	txn := domain.Transaction{
		TransactionID:  row.TransactionID,
		AgentID:        row.AgentID,
		Address:        row.Address,
		Status:         domain.Status(row.Status),
		SalePriceCents: row.SalePriceCents,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
	for _, p := range participants {
		txn.Participants = append(txn.Participants, domain.Participant{
			TransactionID: p.TransactionID,
			UserID:        p.UserID,
			Capacity:      domain.Role(p.Capacity),
			CreatedAt:     p.CreatedAt,
		})
	}
	return txn
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
