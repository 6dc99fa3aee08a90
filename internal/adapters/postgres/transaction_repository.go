package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/closedesk/transaction-service/internal/domain"
	"github.com/closedesk/transaction-service/internal/ports"
)

type transactionRepository struct {
	db *gorm.DB
}

func (r *transactionRepository) CreateWithOutboxTx(ctx context.Context, params ports.CreateTransactionParams, event ports.OutboxEvent) (domain.Transaction, error) {
	var result domain.Transaction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := transactionModel{
			AgentID:        params.AgentID,
			Address:        params.Address,
			Status:         string(domain.StatusDraft),
			SalePriceCents: params.SalePriceCents,
			CreatedAt:      params.CreatedAt,
			UpdatedAt:      params.CreatedAt,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}

		if err := tx.Create(outboxRow(event, withTransactionID(event.Payload, rec.TransactionID))).Error; err != nil {
			return err
		}

		result = toDomainTransaction(rec, nil)
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	return result, nil
}

func (r *transactionRepository) GetByID(ctx context.Context, transactionID uuid.UUID) (domain.Transaction, error) {
	var rec transactionModel
	if err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Transaction{}, domain.ErrNotFound
		}
		return domain.Transaction{}, err
	}

	var participants []participantModel
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&participants).Error; err != nil {
		return domain.Transaction{}, err
	}
	return toDomainTransaction(rec, participants), nil
}

func (r *transactionRepository) ListVisible(ctx context.Context, scope domain.VisibilityScope, limit, offset int) ([]domain.Transaction, error) {
	query := r.db.WithContext(ctx).Model(&transactionModel{})

	switch scope.Kind {
	case domain.ScopeOwned:
		query = query.Where("agent_id = ?", scope.UserID)
	case domain.ScopeParticipating:
		memberships := r.db.Model(&participantModel{}).
			Select("transaction_id").
			Where("user_id = ?", scope.UserID)
		query = query.Where("transaction_id IN (?)", memberships)
	default:
		return nil, fmt.Errorf("%w: unsupported visibility scope %q", domain.ErrInvalidInput, scope.Kind)
	}

	var rows []transactionModel
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainTransaction(row, nil))
	}
	return result, nil
}

func (r *transactionRepository) AddParticipant(ctx context.Context, participant domain.Participant) (bool, error) {
	rec := participantModel{
		TransactionID: participant.TransactionID,
		UserID:        participant.UserID,
		Capacity:      string(participant.Capacity),
		CreatedAt:     participant.CreatedAt,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *transactionRepository) UpdateStatusTx(ctx context.Context, transactionID uuid.UUID, from, to domain.Status, at time.Time, event ports.OutboxEvent) (domain.Transaction, error) {
	var result domain.Transaction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&transactionModel{}).
			Where("transaction_id = ? AND status = ?", transactionID, string(from)).
			Updates(map[string]any{
				"status":     string(to),
				"updated_at": at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Either the row is gone or a concurrent writer moved the
			// status first.
			var current transactionModel
			if err := tx.Where("transaction_id = ?", transactionID).Take(&current).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return domain.ErrNotFound
				}
				return err
			}
			return domain.ErrConflict
		}

		if err := tx.Create(outboxRow(event, withTransactionID(event.Payload, transactionID))).Error; err != nil {
			return err
		}

		var rec transactionModel
		if err := tx.Where("transaction_id = ?", transactionID).Take(&rec).Error; err != nil {
			return err
		}
		var participants []participantModel
		if err := tx.Where("transaction_id = ?", transactionID).Order("created_at ASC").Find(&participants).Error; err != nil {
			return err
		}
		result = toDomainTransaction(rec, participants)
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	return result, nil
}

// withTransactionID stamps the row id into the event payload.
func withTransactionID(payload []byte, transactionID uuid.UUID) []byte {
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err != nil {
		return payload
	}
	obj["transaction_id"] = transactionID.String()
	if adjusted, err := json.Marshal(obj); err == nil {
		return adjusted
	}
	return payload
}
