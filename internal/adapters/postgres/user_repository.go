package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/closedesk/transaction-service/internal/domain"
	"github.com/closedesk/transaction-service/internal/ports"
)

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) GetByExternalID(ctx context.Context, externalID string) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) CreateWithOutboxTx(ctx context.Context, params ports.CreateUserParams, event ports.OutboxEvent) (domain.User, error) {
	var result domain.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := userModel{
			ExternalID: params.ExternalID,
			Email:      params.Email,
			FirstName:  params.FirstName,
			LastName:   params.LastName,
			Role:       string(params.Role),
			CreatedAt:  params.CreatedAt,
			UpdatedAt:  params.CreatedAt,
		}
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}

		if err := tx.Create(outboxRow(event, withUserID(event.Payload, rec.UserID))).Error; err != nil {
			return err
		}

		result = toDomainUser(rec)
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return result, nil
}

func (r *userRepository) AttachExternalID(ctx context.Context, userID uuid.UUID, externalID string, at time.Time) (domain.User, error) {
	res := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("user_id = ? AND external_id IS NULL", userID).
		Updates(map[string]any{
			"external_id": externalID,
			"updated_at":  at,
		})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return domain.User{}, domain.ErrConflict
		}
		return domain.User{}, res.Error
	}
	// Zero rows means the row was claimed or deleted since the caller
	// read it.
	if res.RowsAffected == 0 {
		return domain.User{}, domain.ErrConflict
	}
	return r.GetByID(ctx, userID)
}

func (r *userRepository) UpdateProfileByExternalIDTx(ctx context.Context, externalID, email, firstName, lastName string, at time.Time, event ports.OutboxEvent) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&userModel{}).
			Where("external_id = ?", externalID).
			Updates(map[string]any{
				"email":      email,
				"first_name": firstName,
				"last_name":  lastName,
				"updated_at": at,
			})
		if res.Error != nil {
			if isUniqueViolation(res.Error) {
				return domain.ErrConflict
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true
		return tx.Create(outboxRow(event, event.Payload)).Error
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (r *userRepository) UpdateRoleTx(ctx context.Context, userID uuid.UUID, role domain.Role, at time.Time, event ports.OutboxEvent) (domain.User, error) {
	var result domain.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&userModel{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				"role":       string(role),
				"updated_at": at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}

		if err := tx.Create(outboxRow(event, withUserID(event.Payload, userID))).Error; err != nil {
			return err
		}

		var rec userModel
		if err := tx.Where("user_id = ?", userID).Take(&rec).Error; err != nil {
			return err
		}
		result = toDomainUser(rec)
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return result, nil
}

func (r *userRepository) DeleteByExternalIDTx(ctx context.Context, externalID string, event ports.OutboxEvent) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec userModel
		if err := tx.Where("external_id = ?", externalID).Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		if err := tx.Where("user_id = ?", rec.UserID).Delete(&participantModel{}).Error; err != nil {
			return err
		}
		// Owned transactions go with the owner; their participant rows
		// cascade.
		if err := tx.Where("agent_id = ?", rec.UserID).Delete(&transactionModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", rec.UserID).Delete(&userModel{}).Error; err != nil {
			return err
		}
		if err := tx.Create(outboxRow(event, withUserID(event.Payload, rec.UserID))).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (r *userRepository) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	var rows []userModel
	if err := r.db.WithContext(ctx).
		Where("role = ?", string(role)).
		Order("email ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainUser(row))
	}
	return result, nil
}

// withUserID stamps the persisted row id into the event payload so
// consumers never see a payload without it.
func withUserID(payload []byte, userID uuid.UUID) []byte {
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err != nil {
		return payload
	}
	obj["user_id"] = userID.String()
	if adjusted, err := json.Marshal(obj); err == nil {
		return adjusted
	}
	return payload
}

func outboxRow(event ports.OutboxEvent, payload []byte) *txnOutboxModel {
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	return &txnOutboxModel{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      string(payload),
		CreatedAt:    event.OccurredAt,
		FirstSeenAt:  event.OccurredAt,
	}
}
