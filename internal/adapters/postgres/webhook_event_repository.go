package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// webhookEventRepository records processed provider event ids. The
// conflict-free insert is the durable at-least-once arbiter.
type webhookEventRepository struct {
	db *gorm.DB
}

func (r *webhookEventRepository) Record(ctx context.Context, eventID, eventType string, receivedAt time.Time) (bool, error) {
	rec := webhookEventModel{
		EventID:    eventID,
		EventType:  eventType,
		ReceivedAt: receivedAt,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
