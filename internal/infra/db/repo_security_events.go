package db

import (
	"context"
	"time"

	"daonbridge/internal/domain"

	"gorm.io/gorm"
)

type SecurityEventRepository struct {
	db *gorm.DB
}

func NewSecurityEventRepository(db *gorm.DB) *SecurityEventRepository {
	return &SecurityEventRepository{db: db}
}

// Append is insert-only. There is no update or delete path.
func (r *SecurityEventRepository) Append(ctx context.Context, event domain.SecurityEvent) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := SecurityEventModel{
		ID:          event.ID,
		BrokerID:    event.BrokerID,
		EventType:   string(event.EventType),
		Severity:    string(event.Severity),
		ActionTaken: string(event.ActionTaken),
		Detail:      event.Detail,
		CreatedAt:   event.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// CountSevereSince counts severe events for the broker inside the rolling
// suspension window.
func (r *SecurityEventRepository) CountSevereSince(ctx context.Context, brokerID string, since time.Time) (int64, error) {
	if r.db == nil {
		return 0, errDBUnavailable
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&SecurityEventModel{}).
		Where("broker_id = ? AND severity = ? AND created_at >= ?", brokerID, string(domain.SeveritySevere), since).
		Count(&count).Error
	return count, err
}

func (r *SecurityEventRepository) ListByBroker(ctx context.Context, brokerID string, limit int) ([]domain.SecurityEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []SecurityEventModel
	err := r.db.WithContext(ctx).
		Where("broker_id = ?", brokerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.SecurityEvent, 0, len(models))
	for _, model := range models {
		out = append(out, domain.SecurityEvent{
			ID:          model.ID,
			BrokerID:    model.BrokerID,
			EventType:   domain.SecurityEventType(model.EventType),
			Severity:    domain.SecuritySeverity(model.Severity),
			ActionTaken: domain.SecurityAction(model.ActionTaken),
			Detail:      model.Detail,
			CreatedAt:   model.CreatedAt,
		})
	}
	return out, nil
}
