package db

import (
	"context"
	"errors"
	"time"

	"daonbridge/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WebhookRepository struct {
	db *gorm.DB
}

func NewWebhookRepository(db *gorm.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

func (r *WebhookRepository) Create(ctx context.Context, webhook domain.Webhook) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := webhookModelFromDomain(webhook)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *WebhookRepository) GetByID(ctx context.Context, id string) (*domain.Webhook, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model WebhookModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	webhook := webhookFromModel(model)
	return &webhook, nil
}

func (r *WebhookRepository) ListByBroker(ctx context.Context, brokerID string) ([]domain.Webhook, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []WebhookModel
	err := r.db.WithContext(ctx).
		Where("broker_id = ?", brokerID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Webhook, 0, len(models))
	for _, model := range models {
		out = append(out, webhookFromModel(model))
	}
	return out, nil
}

// ListEnabledForEvent returns the enabled webhooks of one broker subscribed
// to the given event type.
func (r *WebhookRepository) ListEnabledForEvent(ctx context.Context, brokerID string, event domain.EventType) ([]domain.Webhook, error) {
	webhooks, err := r.ListByBroker(ctx, brokerID)
	if err != nil {
		return nil, err
	}
	out := webhooks[:0]
	for _, webhook := range webhooks {
		if webhook.Enabled && webhook.SubscribedTo(event) {
			out = append(out, webhook)
		}
	}
	return out, nil
}

func (r *WebhookRepository) Delete(ctx context.Context, brokerID, id string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).
		Where("id = ? AND broker_id = ?", id, brokerID).
		Delete(&WebhookModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RecordSuccess resets the consecutive failure streak.
func (r *WebhookRepository) RecordSuccess(ctx context.Context, id string, at time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Model(&WebhookModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"consecutive_failures": 0,
			"last_success_at":      at.UTC(),
		}).Error
}

// RecordFailure bumps the streak and auto-disables the webhook once it
// reaches disableAfter. Returns whether the webhook was disabled by this
// call.
func (r *WebhookRepository) RecordFailure(ctx context.Context, id, reason string, at time.Time, disableAfter int) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	disabled := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model WebhookModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, "id = ?", id).Error; err != nil {
			return err
		}
		failures := model.ConsecutiveFailures + 1
		updates := map[string]any{
			"consecutive_failures": failures,
			"last_failure_at":      at.UTC(),
			"last_failure_reason":  reason,
		}
		if disableAfter > 0 && failures >= disableAfter && model.Enabled {
			updates["enabled"] = false
			updates["disabled_at"] = at.UTC()
			disabled = true
		}
		return tx.Model(&WebhookModel{}).Where("id = ?", id).Updates(updates).Error
	})
	return disabled, err
}

// SetEnabled is the manual re-enable path after an auto-disable.
func (r *WebhookRepository) SetEnabled(ctx context.Context, brokerID, id string, enabled bool) error {
	if r.db == nil {
		return errDBUnavailable
	}
	updates := map[string]any{"enabled": enabled}
	if enabled {
		updates["consecutive_failures"] = 0
		updates["disabled_at"] = nil
	}
	result := r.db.WithContext(ctx).Model(&WebhookModel{}).
		Where("id = ? AND broker_id = ?", id, brokerID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func webhookModelFromDomain(webhook domain.Webhook) WebhookModel {
	return WebhookModel{
		ID:                  webhook.ID,
		BrokerID:            webhook.BrokerID,
		URL:                 webhook.URL,
		Secret:              webhook.Secret,
		Events:              joinEvents(webhook.Events),
		Enabled:             webhook.Enabled,
		ConsecutiveFailures: webhook.ConsecutiveFailures,
		LastSuccessAt:       webhook.LastSuccessAt,
		LastFailureAt:       webhook.LastFailureAt,
		LastFailureReason:   webhook.LastFailureReason,
		DisabledAt:          webhook.DisabledAt,
		CreatedAt:           webhook.CreatedAt,
	}
}

func webhookFromModel(model WebhookModel) domain.Webhook {
	return domain.Webhook{
		ID:                  model.ID,
		BrokerID:            model.BrokerID,
		URL:                 model.URL,
		Secret:              model.Secret,
		Events:              splitEvents(model.Events),
		Enabled:             model.Enabled,
		ConsecutiveFailures: model.ConsecutiveFailures,
		LastSuccessAt:       model.LastSuccessAt,
		LastFailureAt:       model.LastFailureAt,
		LastFailureReason:   model.LastFailureReason,
		DisabledAt:          model.DisabledAt,
		CreatedAt:           model.CreatedAt,
	}
}
