package db

import (
	"context"
	"errors"
	"time"

	"daonbridge/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DeliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

func (r *DeliveryRepository) Enqueue(ctx context.Context, delivery domain.WebhookDelivery) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := deliveryModelFromDomain(delivery)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *DeliveryRepository) GetByID(ctx context.Context, id string) (*domain.WebhookDelivery, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model WebhookDeliveryModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	delivery := deliveryFromModel(model)
	return &delivery, nil
}

// claimLease is how far next_retry_at is pushed when a worker claims a row.
// The row lock is gone the moment the transaction commits, so the bump is
// what keeps a second poller from re-claiming a delivery still in flight.
const claimLease = 2 * time.Minute

// ClaimDue picks up to limit deliveries that are pending or due for retry
// and leases them to the caller. SKIP LOCKED keeps concurrent pollers from
// serializing on each other inside the transaction; the next_retry_at bump
// keeps them apart after it commits.
func (r *DeliveryRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.WebhookDelivery, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var out []domain.WebhookDelivery
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var models []WebhookDeliveryModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status IN ?", []string{string(domain.DeliveryPending), string(domain.DeliveryRetrying)}).
			Where("next_retry_at IS NULL OR next_retry_at <= ?", now.UTC()).
			Order("created_at ASC").
			Limit(limit).
			Find(&models).Error
		if err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}
		ids := make([]string, 0, len(models))
		for _, model := range models {
			ids = append(ids, model.ID)
		}
		err = tx.Model(&WebhookDeliveryModel{}).
			Where("id IN ?", ids).
			Update("next_retry_at", now.UTC().Add(claimLease)).Error
		if err != nil {
			return err
		}
		for _, model := range models {
			out = append(out, deliveryFromModel(model))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *DeliveryRepository) Update(ctx context.Context, delivery domain.WebhookDelivery) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Model(&WebhookDeliveryModel{}).
		Where("id = ?", delivery.ID).
		Updates(map[string]any{
			"status":          string(delivery.Status),
			"attempts":        delivery.Attempts,
			"next_retry_at":   delivery.NextRetryAt,
			"response_status": delivery.ResponseStatus,
			"response_body":   delivery.ResponseBody,
			"updated_at":      time.Now().UTC(),
		}).Error
}

func (r *DeliveryRepository) ListByWebhook(ctx context.Context, webhookID string, limit int) ([]domain.WebhookDelivery, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []WebhookDeliveryModel
	err := r.db.WithContext(ctx).
		Where("webhook_id = ?", webhookID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.WebhookDelivery, 0, len(models))
	for _, model := range models {
		out = append(out, deliveryFromModel(model))
	}
	return out, nil
}

func deliveryModelFromDomain(delivery domain.WebhookDelivery) WebhookDeliveryModel {
	return WebhookDeliveryModel{
		ID:             delivery.ID,
		WebhookID:      delivery.WebhookID,
		EventType:      string(delivery.EventType),
		Payload:        delivery.Payload,
		Status:         string(delivery.Status),
		Attempts:       delivery.Attempts,
		NextRetryAt:    delivery.NextRetryAt,
		ResponseStatus: delivery.ResponseStatus,
		ResponseBody:   delivery.ResponseBody,
		CreatedAt:      delivery.CreatedAt,
		UpdatedAt:      delivery.UpdatedAt,
	}
}

func deliveryFromModel(model WebhookDeliveryModel) domain.WebhookDelivery {
	return domain.WebhookDelivery{
		ID:             model.ID,
		WebhookID:      model.WebhookID,
		EventType:      domain.EventType(model.EventType),
		Payload:        model.Payload,
		Status:         domain.DeliveryStatus(model.Status),
		Attempts:       model.Attempts,
		NextRetryAt:    model.NextRetryAt,
		ResponseStatus: model.ResponseStatus,
		ResponseBody:   model.ResponseBody,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}
