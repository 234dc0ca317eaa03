package db

import (
	"context"
	"errors"
	"time"

	"daonbridge/internal/domain"

	"gorm.io/gorm"
)

type BrokerRepository struct {
	db *gorm.DB
}

func NewBrokerRepository(db *gorm.DB) *BrokerRepository {
	return &BrokerRepository{db: db}
}

func (r *BrokerRepository) Create(ctx context.Context, broker domain.Broker) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := brokerModelFromDomain(broker)
	err := r.db.WithContext(ctx).Create(&model).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return domain.ErrDuplicate
	}
	return err
}

func (r *BrokerRepository) GetByID(ctx context.Context, id string) (*domain.Broker, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model BrokerModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	broker := brokerFromModel(model)
	return &broker, nil
}

func (r *BrokerRepository) GetByDomain(ctx context.Context, brokerDomain string) (*domain.Broker, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model BrokerModel
	err := r.db.WithContext(ctx).First(&model, "domain = ?", brokerDomain).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	broker := brokerFromModel(model)
	return &broker, nil
}

func (r *BrokerRepository) UpdateStatus(ctx context.Context, id string, status domain.CertificationStatus) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).Model(&BrokerModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func brokerModelFromDomain(broker domain.Broker) BrokerModel {
	return BrokerModel{
		ID:              broker.ID,
		Domain:          broker.Domain,
		Name:            broker.Name,
		Tier:            string(broker.Tier),
		Status:          string(broker.Status),
		Enabled:         broker.Enabled,
		PublicKey:       broker.PublicKey,
		RateLimitHourly: broker.RateLimitHourly,
		RateLimitDaily:  broker.RateLimitDaily,
		CreatedAt:       broker.CreatedAt,
		UpdatedAt:       broker.UpdatedAt,
	}
}

func brokerFromModel(model BrokerModel) domain.Broker {
	return domain.Broker{
		ID:              model.ID,
		Domain:          model.Domain,
		Name:            model.Name,
		Tier:            domain.CertificationTier(model.Tier),
		Status:          domain.CertificationStatus(model.Status),
		Enabled:         model.Enabled,
		PublicKey:       model.PublicKey,
		RateLimitHourly: model.RateLimitHourly,
		RateLimitDaily:  model.RateLimitDaily,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}
