package db

import (
	"context"
	"errors"
	"time"

	"daonbridge/internal/domain"

	"gorm.io/gorm"
)

type APIKeyRepository struct {
	db *gorm.DB
}

func NewAPIKeyRepository(db *gorm.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) Create(ctx context.Context, key domain.APIKey) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := apiKeyModelFromDomain(key)
	err := r.db.WithContext(ctx).Create(&model).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return domain.ErrDuplicate
	}
	return err
}

func (r *APIKeyRepository) GetByID(ctx context.Context, id string) (*domain.APIKey, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model APIKeyModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	key := apiKeyFromModel(model)
	return &key, nil
}

func (r *APIKeyRepository) GetByPrefix(ctx context.Context, prefix string) (*domain.APIKey, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model APIKeyModel
	err := r.db.WithContext(ctx).First(&model, "prefix = ?", prefix).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	key := apiKeyFromModel(model)
	return &key, nil
}

func (r *APIKeyRepository) Revoke(ctx context.Context, id, reason string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).Model(&APIKeyModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"revoked": true, "revoked_reason": reason})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// TouchUsage bumps last_used_at and total_requests. Called off the request
// path; errors are the caller's to swallow.
func (r *APIKeyRepository) TouchUsage(ctx context.Context, id string, usedAt time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Model(&APIKeyModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_used_at":   usedAt.UTC(),
			"total_requests": gorm.Expr("total_requests + 1"),
		}).Error
}

func apiKeyModelFromDomain(key domain.APIKey) APIKeyModel {
	return APIKeyModel{
		ID:            key.ID,
		BrokerID:      key.BrokerID,
		Prefix:        key.Prefix,
		SecretHash:    key.SecretHash,
		SecretSalt:    key.SecretSalt,
		Scopes:        joinScopes(key.Scopes),
		ExpiresAt:     key.ExpiresAt,
		Revoked:       key.Revoked,
		RevokedReason: key.RevokedReason,
		LastUsedAt:    key.LastUsedAt,
		TotalRequests: key.TotalRequests,
		CreatedAt:     key.CreatedAt,
	}
}

func apiKeyFromModel(model APIKeyModel) domain.APIKey {
	return domain.APIKey{
		ID:            model.ID,
		BrokerID:      model.BrokerID,
		Prefix:        model.Prefix,
		SecretHash:    model.SecretHash,
		SecretSalt:    model.SecretSalt,
		Scopes:        splitScopes(model.Scopes),
		ExpiresAt:     model.ExpiresAt,
		Revoked:       model.Revoked,
		RevokedReason: model.RevokedReason,
		LastUsedAt:    model.LastUsedAt,
		TotalRequests: model.TotalRequests,
		CreatedAt:     model.CreatedAt,
	}
}
