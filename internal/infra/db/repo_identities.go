package db

import (
	"context"
	"errors"
	"time"

	"daonbridge/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IdentityRepository struct {
	db *gorm.DB
}

func NewIdentityRepository(db *gorm.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// Upsert creates the identity on first reference and bumps updated_at on
// every later one. The composite unique index makes duplicates impossible
// under concurrent resolution.
func (r *IdentityRepository) Upsert(ctx context.Context, identity domain.FederatedIdentity) (*domain.FederatedIdentity, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	now := time.Now().UTC()
	model := FederatedIdentityModel{
		ID:        identity.ID,
		Username:  identity.Username,
		Domain:    identity.Domain,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}, {Name: "domain"}},
		DoUpdates: clause.Assignments(map[string]any{"updated_at": now}),
	}).Create(&model).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, identity.Username, identity.Domain)
}

func (r *IdentityRepository) Get(ctx context.Context, username, identityDomain string) (*domain.FederatedIdentity, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model FederatedIdentityModel
	err := r.db.WithContext(ctx).
		First(&model, "username = ? AND domain = ?", username, identityDomain).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &domain.FederatedIdentity{
		ID:        model.ID,
		Username:  model.Username,
		Domain:    model.Domain,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}, nil
}

func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*domain.FederatedIdentity, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model FederatedIdentityModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &domain.FederatedIdentity{
		ID:        model.ID,
		Username:  model.Username,
		Domain:    model.Domain,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}, nil
}
