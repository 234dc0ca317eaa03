package db

import (
	"context"
	"errors"

	"daonbridge/internal/domain"

	"gorm.io/gorm"
)

type ContentRepository struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

func (r *ContentRepository) Create(ctx context.Context, record domain.ContentOwnership) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := contentModelFromDomain(record)
	err := r.db.WithContext(ctx).Create(&model).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return domain.ErrDuplicate
	}
	return err
}

func (r *ContentRepository) GetByHash(ctx context.Context, contentHash string) (*domain.ContentOwnership, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model ContentOwnershipModel
	err := r.db.WithContext(ctx).First(&model, "content_hash = ?", contentHash).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	record := contentFromModel(model)

	var owner FederatedIdentityModel
	if err := r.db.WithContext(ctx).First(&owner, "id = ?", model.OwnerID).Error; err == nil {
		record.OwnerKey = domain.IdentityKey(owner.Username, owner.Domain)
	}
	return &record, nil
}

// Transfer atomically reassigns the owner and appends the transfer audit
// row. Both commit together or not at all. The owner update is conditioned
// on the expected current owner so a concurrent transfer loses cleanly.
func (r *ContentRepository) Transfer(ctx context.Context, contentHash, fromOwnerID string, transfer domain.OwnershipTransfer, newOwnerID string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&ContentOwnershipModel{}).
			Where("content_hash = ? AND owner_id = ?", contentHash, fromOwnerID).
			Update("owner_id", newOwnerID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrNotOwner
		}
		model := OwnershipTransferModel{
			ID:           transfer.ID,
			ContentHash:  transfer.ContentHash,
			FromIdentity: transfer.FromIdentity,
			ToIdentity:   transfer.ToIdentity,
			Reason:       transfer.Reason,
			BrokerDomain: transfer.BrokerDomain,
			CreatedAt:    transfer.CreatedAt,
		}
		return tx.Create(&model).Error
	})
}

func (r *ContentRepository) UpdateLedgerSync(ctx context.Context, contentHash string, state domain.LedgerSyncState, txRef string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	updates := map[string]any{"ledger_sync_state": string(state)}
	if txRef != "" {
		updates["ledger_tx_ref"] = txRef
	}
	return r.db.WithContext(ctx).Model(&ContentOwnershipModel{}).
		Where("content_hash = ?", contentHash).
		Updates(updates).Error
}

// ListUnsynced returns records still pending or failed ledger submission,
// oldest first, for the reconciliation worker.
func (r *ContentRepository) ListUnsynced(ctx context.Context, limit int) ([]domain.ContentOwnership, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []ContentOwnershipModel
	err := r.db.WithContext(ctx).
		Where("ledger_sync_state IN ?", []string{string(domain.LedgerSyncPending), string(domain.LedgerSyncFailed)}).
		Order("registered_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.ContentOwnership, 0, len(models))
	for _, model := range models {
		out = append(out, contentFromModel(model))
	}
	return out, nil
}

func (r *ContentRepository) ListTransfers(ctx context.Context, contentHash string) ([]domain.OwnershipTransfer, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []OwnershipTransferModel
	err := r.db.WithContext(ctx).
		Where("content_hash = ?", contentHash).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.OwnershipTransfer, 0, len(models))
	for _, model := range models {
		out = append(out, domain.OwnershipTransfer{
			ID:           model.ID,
			ContentHash:  model.ContentHash,
			FromIdentity: model.FromIdentity,
			ToIdentity:   model.ToIdentity,
			Reason:       model.Reason,
			BrokerDomain: model.BrokerDomain,
			CreatedAt:    model.CreatedAt,
		})
	}
	return out, nil
}

func contentModelFromDomain(record domain.ContentOwnership) ContentOwnershipModel {
	return ContentOwnershipModel{
		ID:                  record.ID,
		ContentHash:         record.ContentHash,
		OwnerID:             record.OwnerID,
		License:             string(record.License),
		Title:               record.Title,
		WordCount:           record.WordCount,
		RegisteredAt:        record.RegisteredAt,
		PlatformContentID:   record.Attestation.ContentID,
		PlatformURL:         record.Attestation.URL,
		PlatformPublishDate: record.Attestation.PublishDate,
		LedgerSyncState:     string(record.LedgerSyncState),
		LedgerTxRef:         record.LedgerTxRef,
		CreatedAt:           record.CreatedAt,
	}
}

func contentFromModel(model ContentOwnershipModel) domain.ContentOwnership {
	return domain.ContentOwnership{
		ID:           model.ID,
		ContentHash:  model.ContentHash,
		OwnerID:      model.OwnerID,
		License:      domain.License(model.License),
		Title:        model.Title,
		WordCount:    model.WordCount,
		RegisteredAt: model.RegisteredAt,
		Attestation: domain.PlatformAttestation{
			ContentID:   model.PlatformContentID,
			URL:         model.PlatformURL,
			PublishDate: model.PlatformPublishDate,
		},
		LedgerSyncState: domain.LedgerSyncState(model.LedgerSyncState),
		LedgerTxRef:     model.LedgerTxRef,
		CreatedAt:       model.CreatedAt,
	}
}
