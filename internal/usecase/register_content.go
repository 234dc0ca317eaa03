package usecase

import (
	"context"
	"errors"
	"time"

	"daonbridge/internal/domain"
	"daonbridge/internal/infra/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RegisterContentRequest struct {
	Broker      domain.Broker
	Username    string
	Content     []byte
	ContentHash string
	License     domain.License
	Title       string
	WordCount   int
	Attestation domain.PlatformAttestation
}

type RegisterContentResponse struct {
	Record    domain.ContentOwnership
	Duplicate bool
}

// RegisterContent persists the ownership record locally first and submits it
// to the external ledger best-effort afterward. Ledger failure never fails
// the call.
type RegisterContent struct {
	Content  ContentRepository
	Resolver *IdentityResolver
	Ledger   domain.LedgerClient
	Events   EventSink
	Log      *zap.Logger
	Clock    Clock
	Async    func(func())
}

func (uc *RegisterContent) Execute(ctx context.Context, req RegisterContentRequest) (*RegisterContentResponse, error) {
	if err := domain.ValidateLicense(req.License); err != nil {
		return nil, err
	}
	contentHash := req.ContentHash
	if len(req.Content) > 0 {
		contentHash = domain.ComputeContentHash(req.Content)
	}
	if err := domain.ValidateContentHash(contentHash); err != nil {
		return nil, err
	}

	identity, err := uc.Resolver.Resolve(ctx, req.Username, req.Broker.Domain)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	// Timestamp correlation only: the platform publish date may not be in
	// the future relative to registration.
	if req.Attestation.PublishDate != nil && now.Before(*req.Attestation.PublishDate) {
		return nil, domain.ErrBackdated
	}

	record := domain.ContentOwnership{
		ID:              uuid.NewString(),
		ContentHash:     contentHash,
		OwnerID:         identity.ID,
		OwnerKey:        identity.Key(),
		License:         req.License,
		Title:           req.Title,
		WordCount:       req.WordCount,
		RegisteredAt:    now,
		Attestation:     req.Attestation,
		LedgerSyncState: domain.LedgerSyncPending,
		CreatedAt:       now,
	}

	if err := uc.Content.Create(ctx, record); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			existing, getErr := uc.Content.GetByHash(ctx, contentHash)
			if getErr != nil {
				return nil, getErr
			}
			return &RegisterContentResponse{Record: *existing, Duplicate: true}, nil
		}
		return nil, err
	}

	uc.async(func() { uc.submitToLedger(record) })
	uc.Events.Dispatch(ctx, domain.Event{
		Type:       domain.EventContentProtected,
		BrokerID:   req.Broker.ID,
		OccurredAt: now,
		Data: map[string]any{
			"content_hash": record.ContentHash,
			"owner":        record.OwnerKey,
			"license":      string(record.License),
		},
	})
	return &RegisterContentResponse{Record: record}, nil
}

func (uc *RegisterContent) submitToLedger(record domain.ContentOwnership) {
	if uc.Ledger == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	txRef, err := uc.Ledger.RegisterContent(ctx, record)
	if err != nil {
		metrics.LedgerSubmissionsTotal.WithLabelValues("failed").Inc()
		uc.Log.Warn("ledger submission failed, reconciler will retry",
			zap.String("content_hash", record.ContentHash), zap.Error(err))
		if updateErr := uc.Content.UpdateLedgerSync(ctx, record.ContentHash, domain.LedgerSyncFailed, ""); updateErr != nil {
			uc.Log.Warn("mark ledger sync failed", zap.Error(updateErr))
		}
		return
	}
	metrics.LedgerSubmissionsTotal.WithLabelValues("confirmed").Inc()
	if err := uc.Content.UpdateLedgerSync(ctx, record.ContentHash, domain.LedgerSyncConfirmed, txRef); err != nil {
		uc.Log.Warn("mark ledger sync confirmed", zap.Error(err))
	}
}

func (uc *RegisterContent) async(fn func()) {
	if uc.Async != nil {
		uc.Async(fn)
		return
	}
	go fn()
}

func (uc *RegisterContent) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock().UTC()
	}
	return time.Now().UTC()
}
