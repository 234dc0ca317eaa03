package usecase

import (
	"context"
	"time"

	"daonbridge/internal/domain"
)

type Clock func() time.Time

type BrokerRepository interface {
	Create(ctx context.Context, broker domain.Broker) error
	GetByID(ctx context.Context, id string) (*domain.Broker, error)
	GetByDomain(ctx context.Context, brokerDomain string) (*domain.Broker, error)
	UpdateStatus(ctx context.Context, id string, status domain.CertificationStatus) error
}

type APIKeyRepository interface {
	Create(ctx context.Context, key domain.APIKey) error
	GetByID(ctx context.Context, id string) (*domain.APIKey, error)
	GetByPrefix(ctx context.Context, prefix string) (*domain.APIKey, error)
	Revoke(ctx context.Context, id, reason string) error
	TouchUsage(ctx context.Context, id string, usedAt time.Time) error
}

type IdentityRepository interface {
	Upsert(ctx context.Context, identity domain.FederatedIdentity) (*domain.FederatedIdentity, error)
	Get(ctx context.Context, username, identityDomain string) (*domain.FederatedIdentity, error)
	GetByID(ctx context.Context, id string) (*domain.FederatedIdentity, error)
}

type ContentRepository interface {
	Create(ctx context.Context, record domain.ContentOwnership) error
	GetByHash(ctx context.Context, contentHash string) (*domain.ContentOwnership, error)
	Transfer(ctx context.Context, contentHash, fromOwnerID string, transfer domain.OwnershipTransfer, newOwnerID string) error
	UpdateLedgerSync(ctx context.Context, contentHash string, state domain.LedgerSyncState, txRef string) error
	ListTransfers(ctx context.Context, contentHash string) ([]domain.OwnershipTransfer, error)
}

type SecurityEventRepository interface {
	Append(ctx context.Context, event domain.SecurityEvent) error
	CountSevereSince(ctx context.Context, brokerID string, since time.Time) (int64, error)
}

type UsageRepository interface {
	Record(ctx context.Context, sample domain.UsageSample) error
	Query(ctx context.Context, brokerID string, from, to time.Time) ([]domain.UsageRecord, error)
}

// EventSink receives domain events for webhook fan-out. Implementations
// must be cheap and must never fail the caller.
type EventSink interface {
	Dispatch(ctx context.Context, event domain.Event)
}
