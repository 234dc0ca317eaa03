package usecase

import (
	"context"
	"sync"
	"time"

	"daonbridge/internal/domain"
)

func syncRunner(fn func()) { fn() }

type memBrokerRepo struct {
	mu      sync.Mutex
	brokers map[string]domain.Broker
}

func newMemBrokerRepo() *memBrokerRepo {
	return &memBrokerRepo{brokers: make(map[string]domain.Broker)}
}

func (r *memBrokerRepo) Create(ctx context.Context, broker domain.Broker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.brokers {
		if existing.Domain == broker.Domain {
			return domain.ErrDuplicate
		}
	}
	r.brokers[broker.ID] = broker
	return nil
}

func (r *memBrokerRepo) GetByID(ctx context.Context, id string) (*domain.Broker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	broker, ok := r.brokers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &broker, nil
}

func (r *memBrokerRepo) GetByDomain(ctx context.Context, brokerDomain string) (*domain.Broker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, broker := range r.brokers {
		if broker.Domain == brokerDomain {
			copied := broker
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memBrokerRepo) UpdateStatus(ctx context.Context, id string, status domain.CertificationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	broker, ok := r.brokers[id]
	if !ok {
		return domain.ErrNotFound
	}
	broker.Status = status
	r.brokers[id] = broker
	return nil
}

type memKeyRepo struct {
	mu   sync.Mutex
	keys map[string]domain.APIKey
}

func newMemKeyRepo() *memKeyRepo {
	return &memKeyRepo{keys: make(map[string]domain.APIKey)}
}

func (r *memKeyRepo) Create(ctx context.Context, key domain.APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[key.ID] = key
	return nil
}

func (r *memKeyRepo) GetByID(ctx context.Context, id string) (*domain.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.keys[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &key, nil
}

func (r *memKeyRepo) GetByPrefix(ctx context.Context, prefix string) (*domain.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range r.keys {
		if key.Prefix == prefix {
			copied := key
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memKeyRepo) Revoke(ctx context.Context, id, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.keys[id]
	if !ok {
		return domain.ErrNotFound
	}
	key.Revoked = true
	key.RevokedReason = reason
	r.keys[id] = key
	return nil
}

func (r *memKeyRepo) TouchUsage(ctx context.Context, id string, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.keys[id]
	if !ok {
		return domain.ErrNotFound
	}
	key.LastUsedAt = &usedAt
	key.TotalRequests++
	r.keys[id] = key
	return nil
}

type memIdentityRepo struct {
	mu         sync.Mutex
	identities map[string]domain.FederatedIdentity
}

func newMemIdentityRepo() *memIdentityRepo {
	return &memIdentityRepo{identities: make(map[string]domain.FederatedIdentity)}
}

func (r *memIdentityRepo) Upsert(ctx context.Context, identity domain.FederatedIdentity) (*domain.FederatedIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := domain.IdentityKey(identity.Username, identity.Domain)
	if existing, ok := r.identities[key]; ok {
		return &existing, nil
	}
	r.identities[key] = identity
	return &identity, nil
}

func (r *memIdentityRepo) Get(ctx context.Context, username, identityDomain string) (*domain.FederatedIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	identity, ok := r.identities[domain.IdentityKey(username, identityDomain)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &identity, nil
}

func (r *memIdentityRepo) GetByID(ctx context.Context, id string) (*domain.FederatedIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, identity := range r.identities {
		if identity.ID == id {
			copied := identity
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memContentRepo struct {
	mu        sync.Mutex
	records   map[string]domain.ContentOwnership
	transfers []domain.OwnershipTransfer
}

func newMemContentRepo() *memContentRepo {
	return &memContentRepo{records: make(map[string]domain.ContentOwnership)}
}

func (r *memContentRepo) Create(ctx context.Context, record domain.ContentOwnership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[record.ContentHash]; ok {
		return domain.ErrDuplicate
	}
	r.records[record.ContentHash] = record
	return nil
}

func (r *memContentRepo) GetByHash(ctx context.Context, contentHash string) (*domain.ContentOwnership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[contentHash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

func (r *memContentRepo) Transfer(ctx context.Context, contentHash, fromOwnerID string, transfer domain.OwnershipTransfer, newOwnerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[contentHash]
	if !ok {
		return domain.ErrNotFound
	}
	if record.OwnerID != fromOwnerID {
		return domain.ErrNotOwner
	}
	record.OwnerID = newOwnerID
	record.OwnerKey = transfer.ToIdentity
	r.records[contentHash] = record
	r.transfers = append(r.transfers, transfer)
	return nil
}

func (r *memContentRepo) UpdateLedgerSync(ctx context.Context, contentHash string, state domain.LedgerSyncState, txRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[contentHash]
	if !ok {
		return domain.ErrNotFound
	}
	record.LedgerSyncState = state
	record.LedgerTxRef = txRef
	r.records[contentHash] = record
	return nil
}

func (r *memContentRepo) ListTransfers(ctx context.Context, contentHash string) ([]domain.OwnershipTransfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.OwnershipTransfer, 0)
	for _, transfer := range r.transfers {
		if transfer.ContentHash == contentHash {
			out = append(out, transfer)
		}
	}
	return out, nil
}

type memSecurityEventRepo struct {
	mu     sync.Mutex
	events []domain.SecurityEvent
}

func (r *memSecurityEventRepo) Append(ctx context.Context, event domain.SecurityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *memSecurityEventRepo) CountSevereSince(ctx context.Context, brokerID string, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, event := range r.events {
		if event.BrokerID == brokerID && event.Severity == domain.SeveritySevere && !event.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *memSecurityEventRepo) byType(eventType domain.SecurityEventType) []domain.SecurityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.SecurityEvent, 0)
	for _, event := range r.events {
		if event.EventType == eventType {
			out = append(out, event)
		}
	}
	return out
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *recordingSink) Dispatch(ctx context.Context, event domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

type fakeLedger struct {
	mu        sync.Mutex
	registers int
	transfers int
	txRef     string
	err       error
}

func (l *fakeLedger) RegisterContent(ctx context.Context, record domain.ContentOwnership) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.registers++
	if l.err != nil {
		return "", l.err
	}
	return l.txRef, nil
}

func (l *fakeLedger) TransferOwnership(ctx context.Context, transfer domain.OwnershipTransfer) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transfers++
	if l.err != nil {
		return "", l.err
	}
	return l.txRef, nil
}
