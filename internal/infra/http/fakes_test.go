package http

import (
	"context"
	"sync"
	"time"

	"daonbridge/internal/domain"
)

type stubBrokerRepo struct {
	mu      sync.Mutex
	brokers map[string]domain.Broker
}

func newStubBrokerRepo() *stubBrokerRepo {
	return &stubBrokerRepo{brokers: make(map[string]domain.Broker)}
}

func (r *stubBrokerRepo) Create(ctx context.Context, broker domain.Broker) error {
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

func (r *stubBrokerRepo) GetByID(ctx context.Context, id string) (*domain.Broker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	broker, ok := r.brokers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &broker, nil
}

func (r *stubBrokerRepo) GetByDomain(ctx context.Context, brokerDomain string) (*domain.Broker, error) {
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

func (r *stubBrokerRepo) UpdateStatus(ctx context.Context, id string, status domain.CertificationStatus) error {
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

type stubKeyRepo struct {
	mu   sync.Mutex
	keys map[string]domain.APIKey
}

func newStubKeyRepo() *stubKeyRepo {
	return &stubKeyRepo{keys: make(map[string]domain.APIKey)}
}

func (r *stubKeyRepo) Create(ctx context.Context, key domain.APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[key.ID] = key
	return nil
}

func (r *stubKeyRepo) GetByID(ctx context.Context, id string) (*domain.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.keys[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &key, nil
}

func (r *stubKeyRepo) GetByPrefix(ctx context.Context, prefix string) (*domain.APIKey, error) {
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

func (r *stubKeyRepo) Revoke(ctx context.Context, id, reason string) error {
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

func (r *stubKeyRepo) TouchUsage(ctx context.Context, id string, usedAt time.Time) error {
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

type stubIdentityRepo struct {
	mu         sync.Mutex
	identities map[string]domain.FederatedIdentity
}

func newStubIdentityRepo() *stubIdentityRepo {
	return &stubIdentityRepo{identities: make(map[string]domain.FederatedIdentity)}
}

func (r *stubIdentityRepo) Upsert(ctx context.Context, identity domain.FederatedIdentity) (*domain.FederatedIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := domain.IdentityKey(identity.Username, identity.Domain)
	if existing, ok := r.identities[key]; ok {
		return &existing, nil
	}
	r.identities[key] = identity
	return &identity, nil
}

func (r *stubIdentityRepo) Get(ctx context.Context, username, identityDomain string) (*domain.FederatedIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	identity, ok := r.identities[domain.IdentityKey(username, identityDomain)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &identity, nil
}

func (r *stubIdentityRepo) GetByID(ctx context.Context, id string) (*domain.FederatedIdentity, error) {
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

type stubContentRepo struct {
	mu        sync.Mutex
	records   map[string]domain.ContentOwnership
	transfers []domain.OwnershipTransfer
}

func newStubContentRepo() *stubContentRepo {
	return &stubContentRepo{records: make(map[string]domain.ContentOwnership)}
}

func (r *stubContentRepo) Create(ctx context.Context, record domain.ContentOwnership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[record.ContentHash]; ok {
		return domain.ErrDuplicate
	}
	r.records[record.ContentHash] = record
	return nil
}

func (r *stubContentRepo) GetByHash(ctx context.Context, contentHash string) (*domain.ContentOwnership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[contentHash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

func (r *stubContentRepo) Transfer(ctx context.Context, contentHash, fromOwnerID string, transfer domain.OwnershipTransfer, newOwnerID string) error {
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

func (r *stubContentRepo) UpdateLedgerSync(ctx context.Context, contentHash string, state domain.LedgerSyncState, txRef string) error {
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

func (r *stubContentRepo) ListTransfers(ctx context.Context, contentHash string) ([]domain.OwnershipTransfer, error) {
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

type stubSecurityEventRepo struct {
	mu     sync.Mutex
	events []domain.SecurityEvent
}

func (r *stubSecurityEventRepo) Append(ctx context.Context, event domain.SecurityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *stubSecurityEventRepo) CountSevereSince(ctx context.Context, brokerID string, since time.Time) (int64, error) {
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

func (r *stubSecurityEventRepo) byType(eventType domain.SecurityEventType) []domain.SecurityEvent {
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

type stubUsageRepo struct {
	mu      sync.Mutex
	records []domain.UsageRecord
}

func (r *stubUsageRepo) Record(ctx context.Context, sample domain.UsageSample) error {
	return nil
}

func (r *stubUsageRepo) Query(ctx context.Context, brokerID string, from, to time.Time) ([]domain.UsageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.UsageRecord, 0)
	for _, record := range r.records {
		if record.BrokerID != brokerID {
			continue
		}
		if !from.IsZero() && record.HourBucket.Before(from) {
			continue
		}
		if !to.IsZero() && record.HourBucket.After(to) {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

type stubWebhookStore struct {
	mu    sync.Mutex
	hooks map[string]domain.Webhook
}

func newStubWebhookStore() *stubWebhookStore {
	return &stubWebhookStore{hooks: make(map[string]domain.Webhook)}
}

func (s *stubWebhookStore) Create(ctx context.Context, webhook domain.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[webhook.ID] = webhook
	return nil
}

func (s *stubWebhookStore) GetByID(ctx context.Context, id string) (*domain.Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	webhook, ok := s.hooks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &webhook, nil
}

func (s *stubWebhookStore) ListByBroker(ctx context.Context, brokerID string) ([]domain.Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Webhook, 0)
	for _, webhook := range s.hooks {
		if webhook.BrokerID == brokerID {
			out = append(out, webhook)
		}
	}
	return out, nil
}

func (s *stubWebhookStore) Delete(ctx context.Context, brokerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	webhook, ok := s.hooks[id]
	if !ok || webhook.BrokerID != brokerID {
		return domain.ErrNotFound
	}
	delete(s.hooks, id)
	return nil
}

func (s *stubWebhookStore) SetEnabled(ctx context.Context, brokerID, id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	webhook, ok := s.hooks[id]
	if !ok || webhook.BrokerID != brokerID {
		return domain.ErrNotFound
	}
	webhook.Enabled = enabled
	s.hooks[id] = webhook
	return nil
}

type noopSink struct{}

func (noopSink) Dispatch(ctx context.Context, event domain.Event) {}

type stubDeliveryLog struct {
	mu         sync.Mutex
	deliveries []domain.WebhookDelivery
}

func (s *stubDeliveryLog) add(delivery domain.WebhookDelivery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append(s.deliveries, delivery)
}

func (s *stubDeliveryLog) ListByWebhook(ctx context.Context, webhookID string, limit int) ([]domain.WebhookDelivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.WebhookDelivery, 0)
	for _, delivery := range s.deliveries {
		if delivery.WebhookID == webhookID && len(out) < limit {
			out = append(out, delivery)
		}
	}
	return out, nil
}
