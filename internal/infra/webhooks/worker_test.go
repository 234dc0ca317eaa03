package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"daonbridge/internal/domain"

	"go.uber.org/zap"
)

type fakeDeliveryStore struct {
	mu      sync.Mutex
	due     []domain.WebhookDelivery
	updated []domain.WebhookDelivery
}

func (s *fakeDeliveryStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.WebhookDelivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	due := s.due
	s.due = nil
	return due, nil
}

func (s *fakeDeliveryStore) Update(ctx context.Context, delivery domain.WebhookDelivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = append(s.updated, delivery)
	return nil
}

func (s *fakeDeliveryStore) last(t *testing.T) domain.WebhookDelivery {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.updated) == 0 {
		t.Fatal("no delivery updates recorded")
	}
	return s.updated[len(s.updated)-1]
}

type fakeWebhookStore struct {
	mu        sync.Mutex
	webhook   domain.Webhook
	successes int
	failures  int
	disabled  bool
}

func (s *fakeWebhookStore) GetByID(ctx context.Context, id string) (*domain.Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := s.webhook
	return &copied, nil
}

func (s *fakeWebhookStore) RecordSuccess(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successes++
	s.webhook.ConsecutiveFailures = 0
	return nil
}

func (s *fakeWebhookStore) RecordFailure(ctx context.Context, id, reason string, at time.Time, disableAfter int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
	s.webhook.ConsecutiveFailures++
	if s.webhook.ConsecutiveFailures >= disableAfter {
		s.webhook.Enabled = false
		s.disabled = true
		return true, nil
	}
	return false, nil
}

func newTestWorker(deliveries *fakeDeliveryStore, hooks *fakeWebhookStore, now time.Time) *Worker {
	worker := NewWorker(deliveries, hooks, WorkerConfig{
		Workers:        1,
		MaxAttempts:    5,
		DisableAfter:   3,
		AttemptTimeout: 2 * time.Second,
	}, zap.NewNop())
	worker.now = func() time.Time { return now }
	return worker
}

func TestWorkerDeliversAndSigns(t *testing.T) {
	var (
		mu       sync.Mutex
		gotBody  []byte
		gotHdrs  http.Header
		received bool
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, r.ContentLength)
		r.Body.Read(body)
		mu.Lock()
		gotBody = body
		gotHdrs = r.Header.Clone()
		received = true
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	now := time.Unix(1700000000, 0).UTC()
	deliveries := &fakeDeliveryStore{due: []domain.WebhookDelivery{{
		ID:        "delivery-1",
		WebhookID: "hook-1",
		EventType: domain.EventContentProtected,
		Payload:   []byte(`{"event":"content.protected"}`),
		Status:    domain.DeliveryPending,
	}}}
	hooks := &fakeWebhookStore{webhook: domain.Webhook{
		ID:      "hook-1",
		URL:     server.URL,
		Secret:  "0123456789abcdef0123456789abcdef",
		Enabled: true,
		Events:  []domain.EventType{domain.EventContentProtected},
	}}

	worker := newTestWorker(deliveries, hooks, now)
	worker.RunOnce(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if !received {
		t.Fatal("webhook endpoint never called")
	}
	if gotHdrs.Get(HeaderEvent) != "content.protected" {
		t.Fatalf("unexpected event header %q", gotHdrs.Get(HeaderEvent))
	}
	if gotHdrs.Get(HeaderDelivery) != "delivery-1" {
		t.Fatalf("unexpected delivery header %q", gotHdrs.Get(HeaderDelivery))
	}
	if !Verify(hooks.webhook.Secret, gotHdrs.Get(HeaderSignature), gotHdrs.Get(HeaderTimestamp), gotBody, now) {
		t.Fatal("delivery signature did not verify")
	}

	updated := deliveries.last(t)
	if updated.Status != domain.DeliveryDelivered {
		t.Fatalf("expected delivered, got %s", updated.Status)
	}
	if updated.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", updated.Attempts)
	}
	if hooks.successes != 1 {
		t.Fatalf("expected success recorded once, got %d", hooks.successes)
	}
}

func TestWorkerSchedulesRetryOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	now := time.Unix(1700000000, 0).UTC()
	deliveries := &fakeDeliveryStore{due: []domain.WebhookDelivery{{
		ID:        "delivery-1",
		WebhookID: "hook-1",
		EventType: domain.EventContentProtected,
		Payload:   []byte(`{}`),
		Status:    domain.DeliveryPending,
	}}}
	hooks := &fakeWebhookStore{webhook: domain.Webhook{
		ID: "hook-1", URL: server.URL, Secret: "0123456789abcdef0123456789abcdef", Enabled: true,
	}}

	worker := newTestWorker(deliveries, hooks, now)
	worker.RunOnce(context.Background())

	updated := deliveries.last(t)
	if updated.Status != domain.DeliveryRetrying {
		t.Fatalf("expected retrying, got %s", updated.Status)
	}
	if updated.NextRetryAt == nil {
		t.Fatal("expected a retry time")
	}
	// After the first failed attempt the next try comes one minute later.
	if want := now.Add(time.Minute); !updated.NextRetryAt.Equal(want) {
		t.Fatalf("expected retry at %v, got %v", want, *updated.NextRetryAt)
	}
	if hooks.failures != 1 {
		t.Fatalf("expected one failure recorded, got %d", hooks.failures)
	}
}

func TestWorkerMarksFailedAtMaxAttempts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	now := time.Unix(1700000000, 0).UTC()
	deliveries := &fakeDeliveryStore{due: []domain.WebhookDelivery{{
		ID:        "delivery-1",
		WebhookID: "hook-1",
		EventType: domain.EventContentProtected,
		Payload:   []byte(`{}`),
		Status:    domain.DeliveryRetrying,
		Attempts:  4,
	}}}
	hooks := &fakeWebhookStore{webhook: domain.Webhook{
		ID: "hook-1", URL: server.URL, Secret: "0123456789abcdef0123456789abcdef", Enabled: true,
	}}

	worker := newTestWorker(deliveries, hooks, now)
	worker.RunOnce(context.Background())

	updated := deliveries.last(t)
	if updated.Status != domain.DeliveryFailed {
		t.Fatalf("expected failed after final attempt, got %s", updated.Status)
	}
	if updated.NextRetryAt != nil {
		t.Fatal("failed delivery must not be rescheduled")
	}
}

func TestWorkerAutoDisablesAfterConsecutiveFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	now := time.Unix(1700000000, 0).UTC()
	hooks := &fakeWebhookStore{webhook: domain.Webhook{
		ID: "hook-1", URL: server.URL, Secret: "0123456789abcdef0123456789abcdef", Enabled: true,
		ConsecutiveFailures: 2,
	}}
	deliveries := &fakeDeliveryStore{due: []domain.WebhookDelivery{{
		ID: "delivery-1", WebhookID: "hook-1", EventType: domain.EventContentProtected, Payload: []byte(`{}`),
	}}}

	worker := newTestWorker(deliveries, hooks, now)
	worker.RunOnce(context.Background())

	if !hooks.disabled {
		t.Fatal("expected webhook to auto-disable at the failure threshold")
	}
}

func TestWorkerDropsDeliveryForDisabledWebhook(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	hooks := &fakeWebhookStore{webhook: domain.Webhook{ID: "hook-1", URL: "http://unused.invalid", Enabled: false}}
	deliveries := &fakeDeliveryStore{due: []domain.WebhookDelivery{{
		ID: "delivery-1", WebhookID: "hook-1", Payload: []byte(`{}`),
	}}}

	worker := newTestWorker(deliveries, hooks, now)
	worker.RunOnce(context.Background())

	updated := deliveries.last(t)
	if updated.Status != domain.DeliveryFailed {
		t.Fatalf("expected dropped delivery to be failed, got %s", updated.Status)
	}
	if updated.Attempts != 0 {
		t.Fatalf("dropped delivery must not consume attempts, got %d", updated.Attempts)
	}
}

func TestRetryDelaySchedule(t *testing.T) {
	want := []time.Duration{0, time.Minute, 5 * time.Minute, 30 * time.Minute, 2 * time.Hour}
	for attempts, expected := range want {
		if got := retryDelay(attempts); got != expected {
			t.Fatalf("attempt %d: expected %v, got %v", attempts, expected, got)
		}
	}
	if got := retryDelay(99); got != 2*time.Hour {
		t.Fatalf("overflow attempts should cap at the last delay, got %v", got)
	}
}
