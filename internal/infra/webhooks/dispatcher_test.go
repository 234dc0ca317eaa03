package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"daonbridge/internal/domain"

	"go.uber.org/zap"
)

type fakeWebhookSource struct {
	webhooks []domain.Webhook
	err      error
}

func (s *fakeWebhookSource) ListEnabledForEvent(ctx context.Context, brokerID string, event domain.EventType) ([]domain.Webhook, error) {
	if s.err != nil {
		return nil, s.err
	}
	matched := make([]domain.Webhook, 0, len(s.webhooks))
	for _, webhook := range s.webhooks {
		if webhook.BrokerID == brokerID && webhook.Enabled && webhook.SubscribedTo(event) {
			matched = append(matched, webhook)
		}
	}
	return matched, nil
}

type fakeQueue struct {
	enqueued []domain.WebhookDelivery
	err      error
}

func (q *fakeQueue) Enqueue(ctx context.Context, delivery domain.WebhookDelivery) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, delivery)
	return nil
}

func TestDispatchEnqueuesPerMatchingWebhook(t *testing.T) {
	source := &fakeWebhookSource{webhooks: []domain.Webhook{
		{ID: "hook-1", BrokerID: "broker-1", Enabled: true, Events: []domain.EventType{domain.EventContentProtected}},
		{ID: "hook-2", BrokerID: "broker-1", Enabled: true, Events: []domain.EventType{domain.EventContentProtected, domain.EventContentTransferred}},
		{ID: "hook-3", BrokerID: "broker-1", Enabled: false, Events: []domain.EventType{domain.EventContentProtected}},
		{ID: "hook-4", BrokerID: "broker-1", Enabled: true, Events: []domain.EventType{domain.EventContentTransferred}},
		{ID: "hook-5", BrokerID: "broker-2", Enabled: true, Events: []domain.EventType{domain.EventContentProtected}},
	}}
	queue := &fakeQueue{}
	dispatcher := &Dispatcher{Webhooks: source, Queue: queue, Log: zap.NewNop()}

	occurred := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	dispatcher.Dispatch(context.Background(), domain.Event{
		Type:       domain.EventContentProtected,
		BrokerID:   "broker-1",
		OccurredAt: occurred,
		Data:       map[string]any{"content_hash": "sha256:abc", "owner": "alice@ao3.org"},
	})

	if len(queue.enqueued) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(queue.enqueued))
	}
	for _, delivery := range queue.enqueued {
		if delivery.Status != domain.DeliveryPending {
			t.Fatalf("expected pending delivery, got %s", delivery.Status)
		}
		var payload struct {
			Event     string         `json:"event"`
			Timestamp string         `json:"timestamp"`
			Data      map[string]any `json:"data"`
			BrokerID  string         `json:"broker_id"`
		}
		if err := json.Unmarshal(delivery.Payload, &payload); err != nil {
			t.Fatalf("payload is not valid JSON: %v", err)
		}
		if payload.Event != "content.protected" || payload.BrokerID != "broker-1" {
			t.Fatalf("unexpected payload %+v", payload)
		}
		if payload.Timestamp != occurred.Format(time.RFC3339) {
			t.Fatalf("unexpected timestamp %q", payload.Timestamp)
		}
		if payload.Data["owner"] != "alice@ao3.org" {
			t.Fatalf("unexpected data %+v", payload.Data)
		}
	}
}

func TestDispatchSwallowsErrors(t *testing.T) {
	dispatcher := &Dispatcher{
		Webhooks: &fakeWebhookSource{err: errors.New("db down")},
		Queue:    &fakeQueue{},
		Log:      zap.NewNop(),
	}
	// Must not panic or propagate.
	dispatcher.Dispatch(context.Background(), domain.Event{Type: domain.EventContentProtected, BrokerID: "broker-1"})

	queue := &fakeQueue{err: errors.New("insert failed")}
	dispatcher = &Dispatcher{
		Webhooks: &fakeWebhookSource{webhooks: []domain.Webhook{{ID: "hook-1", BrokerID: "broker-1", Enabled: true, Events: []domain.EventType{domain.EventContentProtected}}}},
		Queue:    queue,
		Log:      zap.NewNop(),
	}
	dispatcher.Dispatch(context.Background(), domain.Event{Type: domain.EventContentProtected, BrokerID: "broker-1"})
}
