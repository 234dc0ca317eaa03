package webhooks

import (
	"context"
	"encoding/json"
	"time"

	"daonbridge/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type webhookSource interface {
	ListEnabledForEvent(ctx context.Context, brokerID string, event domain.EventType) ([]domain.Webhook, error)
}

type deliveryQueue interface {
	Enqueue(ctx context.Context, delivery domain.WebhookDelivery) error
}

// Dispatcher fans a domain event out to each matching enabled webhook as a
// pending delivery row. Enqueueing is cheap and synchronous; the network
// work happens on the delivery worker.
type Dispatcher struct {
	Webhooks webhookSource
	Queue    deliveryQueue
	Log      *zap.Logger
}

type deliveryPayload struct {
	Event     string         `json:"event"`
	Timestamp string         `json:"timestamp"`
	Data      map[string]any `json:"data"`
	BrokerID  string         `json:"broker_id"`
}

// Dispatch never fails the caller: queueing errors are logged and swallowed,
// matching the fire-and-forget contract of domain events.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.Event) {
	webhooks, err := d.Webhooks.ListEnabledForEvent(ctx, event.BrokerID, event.Type)
	if err != nil {
		d.Log.Warn("list webhooks for event",
			zap.String("event", string(event.Type)), zap.Error(err))
		return
	}
	if len(webhooks) == 0 {
		return
	}
	payload, err := json.Marshal(deliveryPayload{
		Event:     string(event.Type),
		Timestamp: event.OccurredAt.UTC().Format(time.RFC3339),
		Data:      event.Data,
		BrokerID:  event.BrokerID,
	})
	if err != nil {
		d.Log.Warn("marshal event payload", zap.Error(err))
		return
	}
	now := time.Now().UTC()
	for _, webhook := range webhooks {
		delivery := domain.WebhookDelivery{
			ID:        uuid.NewString(),
			WebhookID: webhook.ID,
			EventType: event.Type,
			Payload:   payload,
			Status:    domain.DeliveryPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := d.Queue.Enqueue(ctx, delivery); err != nil {
			d.Log.Warn("enqueue delivery",
				zap.String("webhook_id", webhook.ID), zap.Error(err))
		}
	}
}
