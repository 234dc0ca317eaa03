package webhooks

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"daonbridge/internal/domain"
	"daonbridge/internal/infra/metrics"

	"go.uber.org/zap"
)

// retrySchedule is the delay before each retry attempt: the first attempt is
// immediate, then 1m, 5m, 30m, 2h. Past the end of the schedule the delivery
// is marked permanently failed.
var retrySchedule = []time.Duration{
	0,
	1 * time.Minute,
	5 * time.Minute,
	30 * time.Minute,
	2 * time.Hour,
}

type deliveryStore interface {
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.WebhookDelivery, error)
	Update(ctx context.Context, delivery domain.WebhookDelivery) error
}

type webhookStore interface {
	GetByID(ctx context.Context, id string) (*domain.Webhook, error)
	RecordSuccess(ctx context.Context, id string, at time.Time) error
	RecordFailure(ctx context.Context, id, reason string, at time.Time, disableAfter int) (bool, error)
}

type WorkerConfig struct {
	Workers        int
	PollInterval   time.Duration
	AttemptTimeout time.Duration
	MaxAttempts    int
	DisableAfter   int
	BatchSize      int
}

// Worker polls due deliveries and pushes them through a bounded pool of
// senders. Per-webhook ordering is best effort only: concurrent deliveries
// for one webhook may complete out of order.
type Worker struct {
	Deliveries deliveryStore
	Webhooks   webhookStore
	Config     WorkerConfig
	Log        *zap.Logger
	HTTPClient *http.Client

	now func() time.Time
}

func NewWorker(deliveries deliveryStore, webhooks webhookStore, cfg WorkerConfig, log *zap.Logger) *Worker {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = len(retrySchedule)
	}
	if cfg.DisableAfter <= 0 {
		cfg.DisableAfter = 10
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Worker{
		Deliveries: deliveries,
		Webhooks:   webhooks,
		Config:     cfg,
		Log:        log,
		HTTPClient: &http.Client{},
		now:        time.Now,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Config.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce claims one batch of due deliveries and attempts them concurrently.
func (w *Worker) RunOnce(ctx context.Context) {
	deliveries, err := w.Deliveries.ClaimDue(ctx, w.now().UTC(), w.Config.BatchSize)
	if err != nil {
		w.Log.Warn("claim due deliveries", zap.Error(err))
		return
	}
	if len(deliveries) == 0 {
		return
	}
	sem := make(chan struct{}, w.Config.Workers)
	var wg sync.WaitGroup
	for _, delivery := range deliveries {
		wg.Add(1)
		sem <- struct{}{}
		go func(delivery domain.WebhookDelivery) {
			defer wg.Done()
			defer func() { <-sem }()
			w.attempt(ctx, delivery)
		}(delivery)
	}
	wg.Wait()
}

func (w *Worker) attempt(ctx context.Context, delivery domain.WebhookDelivery) {
	webhook, err := w.Webhooks.GetByID(ctx, delivery.WebhookID)
	if err != nil {
		w.Log.Warn("load webhook for delivery",
			zap.String("delivery_id", delivery.ID), zap.Error(err))
		return
	}
	now := w.now().UTC()
	if !webhook.Enabled {
		// Disabled between enqueue and attempt. Drop without burning budget.
		delivery.Status = domain.DeliveryFailed
		delivery.ResponseBody = "webhook disabled"
		delivery.NextRetryAt = nil
		if err := w.Deliveries.Update(ctx, delivery); err != nil {
			w.Log.Warn("update delivery", zap.Error(err))
		}
		return
	}

	status, responseBody, sendErr := w.send(ctx, *webhook, delivery)
	delivery.Attempts++
	delivery.ResponseStatus = status
	delivery.ResponseBody = responseBody

	if sendErr == nil && status >= 200 && status < 300 {
		metrics.WebhookDeliveriesTotal.WithLabelValues("delivered").Inc()
		delivery.Status = domain.DeliveryDelivered
		delivery.NextRetryAt = nil
		if err := w.Webhooks.RecordSuccess(ctx, webhook.ID, now); err != nil {
			w.Log.Warn("record webhook success", zap.Error(err))
		}
		if err := w.Deliveries.Update(ctx, delivery); err != nil {
			w.Log.Warn("update delivery", zap.Error(err))
		}
		return
	}

	reason := responseBody
	if sendErr != nil {
		reason = sendErr.Error()
	}
	disabled, err := w.Webhooks.RecordFailure(ctx, webhook.ID, reason, now, w.Config.DisableAfter)
	if err != nil {
		w.Log.Warn("record webhook failure", zap.Error(err))
	}
	if disabled {
		w.Log.Info("webhook auto-disabled after consecutive failures",
			zap.String("webhook_id", webhook.ID))
	}

	if delivery.Attempts >= w.Config.MaxAttempts {
		metrics.WebhookDeliveriesTotal.WithLabelValues("failed").Inc()
		delivery.Status = domain.DeliveryFailed
		delivery.NextRetryAt = nil
	} else {
		metrics.WebhookDeliveriesTotal.WithLabelValues("retried").Inc()
		delivery.Status = domain.DeliveryRetrying
		next := now.Add(retryDelay(delivery.Attempts))
		delivery.NextRetryAt = &next
	}
	if err := w.Deliveries.Update(ctx, delivery); err != nil {
		w.Log.Warn("update delivery", zap.Error(err))
	}
}

// send performs one bounded HTTP attempt and returns the response status and
// a truncated body for operator visibility.
func (w *Worker) send(ctx context.Context, webhook domain.Webhook, delivery domain.WebhookDelivery) (int, string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, w.Config.AttemptTimeout)
	defer cancel()

	timestamp := w.now().UTC().Unix()
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, webhook.URL, bytes.NewReader(delivery.Payload))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, string(delivery.EventType))
	req.Header.Set(HeaderDelivery, delivery.ID)
	req.Header.Set(HeaderTimestamp, formatTimestamp(timestamp))
	req.Header.Set(HeaderSignature, Sign(webhook.Secret, timestamp, delivery.Payload))

	resp, err := w.HTTPClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
	return resp.StatusCode, string(body), nil
}

func retryDelay(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts >= len(retrySchedule) {
		return retrySchedule[len(retrySchedule)-1]
	}
	return retrySchedule[attempts]
}
