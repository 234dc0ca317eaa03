package ledger

import (
	"context"
	"time"

	"daonbridge/internal/domain"

	"go.uber.org/zap"
)

type contentSource interface {
	ListUnsynced(ctx context.Context, limit int) ([]domain.ContentOwnership, error)
	UpdateLedgerSync(ctx context.Context, contentHash string, state domain.LedgerSyncState, txRef string) error
	GetByHash(ctx context.Context, contentHash string) (*domain.ContentOwnership, error)
}

// Reconciler retries ledger submission for records stuck in pending or
// failed state. It runs in the worker binary, off every request path.
type Reconciler struct {
	Client    domain.LedgerClient
	Content   contentSource
	Interval  time.Duration
	BatchSize int
	Log       *zap.Logger
}

func (r *Reconciler) Run(ctx context.Context) {
	if r.Interval <= 0 {
		r.Interval = time.Minute
	}
	if r.BatchSize <= 0 {
		r.BatchSize = 100
	}
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Reconciler) runOnce(ctx context.Context) {
	records, err := r.Content.ListUnsynced(ctx, r.BatchSize)
	if err != nil {
		r.Log.Warn("list unsynced records", zap.Error(err))
		return
	}
	for _, record := range records {
		if record.OwnerKey == "" {
			if full, err := r.Content.GetByHash(ctx, record.ContentHash); err == nil {
				record.OwnerKey = full.OwnerKey
			}
		}
		txRef, err := r.Client.RegisterContent(ctx, record)
		if err != nil {
			r.Log.Debug("ledger submission still failing",
				zap.String("content_hash", record.ContentHash), zap.Error(err))
			if updateErr := r.Content.UpdateLedgerSync(ctx, record.ContentHash, domain.LedgerSyncFailed, ""); updateErr != nil {
				r.Log.Warn("mark ledger sync failed", zap.Error(updateErr))
			}
			continue
		}
		if err := r.Content.UpdateLedgerSync(ctx, record.ContentHash, domain.LedgerSyncConfirmed, txRef); err != nil {
			r.Log.Warn("mark ledger sync confirmed", zap.Error(err))
			continue
		}
		r.Log.Info("ledger sync confirmed",
			zap.String("content_hash", record.ContentHash), zap.String("tx_ref", txRef))
	}
}
