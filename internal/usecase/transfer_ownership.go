package usecase

import (
	"context"
	"errors"
	"time"

	"daonbridge/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TransferOwnershipRequest struct {
	Broker       domain.Broker
	ContentHash  string
	ClaimedOwner string
	NewOwner     string
	Reason       string
}

// TransferOwnership reassigns a content hash's owner. The owner update and
// the append-only transfer row commit in one transaction; a rejected
// transfer leaves both untouched.
type TransferOwnership struct {
	Content  ContentRepository
	Resolver *IdentityResolver
	Auditor  *SecurityAuditor
	Ledger   domain.LedgerClient
	Events   EventSink
	Log      *zap.Logger
	Clock    Clock
	Async    func(func())
}

func (uc *TransferOwnership) Execute(ctx context.Context, req TransferOwnershipRequest) (*domain.OwnershipTransfer, error) {
	if err := domain.ValidateContentHash(req.ContentHash); err != nil {
		return nil, err
	}
	claimedUser, claimedDomain, ok := domain.SplitIdentityKey(req.ClaimedOwner)
	if !ok {
		return nil, domain.ErrInvalidUsername
	}
	newUser, newDomain, ok := domain.SplitIdentityKey(req.NewOwner)
	if !ok {
		return nil, domain.ErrInvalidUsername
	}

	// Existence before authorization: an unknown hash reads as not found
	// even when the claim would also fail the domain check.
	record, err := uc.Content.GetByHash(ctx, req.ContentHash)
	if err != nil {
		return nil, err
	}

	// The calling broker may only assert ownership for its own identity
	// namespace.
	if claimedDomain != req.Broker.Domain {
		uc.Auditor.Record(req.Broker.ID, domain.SecurityEventDomainMismatch, domain.SeveritySevere,
			"transfer claimed owner outside broker domain: "+req.ClaimedOwner)
		return nil, domain.ErrDomainMismatch
	}

	claimed, err := uc.Resolver.Lookup(ctx, claimedUser, claimedDomain)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			uc.Auditor.Record(req.Broker.ID, domain.SecurityEventOwnerMismatch, domain.SeverityWarning,
				"transfer claimed unknown identity: "+req.ClaimedOwner)
			return nil, domain.ErrNotOwner
		}
		return nil, err
	}
	if claimed.ID != record.OwnerID {
		uc.Auditor.Record(req.Broker.ID, domain.SecurityEventOwnerMismatch, domain.SeverityWarning,
			"transfer claimed non-owner identity for "+req.ContentHash)
		return nil, domain.ErrNotOwner
	}

	newOwner, err := uc.Resolver.Resolve(ctx, newUser, newDomain)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	transfer := domain.OwnershipTransfer{
		ID:           uuid.NewString(),
		ContentHash:  req.ContentHash,
		FromIdentity: claimed.Key(),
		ToIdentity:   newOwner.Key(),
		Reason:       req.Reason,
		BrokerDomain: req.Broker.Domain,
		CreatedAt:    now,
	}
	if err := uc.Content.Transfer(ctx, req.ContentHash, claimed.ID, transfer, newOwner.ID); err != nil {
		return nil, err
	}

	uc.async(func() { uc.submitToLedger(transfer) })
	uc.Events.Dispatch(ctx, domain.Event{
		Type:       domain.EventContentTransferred,
		BrokerID:   req.Broker.ID,
		OccurredAt: now,
		Data: map[string]any{
			"content_hash": transfer.ContentHash,
			"from":         transfer.FromIdentity,
			"to":           transfer.ToIdentity,
			"reason":       transfer.Reason,
		},
	})
	return &transfer, nil
}

func (uc *TransferOwnership) submitToLedger(transfer domain.OwnershipTransfer) {
	if uc.Ledger == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := uc.Ledger.TransferOwnership(ctx, transfer); err != nil {
		uc.Log.Warn("ledger transfer submission failed",
			zap.String("content_hash", transfer.ContentHash), zap.Error(err))
	}
}

func (uc *TransferOwnership) async(fn func()) {
	if uc.Async != nil {
		uc.Async(fn)
		return
	}
	go fn()
}

func (uc *TransferOwnership) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock().UTC()
	}
	return time.Now().UTC()
}
