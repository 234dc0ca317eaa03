package domain

import "context"

// LedgerClient is the best-effort interface to the external append-only
// content ledger. Failures never fail the local operation; the ownership
// record tracks sync state and a reconciler retries later.
type LedgerClient interface {
	RegisterContent(ctx context.Context, record ContentOwnership) (txRef string, err error)
	TransferOwnership(ctx context.Context, transfer OwnershipTransfer) (txRef string, err error)
}
