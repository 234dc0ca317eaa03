package usecase

import (
	"context"

	"daonbridge/internal/domain"

	"github.com/google/uuid"
)

// IdentityResolver maps (username, broker domain) to the canonical identity
// record, creating it lazily on first reference.
type IdentityResolver struct {
	Identities IdentityRepository
}

func (r *IdentityResolver) Resolve(ctx context.Context, username, brokerDomain string) (*domain.FederatedIdentity, error) {
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}
	return r.Identities.Upsert(ctx, domain.FederatedIdentity{
		ID:       uuid.NewString(),
		Username: username,
		Domain:   brokerDomain,
	})
}

// Lookup resolves without creating, for callers that must not mint new
// identities (e.g. transfer source checks).
func (r *IdentityResolver) Lookup(ctx context.Context, username, brokerDomain string) (*domain.FederatedIdentity, error) {
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}
	return r.Identities.Get(ctx, username, brokerDomain)
}
