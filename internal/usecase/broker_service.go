package usecase

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"time"

	"daonbridge/internal/domain"

	"github.com/google/uuid"
)

type RegisterBrokerRequest struct {
	Domain          string
	Name            string
	Tier            domain.CertificationTier
	PublicKeyBase64 string
	RateLimitHourly int
	RateLimitDaily  int
	Scopes          domain.ScopeSet
}

type RegisterBrokerResponse struct {
	Broker domain.Broker
	Key    IssuedKey
}

// BrokerService handles admin-side broker lifecycle. Registration creates
// the broker active and enabled and issues its first credential in one go.
type BrokerService struct {
	Brokers BrokerRepository
	Keys    *APIKeyService
	Clock   Clock
}

func (s *BrokerService) Register(ctx context.Context, req RegisterBrokerRequest) (*RegisterBrokerResponse, error) {
	var publicKey []byte
	if req.PublicKeyBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.PublicKeyBase64)
		if err != nil {
			return nil, domain.ErrInvalidPublicKey
		}
		if len(decoded) != ed25519.PublicKeySize {
			return nil, domain.ErrInvalidPublicKey
		}
		publicKey = decoded
	}
	// Enterprise-tier requests must carry payload signatures, so the broker
	// cannot exist without a verification key.
	if req.Tier == domain.TierEnterprise && len(publicKey) == 0 {
		return nil, domain.ErrInvalidPublicKey
	}

	if existing, err := s.Brokers.GetByDomain(ctx, req.Domain); err == nil && existing != nil {
		return nil, domain.ErrDuplicate
	}

	now := s.now()
	broker := domain.Broker{
		ID:              uuid.NewString(),
		Domain:          req.Domain,
		Name:            req.Name,
		Tier:            req.Tier,
		Status:          domain.StatusActive,
		Enabled:         true,
		PublicKey:       publicKey,
		RateLimitHourly: req.RateLimitHourly,
		RateLimitDaily:  req.RateLimitDaily,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Brokers.Create(ctx, broker); err != nil {
		return nil, err
	}
	scopes := req.Scopes
	if len(scopes) == 0 {
		scopes = domain.DefaultBrokerScopes()
	}
	issued, err := s.Keys.Issue(ctx, broker.ID, scopes, nil)
	if err != nil {
		return nil, err
	}
	return &RegisterBrokerResponse{Broker: broker, Key: *issued}, nil
}

func (s *BrokerService) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}
