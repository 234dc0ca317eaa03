package usecase

import (
	"context"
	"errors"
	"time"

	"daonbridge/internal/domain"
	"daonbridge/internal/infra/crypto"

	"github.com/google/uuid"
)

// APIKeyService issues, validates, rotates and revokes broker credentials.
// Secrets exist in plaintext exactly once: in the issue response.
type APIKeyService struct {
	Keys  APIKeyRepository
	Clock Clock
}

type IssuedKey struct {
	Key       domain.APIKey
	Plaintext string
}

func (s *APIKeyService) Issue(ctx context.Context, brokerID string, scopes domain.ScopeSet, expiresAt *time.Time) (*IssuedKey, error) {
	plaintext, prefix, hash, salt, err := crypto.GenerateAPIKey()
	if err != nil {
		return nil, err
	}
	key := domain.APIKey{
		ID:         uuid.NewString(),
		BrokerID:   brokerID,
		Prefix:     prefix,
		SecretHash: hash,
		SecretSalt: salt,
		Scopes:     scopes,
		ExpiresAt:  expiresAt,
		CreatedAt:  s.now(),
	}
	if err := s.Keys.Create(ctx, key); err != nil {
		return nil, err
	}
	return &IssuedKey{Key: key, Plaintext: plaintext}, nil
}

// Validate authenticates a presented bearer credential. The secret is
// compared against the stored adaptive hash; a revoked or expired key fails
// even when the hash matches.
func (s *APIKeyService) Validate(ctx context.Context, token string) (*domain.APIKey, error) {
	prefix, secret, ok := crypto.SplitCredential(token)
	if !ok {
		return nil, domain.ErrKeyUnknown
	}
	key, err := s.Keys.GetByPrefix(ctx, prefix)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrKeyUnknown
		}
		return nil, err
	}
	if !crypto.VerifySecret(secret, key.SecretSalt, key.SecretHash) {
		return nil, domain.ErrKeyUnknown
	}
	if err := key.Usable(s.now()); err != nil {
		// The key is returned alongside the error so callers can attribute
		// revoked or expired usage to the owning broker.
		return key, err
	}
	return key, nil
}

// Rotate issues a replacement with the same scopes and revokes the old key.
func (s *APIKeyService) Rotate(ctx context.Context, key domain.APIKey) (*IssuedKey, error) {
	issued, err := s.Issue(ctx, key.BrokerID, key.Scopes, key.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if err := s.Keys.Revoke(ctx, key.ID, "rotated"); err != nil {
		return nil, err
	}
	return issued, nil
}

func (s *APIKeyService) Revoke(ctx context.Context, id, reason string) error {
	return s.Keys.Revoke(ctx, id, reason)
}

func (s *APIKeyService) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}
