package domain

import "time"

type CertificationTier string

const (
	TierCommunity  CertificationTier = "community"
	TierStandard   CertificationTier = "standard"
	TierEnterprise CertificationTier = "enterprise"
)

func ParseTier(value string) (CertificationTier, bool) {
	switch CertificationTier(value) {
	case TierCommunity, TierStandard, TierEnterprise:
		return CertificationTier(value), true
	}
	return "", false
}

type CertificationStatus string

const (
	StatusPending   CertificationStatus = "pending"
	StatusActive    CertificationStatus = "active"
	StatusSuspended CertificationStatus = "suspended"
	StatusRevoked   CertificationStatus = "revoked"
)

// Broker is a third-party platform acting on behalf of its own users.
type Broker struct {
	ID              string
	Domain          string
	Name            string
	Tier            CertificationTier
	Status          CertificationStatus
	Enabled         bool
	PublicKey       []byte
	RateLimitHourly int
	RateLimitDaily  int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CanAuthenticate reports whether the broker may pass the auth gate at all.
func (b Broker) CanAuthenticate() error {
	if !b.Enabled {
		return ErrBrokerDisabled
	}
	if b.Status != StatusActive {
		return ErrBrokerNotActive
	}
	return nil
}

// RequiresSignedPayload reports whether the broker's tier mandates Ed25519
// payload signing on mutating requests.
func (b Broker) RequiresSignedPayload() bool {
	return b.Tier == TierEnterprise
}

// Limits returns the broker's effective rate limits, falling back to the
// tier defaults when no per-broker override is set.
func (b Broker) Limits() RateLimits {
	limits := DefaultLimits(b.Tier)
	if b.RateLimitHourly > 0 {
		limits.Hourly = b.RateLimitHourly
	}
	if b.RateLimitDaily > 0 {
		limits.Daily = b.RateLimitDaily
	}
	return limits
}
