package domain

import "time"

type Scope string

const (
	ScopeRegister Scope = "broker:register"
	ScopeTransfer Scope = "broker:transfer"
	ScopeVerify   Scope = "broker:verify"
	ScopeWebhooks Scope = "broker:webhooks"
	ScopeAdmin    Scope = "admin"
)

// Scopes travel over the wire as strings but are validated against this
// closed set on every parse.
var knownScopes = map[Scope]bool{
	ScopeRegister: true,
	ScopeTransfer: true,
	ScopeVerify:   true,
	ScopeWebhooks: true,
	ScopeAdmin:    true,
}

func ParseScope(value string) (Scope, bool) {
	scope := Scope(value)
	return scope, knownScopes[scope]
}

type ScopeSet []Scope

func (s ScopeSet) Contains(scope Scope) bool {
	for _, granted := range s {
		if granted == scope {
			return true
		}
	}
	return false
}

func (s ScopeSet) Strings() []string {
	out := make([]string, 0, len(s))
	for _, scope := range s {
		out = append(out, string(scope))
	}
	return out
}

// APIKey is a broker credential. The secret is stored only as a salted
// adaptive hash; Prefix is the short unencrypted lookup handle.
type APIKey struct {
	ID            string
	BrokerID      string
	Prefix        string
	SecretHash    []byte
	SecretSalt    []byte
	Scopes        ScopeSet
	ExpiresAt     *time.Time
	Revoked       bool
	RevokedReason string
	LastUsedAt    *time.Time
	TotalRequests int64
	CreatedAt     time.Time
}

// Usable reports whether the key may authenticate, independent of whether
// the presented secret matches.
func (k APIKey) Usable(now time.Time) error {
	if k.Revoked {
		return ErrKeyRevoked
	}
	if k.ExpiresAt != nil && now.After(*k.ExpiresAt) {
		return ErrKeyExpired
	}
	return nil
}

// BrokerPrincipal is attached to the request context after the auth gate.
type BrokerPrincipal struct {
	Broker Broker
	Key    APIKey
	Scopes ScopeSet
}

// DefaultBrokerScopes is the grant for a newly registered broker: everything
// except admin.
func DefaultBrokerScopes() ScopeSet {
	return ScopeSet{ScopeRegister, ScopeTransfer, ScopeVerify, ScopeWebhooks}
}
