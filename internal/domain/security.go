package domain

import "time"

type SecurityEventType string

const (
	SecurityEventAuthFailed       SecurityEventType = "auth_failed"
	SecurityEventKeyRevokedUse    SecurityEventType = "revoked_key_used"
	SecurityEventKeyExpiredUse    SecurityEventType = "expired_key_used"
	SecurityEventScopeViolation   SecurityEventType = "scope_violation"
	SecurityEventInvalidSignature SecurityEventType = "invalid_signature"
	SecurityEventRateLimitBreach  SecurityEventType = "rate_limit_breach"
	SecurityEventDomainMismatch   SecurityEventType = "domain_mismatch"
	SecurityEventOwnerMismatch    SecurityEventType = "owner_mismatch"
	SecurityEventBrokerSuspended  SecurityEventType = "broker_suspended"
)

type SecuritySeverity string

const (
	SeverityInfo    SecuritySeverity = "info"
	SeverityWarning SecuritySeverity = "warning"
	SeveritySevere  SecuritySeverity = "severe"
)

type SecurityAction string

const (
	ActionLog         SecurityAction = "log"
	ActionWarn        SecurityAction = "warn"
	ActionTempSuspend SecurityAction = "temp_suspend"
)

// SecurityEvent records an anomalous auth/authz outcome. Write-only.
type SecurityEvent struct {
	ID          string
	BrokerID    string
	EventType   SecurityEventType
	Severity    SecuritySeverity
	ActionTaken SecurityAction
	Detail      string
	CreatedAt   time.Time
}

// SuspensionPolicy triggers temp_suspend once Threshold severe events land
// within the rolling Window.
type SuspensionPolicy struct {
	Threshold int
	Window    time.Duration
}

func DefaultSuspensionPolicy() SuspensionPolicy {
	return SuspensionPolicy{Threshold: 5, Window: 15 * time.Minute}
}
