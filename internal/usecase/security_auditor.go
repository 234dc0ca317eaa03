package usecase

import (
	"context"
	"time"

	"daonbridge/internal/domain"
	"daonbridge/internal/infra/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SecurityAuditor records anomalous auth/authz outcomes and enforces the
// automatic suspension policy. Recording never raises: a failed audit write
// is logged and swallowed so it cannot fail the primary request.
type SecurityAuditor struct {
	Events  SecurityEventRepository
	Brokers BrokerRepository
	Policy  domain.SuspensionPolicy
	Log     *zap.Logger
	Clock   Clock

	// Async runs side-effect work off the request path. Tests replace it
	// with a synchronous runner.
	Async func(func())
}

func NewSecurityAuditor(events SecurityEventRepository, brokers BrokerRepository, policy domain.SuspensionPolicy, log *zap.Logger) *SecurityAuditor {
	if policy.Threshold <= 0 {
		policy = domain.DefaultSuspensionPolicy()
	}
	return &SecurityAuditor{
		Events:  events,
		Brokers: brokers,
		Policy:  policy,
		Log:     log,
		Async:   func(fn func()) { go fn() },
	}
}

// Record is fire-and-forget relative to the caller.
func (a *SecurityAuditor) Record(brokerID string, eventType domain.SecurityEventType, severity domain.SecuritySeverity, detail string) {
	event := domain.SecurityEvent{
		ID:          uuid.NewString(),
		BrokerID:    brokerID,
		EventType:   eventType,
		Severity:    severity,
		ActionTaken: domain.ActionLog,
		Detail:      detail,
		CreatedAt:   a.now(),
	}
	if severity == domain.SeverityWarning {
		event.ActionTaken = domain.ActionWarn
	}
	a.Async(func() {
		// Detached from the request context: the audit write must survive
		// the response being sent.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.record(ctx, event)
	})
}

func (a *SecurityAuditor) record(ctx context.Context, event domain.SecurityEvent) {
	metrics.SecurityEventsTotal.WithLabelValues(string(event.EventType), string(event.Severity)).Inc()
	if err := a.Events.Append(ctx, event); err != nil {
		a.Log.Warn("append security event",
			zap.String("event_type", string(event.EventType)), zap.Error(err))
		return
	}
	if event.Severity != domain.SeveritySevere || event.BrokerID == "" {
		return
	}
	a.evaluateSuspension(ctx, event.BrokerID)
}

func (a *SecurityAuditor) evaluateSuspension(ctx context.Context, brokerID string) {
	since := a.now().Add(-a.Policy.Window)
	count, err := a.Events.CountSevereSince(ctx, brokerID, since)
	if err != nil {
		a.Log.Warn("count severe events", zap.Error(err))
		return
	}
	if count < int64(a.Policy.Threshold) {
		return
	}
	if err := a.Brokers.UpdateStatus(ctx, brokerID, domain.StatusSuspended); err != nil {
		a.Log.Warn("suspend broker", zap.String("broker_id", brokerID), zap.Error(err))
		return
	}
	suspension := domain.SecurityEvent{
		ID:          uuid.NewString(),
		BrokerID:    brokerID,
		EventType:   domain.SecurityEventBrokerSuspended,
		Severity:    domain.SeveritySevere,
		ActionTaken: domain.ActionTempSuspend,
		Detail:      "severe event threshold reached within rolling window",
		CreatedAt:   a.now(),
	}
	if err := a.Events.Append(ctx, suspension); err != nil {
		a.Log.Warn("append suspension event", zap.Error(err))
	}
	a.Log.Warn("broker temporarily suspended",
		zap.String("broker_id", brokerID), zap.Int64("severe_events", count))
}

func (a *SecurityAuditor) now() time.Time {
	if a.Clock != nil {
		return a.Clock().UTC()
	}
	return time.Now().UTC()
}
