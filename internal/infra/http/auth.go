package http

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"daonbridge/internal/domain"
	"daonbridge/internal/infra/crypto"
	"daonbridge/internal/infra/metrics"

	"github.com/gin-gonic/gin"
)

const (
	principalContextKey = "principal"
	rateHourContextKey  = "rate_hour"
	rateDayContextKey   = "rate_day"

	// Signature over the canonicalized request body, mandatory for
	// enterprise-tier brokers.
	payloadSignatureHeader = "X-Payload-Signature"

	authFailureThreshold = 5
	authFailureWindow    = 15 * time.Minute
)

// failureTracker counts unattributable credential failures per client address
// so a run of guessed keys from one source still leaves an audit trail.
type failureTracker struct {
	mu     sync.Mutex
	counts map[string]failureWindow
}

type failureWindow struct {
	count int
	start time.Time
}

func newFailureTracker() *failureTracker {
	return &failureTracker{counts: make(map[string]failureWindow)}
}

// note reports true once the threshold is crossed within the window, then
// resets the counter so the event fires once per run.
func (t *failureTracker) note(addr string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := t.counts[addr]
	if w.count == 0 || now.Sub(w.start) > authFailureWindow {
		w = failureWindow{start: now}
	}
	w.count++
	if w.count >= authFailureThreshold {
		delete(t.counts, addr)
		return true
	}
	t.counts[addr] = w
	return false
}

func (s *Server) requireAdmin(c *gin.Context) bool {
	if s.adminAPIKey == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "admin api is not configured")
		return false
	}
	key := strings.TrimSpace(c.GetHeader("X-Admin-Key"))
	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.adminAPIKey)) != 1 {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "admin key required")
		return false
	}
	return true
}

// requireBroker authenticates the bearer credential, authorizes the scope,
// verifies the payload signature where the tier demands one and charges the
// rate limit before the handler runs. An empty scope means any valid key.
func (s *Server) requireBroker(scope domain.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := s.now()
		principal, ok := s.authenticate(c, scope)
		if !ok {
			c.Abort()
			return
		}
		c.Set(principalContextKey, principal)

		keyID := principal.Key.ID
		usedAt := start
		s.async(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.keys.TouchUsage(ctx, keyID, usedAt)
		})

		c.Next()

		if s.recorder != nil {
			s.recorder.Observe(domain.UsageSample{
				BrokerID:   principal.Broker.ID,
				Endpoint:   c.FullPath(),
				Method:     c.Request.Method,
				Duration:   s.now().Sub(start),
				ObservedAt: start,
			}, c.Writer.Status())
		}
	}
}

func (s *Server) authenticate(c *gin.Context, scope domain.Scope) (domain.BrokerPrincipal, bool) {
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing or malformed bearer credential")
		return domain.BrokerPrincipal{}, false
	}

	key, err := s.keySvc.Validate(c.Request.Context(), token)
	if err != nil {
		s.auditCredentialFailure(c, key, err)
		writeError(c, err)
		return domain.BrokerPrincipal{}, false
	}

	broker, err := s.brokers.GetByID(c.Request.Context(), key.BrokerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeErrorCode(c, http.StatusUnauthorized, "KEY_UNKNOWN", "api key unknown")
			return domain.BrokerPrincipal{}, false
		}
		writeError(c, err)
		return domain.BrokerPrincipal{}, false
	}
	if err := broker.CanAuthenticate(); err != nil {
		s.audit(broker.ID, domain.SecurityEventAuthFailed, domain.SeverityWarning, err.Error())
		writeError(c, err)
		return domain.BrokerPrincipal{}, false
	}

	if scope != "" && !key.Scopes.Contains(scope) && !key.Scopes.Contains(domain.ScopeAdmin) {
		s.audit(broker.ID, domain.SecurityEventScopeViolation, domain.SeverityWarning,
			"missing scope "+string(scope)+" on "+c.FullPath())
		writeError(c, domain.ErrScopeMissing)
		return domain.BrokerPrincipal{}, false
	}

	if broker.RequiresSignedPayload() && hasBody(c.Request) {
		if err := s.verifyPayload(c, *broker); err != nil {
			s.audit(broker.ID, domain.SecurityEventInvalidSignature, domain.SeveritySevere, err.Error())
			writeError(c, err)
			return domain.BrokerPrincipal{}, false
		}
	}

	if !s.enforceRateLimit(c, *broker) {
		return domain.BrokerPrincipal{}, false
	}

	return domain.BrokerPrincipal{Broker: *broker, Key: *key, Scopes: key.Scopes}, true
}

func (s *Server) verifyPayload(c *gin.Context, broker domain.Broker) error {
	signature := strings.TrimSpace(c.GetHeader(payloadSignatureHeader))
	if signature == "" {
		return domain.ErrSignatureRequired
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return domain.ErrSignatureInvalid
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return crypto.VerifyPayloadSignature(body, signature, broker.PublicKey)
}

func (s *Server) enforceRateLimit(c *gin.Context, broker domain.Broker) bool {
	hour, day, err := s.limiter.Allow(c.Request.Context(), broker.ID, broker.Limits())
	if err != nil {
		if s.rateLimitFailClosed {
			writeErrorCode(c, http.StatusServiceUnavailable, "RATE_LIMIT_UNAVAILABLE", "rate limiter unavailable")
			return false
		}
		// Fail open: a limiter outage must not take the API down.
		return true
	}
	setRateLimitHeaders(c, hour, day)
	c.Set(rateHourContextKey, hour)
	c.Set(rateDayContextKey, day)

	if hour.Allowed && day.Allowed {
		return true
	}

	exceeded := hour
	window := "hourly"
	if hour.Allowed {
		exceeded = day
		window = "daily"
	}
	metrics.RateLimitRejectionsTotal.WithLabelValues(window).Inc()
	s.audit(broker.ID, domain.SecurityEventRateLimitBreach, domain.SeverityInfo, window+" budget exhausted")

	retryAfter := int(exceeded.ResetAt.Sub(s.now()).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", window+" rate limit exceeded")
	return false
}

func (s *Server) auditCredentialFailure(c *gin.Context, key *domain.APIKey, err error) {
	if key == nil {
		// Unknown prefix or bad secret: no broker to attribute, but repeated
		// failures from one address still warrant a trail.
		if s.authFailures != nil && s.authFailures.note(c.ClientIP(), s.now()) {
			s.audit("", domain.SecurityEventAuthFailed, domain.SeverityWarning,
				"repeated credential failures from "+c.ClientIP())
		}
		return
	}
	switch {
	case errors.Is(err, domain.ErrKeyRevoked):
		s.audit(key.BrokerID, domain.SecurityEventKeyRevokedUse, domain.SeveritySevere, "revoked key "+key.Prefix+" presented")
	case errors.Is(err, domain.ErrKeyExpired):
		s.audit(key.BrokerID, domain.SecurityEventKeyExpiredUse, domain.SeverityWarning, "expired key "+key.Prefix+" presented")
	}
}

func (s *Server) audit(brokerID string, eventType domain.SecurityEventType, severity domain.SecuritySeverity, detail string) {
	if s.auditor != nil {
		s.auditor.Record(brokerID, eventType, severity, detail)
	}
}

func principalFrom(c *gin.Context) (domain.BrokerPrincipal, bool) {
	value, ok := c.Get(principalContextKey)
	if !ok {
		return domain.BrokerPrincipal{}, false
	}
	principal, ok := value.(domain.BrokerPrincipal)
	return principal, ok
}

func bearerToken(header string) (string, bool) {
	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
		return "", false
	}
	return fields[1], true
}

func hasBody(r *http.Request) bool {
	return r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch
}

func setRateLimitHeaders(c *gin.Context, hour, day domain.RateLimitDecision) {
	c.Header("X-RateLimit-Limit-Hour", strconv.Itoa(hour.Limit))
	c.Header("X-RateLimit-Remaining-Hour", strconv.Itoa(hour.Remaining))
	c.Header("X-RateLimit-Reset-Hour", strconv.FormatInt(hour.ResetAt.Unix(), 10))
	c.Header("X-RateLimit-Limit-Day", strconv.Itoa(day.Limit))
	c.Header("X-RateLimit-Remaining-Day", strconv.Itoa(day.Remaining))
	c.Header("X-RateLimit-Reset-Day", strconv.FormatInt(day.ResetAt.Unix(), 10))
}
