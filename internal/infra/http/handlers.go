package http

import (
	"errors"
	"net/http"
	"time"

	"daonbridge/internal/domain"
	"daonbridge/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type adminBrokerRequest struct {
	Domain          string   `json:"domain"`
	Name            string   `json:"name"`
	Tier            string   `json:"tier"`
	PublicKey       string   `json:"public_key"`
	RateLimitHourly int      `json:"rate_limit_hourly"`
	RateLimitDaily  int      `json:"rate_limit_daily"`
	Scopes          []string `json:"scopes"`
}

type issuedKeyResponse struct {
	ID        string     `json:"id"`
	Key       string     `json:"key"`
	Prefix    string     `json:"prefix"`
	Scopes    []string   `json:"scopes"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type brokerResponse struct {
	ID        string    `json:"id"`
	Domain    string    `json:"domain"`
	Name      string    `json:"name"`
	Tier      string    `json:"tier"`
	Status    string    `json:"status"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

func brokerToResponse(b domain.Broker) brokerResponse {
	return brokerResponse{
		ID:        b.ID,
		Domain:    b.Domain,
		Name:      b.Name,
		Tier:      string(b.Tier),
		Status:    string(b.Status),
		Enabled:   b.Enabled,
		CreatedAt: b.CreatedAt,
	}
}

func issuedKeyToResponse(issued usecase.IssuedKey) issuedKeyResponse {
	return issuedKeyResponse{
		ID:        issued.Key.ID,
		Key:       issued.Plaintext,
		Prefix:    issued.Key.Prefix,
		Scopes:    issued.Key.Scopes.Strings(),
		ExpiresAt: issued.Key.ExpiresAt,
	}
}

func (s *Server) handleAdminRegisterBroker(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	var req adminBrokerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if req.Domain == "" || req.Name == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_BROKER", "domain and name are required")
		return
	}
	tier, ok := domain.ParseTier(req.Tier)
	if !ok {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_TIER", "unknown certification tier")
		return
	}
	scopes, err := parseScopes(req.Scopes)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_SCOPE", err.Error())
		return
	}

	resp, err := s.brokerSvc.Register(c.Request.Context(), usecase.RegisterBrokerRequest{
		Domain:          req.Domain,
		Name:            req.Name,
		Tier:            tier,
		PublicKeyBase64: req.PublicKey,
		RateLimitHourly: req.RateLimitHourly,
		RateLimitDaily:  req.RateLimitDaily,
		Scopes:          scopes,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"broker":  brokerToResponse(resp.Broker),
		"api_key": issuedKeyToResponse(resp.Key),
	})
}

type adminIssueKeyRequest struct {
	Scopes    []string   `json:"scopes"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (s *Server) handleAdminIssueKey(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	broker, err := s.brokers.GetByID(c.Request.Context(), c.Param("broker_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	var req adminIssueKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	scopes, err := parseScopes(req.Scopes)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_SCOPE", err.Error())
		return
	}
	if len(scopes) == 0 {
		scopes = domain.DefaultBrokerScopes()
	}
	issued, err := s.keySvc.Issue(c.Request.Context(), broker.ID, scopes, req.ExpiresAt)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"api_key": issuedKeyToResponse(*issued)})
}

// loadBrokerKey resolves a key_id route param and checks it belongs to the
// broker named in the path. Keys owned by other brokers read as not found.
func (s *Server) loadBrokerKey(c *gin.Context) (*domain.APIKey, bool) {
	key, err := s.keys.GetByID(c.Request.Context(), c.Param("key_id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if key.BrokerID != c.Param("broker_id") {
		writeError(c, domain.ErrNotFound)
		return nil, false
	}
	return key, true
}

func (s *Server) handleAdminRotateKey(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	key, ok := s.loadBrokerKey(c)
	if !ok {
		return
	}
	issued, err := s.keySvc.Rotate(c.Request.Context(), *key)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"api_key": issuedKeyToResponse(*issued)})
}

type adminRevokeKeyRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleAdminRevokeKey(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	key, ok := s.loadBrokerKey(c)
	if !ok {
		return
	}
	var req adminRevokeKeyRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
			return
		}
	}
	if req.Reason == "" {
		req.Reason = "revoked"
	}
	if err := s.keySvc.Revoke(c.Request.Context(), key.ID, req.Reason); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleVerifyCaller(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	resp := gin.H{
		"broker": brokerToResponse(principal.Broker),
		"key": gin.H{
			"prefix": principal.Key.Prefix,
			"scopes": principal.Scopes.Strings(),
		},
	}
	if hour, exists := c.Get(rateHourContextKey); exists {
		if day, exists := c.Get(rateDayContextKey); exists {
			resp["rate_limits"] = gin.H{
				"hourly": decisionToResponse(hour.(domain.RateLimitDecision)),
				"daily":  decisionToResponse(day.(domain.RateLimitDecision)),
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}

func decisionToResponse(d domain.RateLimitDecision) gin.H {
	return gin.H{
		"limit":     d.Limit,
		"remaining": d.Remaining,
		"reset_at":  d.ResetAt.UTC().Format(time.RFC3339),
	}
}

type protectContentRequest struct {
	Username    string `json:"username"`
	Content     string `json:"content"`
	ContentHash string `json:"content_hash"`
	License     string `json:"license"`
	Title       string `json:"title"`
	WordCount   int    `json:"word_count"`
	Attestation struct {
		ContentID   string     `json:"platform_content_id"`
		URL         string     `json:"platform_url"`
		PublishDate *time.Time `json:"publish_date"`
	} `json:"attestation"`
}

type contentResponse struct {
	ContentHash  string    `json:"content_hash"`
	Owner        string    `json:"owner"`
	License      string    `json:"license"`
	Title        string    `json:"title,omitempty"`
	WordCount    int       `json:"word_count,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
	LedgerStatus string    `json:"ledger_status"`
	LedgerTxRef  string    `json:"ledger_tx_ref,omitempty"`
}

func contentToResponse(record domain.ContentOwnership) contentResponse {
	return contentResponse{
		ContentHash:  record.ContentHash,
		Owner:        record.OwnerKey,
		License:      string(record.License),
		Title:        record.Title,
		WordCount:    record.WordCount,
		RegisteredAt: record.RegisteredAt,
		LedgerStatus: string(record.LedgerSyncState),
		LedgerTxRef:  record.LedgerTxRef,
	}
}

func (s *Server) handleProtectContent(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	var req protectContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	resp, err := s.registerUC.Execute(c.Request.Context(), usecase.RegisterContentRequest{
		Broker:      principal.Broker,
		Username:    req.Username,
		Content:     []byte(req.Content),
		ContentHash: req.ContentHash,
		License:     domain.License(req.License),
		Title:       req.Title,
		WordCount:   req.WordCount,
		Attestation: domain.PlatformAttestation{
			ContentID:   req.Attestation.ContentID,
			URL:         req.Attestation.URL,
			PublishDate: req.Attestation.PublishDate,
		},
	})
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusCreated
	if resp.Duplicate {
		status = http.StatusOK
	}
	body := gin.H{"content": contentToResponse(resp.Record), "duplicate": resp.Duplicate}
	c.JSON(status, body)
}

type transferRequest struct {
	CurrentOwner string `json:"current_owner"`
	NewOwner     string `json:"new_owner"`
	Reason       string `json:"reason"`
}

func (s *Server) handleTransferOwnership(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	transfer, err := s.transferUC.Execute(c.Request.Context(), usecase.TransferOwnershipRequest{
		Broker:       principal.Broker,
		ContentHash:  c.Param("content_hash"),
		ClaimedOwner: req.CurrentOwner,
		NewOwner:     req.NewOwner,
		Reason:       req.Reason,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transfer": gin.H{
		"id":            transfer.ID,
		"content_hash":  transfer.ContentHash,
		"from":          transfer.FromIdentity,
		"to":            transfer.ToIdentity,
		"reason":        transfer.Reason,
		"broker_domain": transfer.BrokerDomain,
		"created_at":    transfer.CreatedAt.UTC().Format(time.RFC3339),
	}})
}

func (s *Server) handlePublicVerifyContent(c *gin.Context) {
	hash := c.Param("content_hash")
	if err := domain.ValidateContentHash(hash); err != nil {
		writeError(c, err)
		return
	}
	record, err := s.content.GetByHash(c.Request.Context(), hash)
	if err != nil {
		writeError(c, err)
		return
	}
	transfers, err := s.content.ListTransfers(c.Request.Context(), hash)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"content":        contentToResponse(*record),
		"transfer_count": len(transfers),
	})
}

func (s *Server) handleUsageStats(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	from, err := parseTimeQuery(c, "from", time.Time{})
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_RANGE", "from must be RFC3339")
		return
	}
	to, err := parseTimeQuery(c, "to", time.Time{})
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_RANGE", "to must be RFC3339")
		return
	}
	records, err := s.usage.Query(c.Request.Context(), principal.Broker.ID, from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(records))
	for _, record := range records {
		out = append(out, gin.H{
			"endpoint":       record.Endpoint,
			"method":         record.Method,
			"hour":           record.HourBucket.UTC().Format(time.RFC3339),
			"success_count":  record.SuccessCount,
			"error_count":    record.ErrorCount,
			"avg_latency_ms": record.AvgLatencyMs,
		})
	}
	c.JSON(http.StatusOK, gin.H{"usage": out})
}

type webhookRequest struct {
	URL    string   `json:"url"`
	Secret string   `json:"secret"`
	Events []string `json:"events"`
}

type webhookResponse struct {
	ID                  string     `json:"id"`
	URL                 string     `json:"url"`
	Events              []string   `json:"events"`
	Enabled             bool       `json:"enabled"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
	LastFailureReason   string     `json:"last_failure_reason,omitempty"`
	DisabledAt          *time.Time `json:"disabled_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

func webhookToResponse(w domain.Webhook) webhookResponse {
	events := make([]string, 0, len(w.Events))
	for _, event := range w.Events {
		events = append(events, string(event))
	}
	return webhookResponse{
		ID:                  w.ID,
		URL:                 w.URL,
		Events:              events,
		Enabled:             w.Enabled,
		ConsecutiveFailures: w.ConsecutiveFailures,
		LastSuccessAt:       w.LastSuccessAt,
		LastFailureAt:       w.LastFailureAt,
		LastFailureReason:   w.LastFailureReason,
		DisabledAt:          w.DisabledAt,
		CreatedAt:           w.CreatedAt,
	}
}

func (s *Server) handleRegisterWebhook(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if err := domain.ValidateWebhookURL(req.URL); err != nil {
		writeError(c, err)
		return
	}
	if err := domain.ValidateWebhookSecret(req.Secret); err != nil {
		writeError(c, err)
		return
	}
	events := make([]domain.EventType, 0, len(req.Events))
	for _, raw := range req.Events {
		event, ok := domain.ParseEventType(raw)
		if !ok {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_EVENT", "unknown event type "+raw)
			return
		}
		events = append(events, event)
	}
	if len(events) == 0 {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_EVENT", "at least one event type is required")
		return
	}
	webhook := domain.Webhook{
		ID:        uuid.NewString(),
		BrokerID:  principal.Broker.ID,
		URL:       req.URL,
		Secret:    req.Secret,
		Events:    events,
		Enabled:   true,
		CreatedAt: s.now(),
	}
	if err := s.webhooks.Create(c.Request.Context(), webhook); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"webhook": webhookToResponse(webhook)})
}

func (s *Server) handleListWebhooks(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	hooks, err := s.webhooks.ListByBroker(c.Request.Context(), principal.Broker.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]webhookResponse, 0, len(hooks))
	for _, hook := range hooks {
		out = append(out, webhookToResponse(hook))
	}
	c.JSON(http.StatusOK, gin.H{"webhooks": out})
}

func (s *Server) handleDeleteWebhook(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	if err := s.webhooks.Delete(c.Request.Context(), principal.Broker.ID, c.Param("webhook_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleEnableWebhook re-enables an endpoint that was auto-disabled after
// consecutive delivery failures.
func (s *Server) handleEnableWebhook(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	if err := s.webhooks.SetEnabled(c.Request.Context(), principal.Broker.ID, c.Param("webhook_id"), true); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

const deliveryLogLimit = 50

type deliveryResponse struct {
	ID             string     `json:"id"`
	EventType      string     `json:"event_type"`
	Status         string     `json:"status"`
	Attempts       int        `json:"attempts"`
	NextRetryAt    *time.Time `json:"next_retry_at,omitempty"`
	ResponseStatus int        `json:"response_status,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (s *Server) handleListDeliveries(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	hook, err := s.webhooks.GetByID(c.Request.Context(), c.Param("webhook_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if hook.BrokerID != principal.Broker.ID {
		writeError(c, domain.ErrNotFound)
		return
	}
	rows, err := s.deliveries.ListByWebhook(c.Request.Context(), hook.ID, deliveryLogLimit)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]deliveryResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, deliveryResponse{
			ID:             row.ID,
			EventType:      string(row.EventType),
			Status:         string(row.Status),
			Attempts:       row.Attempts,
			NextRetryAt:    row.NextRetryAt,
			ResponseStatus: row.ResponseStatus,
			CreatedAt:      row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"deliveries": out})
}

func parseScopes(raw []string) (domain.ScopeSet, error) {
	scopes := make(domain.ScopeSet, 0, len(raw))
	for _, value := range raw {
		scope, ok := domain.ParseScope(value)
		if !ok {
			return nil, errors.New("unknown scope " + value)
		}
		scopes = append(scopes, scope)
	}
	return scopes, nil
}

func parseTimeQuery(c *gin.Context, name string, fallback time.Time) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrKeyUnknown):
		status, code = http.StatusUnauthorized, "KEY_UNKNOWN"
	case errors.Is(err, domain.ErrKeyRevoked):
		status, code = http.StatusUnauthorized, "KEY_REVOKED"
	case errors.Is(err, domain.ErrKeyExpired):
		status, code = http.StatusUnauthorized, "KEY_EXPIRED"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrBrokerDisabled):
		status, code = http.StatusForbidden, "BROKER_DISABLED"
	case errors.Is(err, domain.ErrBrokerNotActive):
		status, code = http.StatusForbidden, "BROKER_NOT_ACTIVE"
	case errors.Is(err, domain.ErrScopeMissing):
		status, code = http.StatusForbidden, "SCOPE_MISSING"
	case errors.Is(err, domain.ErrSignatureRequired):
		status, code = http.StatusForbidden, "SIGNATURE_REQUIRED"
	case errors.Is(err, domain.ErrSignatureInvalid):
		status, code = http.StatusForbidden, "SIGNATURE_INVALID"
	case errors.Is(err, domain.ErrDomainMismatch):
		status, code = http.StatusForbidden, "DOMAIN_MISMATCH"
	case errors.Is(err, domain.ErrNotOwner):
		status, code = http.StatusForbidden, "NOT_OWNER"
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrRateLimited):
		status, code = http.StatusTooManyRequests, "RATE_LIMITED"
	case errors.Is(err, domain.ErrInvalidUsername):
		status, code = http.StatusBadRequest, "INVALID_USERNAME"
	case errors.Is(err, domain.ErrInvalidLicense):
		status, code = http.StatusBadRequest, "INVALID_LICENSE"
	case errors.Is(err, domain.ErrInvalidContentHash):
		status, code = http.StatusBadRequest, "INVALID_CONTENT_HASH"
	case errors.Is(err, domain.ErrBackdated):
		status, code = http.StatusBadRequest, "BACKDATED_REGISTRATION"
	case errors.Is(err, domain.ErrInvalidPublicKey):
		status, code = http.StatusBadRequest, "INVALID_PUBLIC_KEY"
	case errors.Is(err, domain.ErrInvalidWebhookURL):
		status, code = http.StatusBadRequest, "INVALID_WEBHOOK_URL"
	case errors.Is(err, domain.ErrWebhookSecretWeak):
		status, code = http.StatusBadRequest, "WEBHOOK_SECRET_TOO_SHORT"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrDuplicate):
		status, code = http.StatusConflict, "DUPLICATE"
	}
	writeErrorCode(c, status, code, err.Error())
}

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
