package http

import (
	"context"
	"net/http"
	"time"

	"daonbridge/internal/config"
	"daonbridge/internal/domain"
	"daonbridge/internal/infra/db"
	"daonbridge/internal/infra/ledger"
	"daonbridge/internal/infra/ratelimit"
	"daonbridge/internal/infra/webhooks"
	"daonbridge/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// DeliveryLog exposes a webhook's recent delivery attempts so brokers can
// inspect failures that never surface on the triggering request.
type DeliveryLog interface {
	ListByWebhook(ctx context.Context, webhookID string, limit int) ([]domain.WebhookDelivery, error)
}

// WebhookStore is the subset of the webhook repository the API needs.
type WebhookStore interface {
	Create(ctx context.Context, webhook domain.Webhook) error
	GetByID(ctx context.Context, id string) (*domain.Webhook, error)
	ListByBroker(ctx context.Context, brokerID string) ([]domain.Webhook, error)
	Delete(ctx context.Context, brokerID, id string) error
	SetEnabled(ctx context.Context, brokerID, id string, enabled bool) error
}

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine
	log   *zap.Logger

	brokers    usecase.BrokerRepository
	keys       usecase.APIKeyRepository
	content    usecase.ContentRepository
	usage      usecase.UsageRepository
	webhooks   WebhookStore
	deliveries DeliveryLog

	authFailures *failureTracker

	brokerSvc  *usecase.BrokerService
	keySvc     *usecase.APIKeyService
	registerUC *usecase.RegisterContent
	transferUC *usecase.TransferOwnership
	auditor    *usecase.SecurityAuditor
	recorder   *usecase.UsageRecorder

	limiter             domain.RateLimiter
	rateLimitFailClosed bool

	adminAPIKey string

	now   func() time.Time
	async func(func())
}

func NewServer(cfg config.Config, store *db.Store, log *zap.Logger) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{cfg: cfg, store: store, r: r, log: log}
	s.initDeps()
	s.routes()
	return s
}

// ServerDeps lets tests assemble a server from fakes without a database or
// redis behind it.
type ServerDeps struct {
	Brokers     usecase.BrokerRepository
	Keys        usecase.APIKeyRepository
	Content     usecase.ContentRepository
	Usage       usecase.UsageRepository
	Webhooks    WebhookStore
	Deliveries  DeliveryLog
	BrokerSvc   *usecase.BrokerService
	KeySvc      *usecase.APIKeyService
	Register    *usecase.RegisterContent
	Transfer    *usecase.TransferOwnership
	Auditor     *usecase.SecurityAuditor
	Recorder    *usecase.UsageRecorder
	Limiter     domain.RateLimiter
	AdminAPIKey string
	Clock       func() time.Time
	Async       func(func())
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:                 cfg,
		r:                   r,
		log:                 zap.NewNop(),
		brokers:             deps.Brokers,
		keys:                deps.Keys,
		content:             deps.Content,
		usage:               deps.Usage,
		webhooks:            deps.Webhooks,
		deliveries:          deps.Deliveries,
		authFailures:        newFailureTracker(),
		brokerSvc:           deps.BrokerSvc,
		keySvc:              deps.KeySvc,
		registerUC:          deps.Register,
		transferUC:          deps.Transfer,
		auditor:             deps.Auditor,
		recorder:            deps.Recorder,
		limiter:             deps.Limiter,
		rateLimitFailClosed: cfg.RateLimitFailClosed,
		adminAPIKey:         deps.AdminAPIKey,
		now:                 deps.Clock,
		async:               deps.Async,
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.async == nil {
		s.async = func(fn func()) { go fn() }
	}
	s.routes()
	return s
}

func (s *Server) initDeps() {
	s.now = func() time.Time { return time.Now().UTC() }
	s.async = func(fn func()) { go fn() }
	s.adminAPIKey = s.cfg.AdminAPIKey
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed

	brokers := db.NewBrokerRepository(s.store.DB)
	keys := db.NewAPIKeyRepository(s.store.DB)
	identities := db.NewIdentityRepository(s.store.DB)
	content := db.NewContentRepository(s.store.DB)
	events := db.NewSecurityEventRepository(s.store.DB)
	usage := db.NewUsageRepository(s.store.DB)
	hooks := db.NewWebhookRepository(s.store.DB)
	deliveries := db.NewDeliveryRepository(s.store.DB)

	s.brokers = brokers
	s.keys = keys
	s.content = content
	s.usage = usage
	s.webhooks = hooks
	s.deliveries = deliveries
	s.authFailures = newFailureTracker()

	if s.cfg.RedisAddr != "" {
		limiter, err := ratelimit.NewRedisLimiter(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB, s.now)
		if err != nil {
			s.log.Warn("redis rate limiter unavailable, using in-memory counters", zap.Error(err))
		} else {
			s.limiter = limiter
		}
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{
			MaxKeys: s.cfg.RateLimitMaxKeys,
			Now:     s.now,
		})
	}

	var ledgerClient domain.LedgerClient
	if s.cfg.LedgerBaseURL != "" {
		client, err := ledger.NewClient(s.cfg.LedgerBaseURL, s.cfg.LedgerChainID, s.cfg.LedgerTimeout(), nil)
		if err != nil {
			s.log.Warn("ledger client disabled", zap.Error(err))
		} else {
			ledgerClient = client
		}
	}

	dispatcher := &webhooks.Dispatcher{Webhooks: hooks, Queue: deliveries, Log: s.log}

	policy := domain.SuspensionPolicy{
		Threshold: s.cfg.SuspendThreshold,
		Window:    s.cfg.SuspendWindow(),
	}
	s.auditor = usecase.NewSecurityAuditor(events, brokers, policy, s.log)
	s.recorder = usecase.NewUsageRecorder(usage, s.cfg.UsageBufferSize, s.log)

	s.keySvc = &usecase.APIKeyService{Keys: keys}
	s.brokerSvc = &usecase.BrokerService{Brokers: brokers, Keys: s.keySvc}
	resolver := &usecase.IdentityResolver{Identities: identities}
	s.registerUC = &usecase.RegisterContent{
		Content:  content,
		Resolver: resolver,
		Ledger:   ledgerClient,
		Events:   dispatcher,
		Log:      s.log,
	}
	s.transferUC = &usecase.TransferOwnership{
		Content:  content,
		Resolver: resolver,
		Auditor:  s.auditor,
		Ledger:   ledgerClient,
		Events:   dispatcher,
		Log:      s.log,
	}
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		mode := "no-db"
		if s.store != nil && s.store.DB != nil {
			mode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": mode})
	})
	s.r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.r.Group("/v1")
	{
		v1.GET("/content/:content_hash", s.handlePublicVerifyContent)

		v1.POST("/brokers", s.handleAdminRegisterBroker)
		v1.POST("/brokers/:broker_id/keys", s.handleAdminIssueKey)
		v1.POST("/brokers/:broker_id/keys/:key_id/rotate", s.handleAdminRotateKey)
		v1.DELETE("/brokers/:broker_id/keys/:key_id", s.handleAdminRevokeKey)

		v1.GET("/verify", s.requireBroker(""), s.handleVerifyCaller)
		v1.POST("/content", s.requireBroker(domain.ScopeRegister), s.handleProtectContent)
		v1.POST("/content/:content_hash/transfer", s.requireBroker(domain.ScopeTransfer), s.handleTransferOwnership)
		v1.GET("/usage", s.requireBroker(domain.ScopeVerify), s.handleUsageStats)

		v1.POST("/webhooks", s.requireBroker(domain.ScopeWebhooks), s.handleRegisterWebhook)
		v1.GET("/webhooks", s.requireBroker(domain.ScopeWebhooks), s.handleListWebhooks)
		v1.DELETE("/webhooks/:webhook_id", s.requireBroker(domain.ScopeWebhooks), s.handleDeleteWebhook)
		v1.POST("/webhooks/:webhook_id/enable", s.requireBroker(domain.ScopeWebhooks), s.handleEnableWebhook)
		v1.GET("/webhooks/:webhook_id/deliveries", s.requireBroker(domain.ScopeWebhooks), s.handleListDeliveries)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "unknown route")
	})
}

// Start launches the background usage aggregation consumer.
func (s *Server) Start(ctx context.Context) {
	if s.recorder != nil {
		go s.recorder.Start(ctx)
	}
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}

// Handler exposes the router for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.r
}
