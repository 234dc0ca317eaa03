package db

import "time"

type BrokerModel struct {
	ID              string    `gorm:"type:uuid;primaryKey"`
	Domain          string    `gorm:"uniqueIndex;not null"`
	Name            string    `gorm:"not null"`
	Tier            string    `gorm:"not null"`
	Status          string    `gorm:"index;not null"`
	Enabled         bool      `gorm:"not null;default:true"`
	PublicKey       []byte    `gorm:"type:bytea"`
	RateLimitHourly int       `gorm:"not null;default:0"`
	RateLimitDaily  int       `gorm:"not null;default:0"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (BrokerModel) TableName() string { return "brokers" }

type APIKeyModel struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	BrokerID      string `gorm:"type:uuid;index;not null"`
	Prefix        string `gorm:"uniqueIndex;not null"`
	SecretHash    []byte `gorm:"type:bytea;not null"`
	SecretSalt    []byte `gorm:"type:bytea;not null"`
	Scopes        string `gorm:"not null"`
	ExpiresAt     *time.Time
	Revoked       bool `gorm:"not null;default:false"`
	RevokedReason string
	LastUsedAt    *time.Time
	TotalRequests int64     `gorm:"not null;default:0"`
	CreatedAt     time.Time `gorm:"not null"`
}

func (APIKeyModel) TableName() string { return "api_keys" }

type FederatedIdentityModel struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	Username  string    `gorm:"uniqueIndex:ux_identity_username_domain;not null"`
	Domain    string    `gorm:"uniqueIndex:ux_identity_username_domain;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (FederatedIdentityModel) TableName() string { return "federated_identities" }

type ContentOwnershipModel struct {
	ID                  string    `gorm:"type:uuid;primaryKey"`
	ContentHash         string    `gorm:"uniqueIndex;not null"`
	OwnerID             string    `gorm:"type:uuid;index;not null"`
	License             string    `gorm:"not null"`
	Title               string
	WordCount           int
	RegisteredAt        time.Time `gorm:"not null"`
	PlatformContentID   string
	PlatformURL         string
	PlatformPublishDate *time.Time
	LedgerSyncState     string    `gorm:"index;not null"`
	LedgerTxRef         string
	CreatedAt           time.Time `gorm:"not null"`
}

func (ContentOwnershipModel) TableName() string { return "content_ownerships" }

type OwnershipTransferModel struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	ContentHash  string    `gorm:"index;not null"`
	FromIdentity string    `gorm:"not null"`
	ToIdentity   string    `gorm:"not null"`
	Reason       string
	BrokerDomain string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (OwnershipTransferModel) TableName() string { return "ownership_transfers" }

type SecurityEventModel struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	BrokerID    string    `gorm:"type:uuid;index;not null"`
	EventType   string    `gorm:"not null"`
	Severity    string    `gorm:"index;not null"`
	ActionTaken string    `gorm:"not null"`
	Detail      string
	CreatedAt   time.Time `gorm:"index;not null"`
}

func (SecurityEventModel) TableName() string { return "security_events" }

type WebhookModel struct {
	ID                  string `gorm:"type:uuid;primaryKey"`
	BrokerID            string `gorm:"type:uuid;index;not null"`
	URL                 string `gorm:"not null"`
	Secret              string `gorm:"not null"`
	Events              string `gorm:"not null"`
	Enabled             bool   `gorm:"not null;default:true"`
	ConsecutiveFailures int    `gorm:"not null;default:0"`
	LastSuccessAt       *time.Time
	LastFailureAt       *time.Time
	LastFailureReason   string
	DisabledAt          *time.Time
	CreatedAt           time.Time `gorm:"not null"`
}

func (WebhookModel) TableName() string { return "webhooks" }

type WebhookDeliveryModel struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	WebhookID      string `gorm:"type:uuid;index;not null"`
	EventType      string `gorm:"not null"`
	Payload        []byte `gorm:"type:jsonb;not null"`
	Status         string `gorm:"index;not null"`
	Attempts       int    `gorm:"not null;default:0"`
	NextRetryAt    *time.Time `gorm:"index"`
	ResponseStatus int
	ResponseBody   string
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (WebhookDeliveryModel) TableName() string { return "webhook_deliveries" }

type APIUsageModel struct {
	ID           int64     `gorm:"primaryKey"`
	BrokerID     string    `gorm:"type:uuid;uniqueIndex:ux_usage_bucket;not null"`
	Endpoint     string    `gorm:"uniqueIndex:ux_usage_bucket;not null"`
	Method       string    `gorm:"uniqueIndex:ux_usage_bucket;not null"`
	HourBucket   time.Time `gorm:"uniqueIndex:ux_usage_bucket;index;not null"`
	SuccessCount int64     `gorm:"not null;default:0"`
	ErrorCount   int64     `gorm:"not null;default:0"`
	AvgLatencyMs float64   `gorm:"not null;default:0"`
}

func (APIUsageModel) TableName() string { return "api_usage_records" }
