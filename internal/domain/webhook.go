package domain

import (
	"net/url"
	"time"
)

const MinWebhookSecretLength = 32

type EventType string

const (
	EventContentProtected   EventType = "content.protected"
	EventContentTransferred EventType = "content.transferred"
)

var knownEvents = map[EventType]bool{
	EventContentProtected:   true,
	EventContentTransferred: true,
}

func ParseEventType(value string) (EventType, bool) {
	event := EventType(value)
	return event, knownEvents[event]
}

// Event is a domain event fanned out to subscribed webhooks.
type Event struct {
	Type       EventType
	BrokerID   string
	OccurredAt time.Time
	Data       map[string]any
}

// Webhook is a broker-registered delivery endpoint. Auto-disabled endpoints
// stay disabled until an operator re-enables them.
type Webhook struct {
	ID                  string
	BrokerID            string
	URL                 string
	Secret              string
	Events              []EventType
	Enabled             bool
	ConsecutiveFailures int
	LastSuccessAt       *time.Time
	LastFailureAt       *time.Time
	LastFailureReason   string
	DisabledAt          *time.Time
	CreatedAt           time.Time
}

func (w Webhook) SubscribedTo(event EventType) bool {
	for _, subscribed := range w.Events {
		if subscribed == event {
			return true
		}
	}
	return false
}

func ValidateWebhookURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidWebhookURL
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return ErrInvalidWebhookURL
	}
	return nil
}

func ValidateWebhookSecret(secret string) error {
	if len(secret) < MinWebhookSecretLength {
		return ErrWebhookSecretWeak
	}
	return nil
}

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryRetrying  DeliveryStatus = "retrying"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// WebhookDelivery is one queued notification attempt chain for one webhook.
type WebhookDelivery struct {
	ID             string
	WebhookID      string
	EventType      EventType
	Payload        []byte
	Status         DeliveryStatus
	Attempts       int
	NextRetryAt    *time.Time
	ResponseStatus int
	ResponseBody   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
