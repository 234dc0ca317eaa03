package domain

import "errors"

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrDuplicate          = errors.New("already exists")
	ErrKeyUnknown         = errors.New("api key unknown")
	ErrKeyRevoked         = errors.New("api key revoked")
	ErrKeyExpired         = errors.New("api key expired")
	ErrBrokerDisabled     = errors.New("broker disabled")
	ErrBrokerNotActive    = errors.New("broker not active")
	ErrScopeMissing       = errors.New("insufficient scope")
	ErrSignatureInvalid   = errors.New("payload signature invalid")
	ErrSignatureRequired  = errors.New("payload signature required")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidLicense     = errors.New("invalid license")
	ErrInvalidContentHash = errors.New("invalid content hash format")
	ErrDomainMismatch     = errors.New("broker domain mismatch")
	ErrNotOwner           = errors.New("caller is not the current owner")
	ErrBackdated          = errors.New("registration predates platform publish date")
	ErrInvalidPublicKey   = errors.New("invalid broker public key")
	ErrInvalidWebhookURL  = errors.New("invalid webhook url")
	ErrWebhookSecretWeak  = errors.New("webhook secret too short")
)
