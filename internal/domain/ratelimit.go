package domain

import (
	"context"
	"time"
)

type RateWindow string

const (
	WindowHour RateWindow = "hour"
	WindowDay  RateWindow = "day"
)

// Start returns the fixed UTC boundary the window containing now began at:
// top of the hour for hourly windows, UTC midnight for daily ones.
func (w RateWindow) Start(now time.Time) time.Time {
	now = now.UTC()
	switch w {
	case WindowDay:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	default:
		return now.Truncate(time.Hour)
	}
}

func (w RateWindow) Duration() time.Duration {
	if w == WindowDay {
		return 24 * time.Hour
	}
	return time.Hour
}

// End returns the reset instant for the window containing now.
func (w RateWindow) End(now time.Time) time.Time {
	return w.Start(now).Add(w.Duration())
}

type RateLimits struct {
	Hourly int
	Daily  int
}

func DefaultLimits(tier CertificationTier) RateLimits {
	switch tier {
	case TierStandard:
		return RateLimits{Hourly: 1000, Daily: 10000}
	case TierEnterprise:
		return RateLimits{Hourly: 10000, Daily: 100000}
	default:
		return RateLimits{Hourly: 100, Daily: 1000}
	}
}

type RateLimitDecision struct {
	Allowed   bool
	Window    RateWindow
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimiter enforces fixed-window counters shared across every API
// instance. Allow must be an atomic read-modify-write under concurrent use.
type RateLimiter interface {
	Allow(ctx context.Context, brokerID string, limits RateLimits) (hour RateLimitDecision, day RateLimitDecision, err error)
}
