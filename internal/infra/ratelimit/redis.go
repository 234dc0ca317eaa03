package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"daonbridge/internal/domain"

	"github.com/redis/go-redis/v9"
)

type redisLimiter struct {
	client *redis.Client
	now    func() time.Time
}

// Both windows are checked before either is incremented, so a request
// rejected on one window never consumes budget on the other. The script is
// atomic per broker, which keeps concurrent instances from undercounting.
var allowScript = redis.NewScript(`
local hour = tonumber(redis.call("GET", KEYS[1]) or "0")
local day = tonumber(redis.call("GET", KEYS[2]) or "0")
local hour_limit = tonumber(ARGV[1])
local day_limit = tonumber(ARGV[2])
if hour >= hour_limit or day >= day_limit then
  return {0, hour, day}
end
hour = redis.call("INCR", KEYS[1])
if hour == 1 then
  redis.call("PEXPIREAT", KEYS[1], ARGV[3])
end
day = redis.call("INCR", KEYS[2])
if day == 1 then
  redis.call("PEXPIREAT", KEYS[2], ARGV[4])
end
return {1, hour, day}
`)

func NewRedisLimiter(addr, password string, db int, now func() time.Time) (domain.RateLimiter, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if now == nil {
		now = time.Now
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisLimiter{client: client, now: now}, nil
}

func (r *redisLimiter) Allow(ctx context.Context, brokerID string, limits domain.RateLimits) (domain.RateLimitDecision, domain.RateLimitDecision, error) {
	now := r.now().UTC()
	hourEnd := domain.WindowHour.End(now)
	dayEnd := domain.WindowDay.End(now)
	hourKey := bucketKey(brokerID, domain.WindowHour, now)
	dayKey := bucketKey(brokerID, domain.WindowDay, now)

	result, err := allowScript.Run(ctx, r.client,
		[]string{hourKey, dayKey},
		limits.Hourly, limits.Daily,
		hourEnd.UnixMilli(), dayEnd.UnixMilli(),
	).Result()
	if err != nil {
		return domain.RateLimitDecision{}, domain.RateLimitDecision{}, err
	}
	values, ok := result.([]any)
	if !ok || len(values) < 3 {
		return domain.RateLimitDecision{}, domain.RateLimitDecision{}, errors.New("unexpected redis rate limit response")
	}
	allowed, _ := values[0].(int64)
	hourCount, _ := values[1].(int64)
	dayCount, _ := values[2].(int64)

	hour := decision(domain.WindowHour, limits.Hourly, hourCount, hourEnd, true)
	day := decision(domain.WindowDay, limits.Daily, dayCount, dayEnd, true)
	if allowed != 1 {
		// Attribute the denial to the window actually out of budget.
		hour.Allowed = hourCount < int64(limits.Hourly)
		day.Allowed = dayCount < int64(limits.Daily)
	}
	return hour, day, nil
}

func decision(window domain.RateWindow, limit int, count int64, resetAt time.Time, allowed bool) domain.RateLimitDecision {
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return domain.RateLimitDecision{
		Allowed:   allowed,
		Window:    window,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

func bucketKey(brokerID string, window domain.RateWindow, now time.Time) string {
	return fmt.Sprintf("rl:%s:%s:%d", brokerID, window, window.Start(now).Unix())
}
