package ratelimit

import (
	"context"
	"sync"
	"time"

	"daonbridge/internal/domain"
)

// memoryLimiter is a single-process fallback for dev and tests. Production
// deployments share counters through Redis.
type memoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	data    map[string]counter
	maxKeys int
}

type counter struct {
	count     int
	expiresAt time.Time
}

type MemoryLimiterConfig struct {
	Now     func() time.Time
	MaxKeys int
}

func NewMemoryLimiter(cfg MemoryLimiterConfig) domain.RateLimiter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 10000
	}
	return &memoryLimiter{
		now:     cfg.Now,
		data:    make(map[string]counter),
		maxKeys: cfg.MaxKeys,
	}
}

func (m *memoryLimiter) Allow(_ context.Context, brokerID string, limits domain.RateLimits) (domain.RateLimitDecision, domain.RateLimitDecision, error) {
	now := m.now().UTC()
	hourKey := bucketKey(brokerID, domain.WindowHour, now)
	dayKey := bucketKey(brokerID, domain.WindowDay, now)

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.data) >= m.maxKeys {
		// Only closed windows are evicted. Live counters stay, or a full
		// map would reset every broker's budget at once.
		for key, c := range m.data {
			if !c.expiresAt.After(now) {
				delete(m.data, key)
			}
		}
	}

	hourCount := m.data[hourKey].count
	dayCount := m.data[dayKey].count
	allowed := hourCount < limits.Hourly && dayCount < limits.Daily
	if allowed {
		hourCount++
		dayCount++
		m.data[hourKey] = counter{count: hourCount, expiresAt: domain.WindowHour.End(now)}
		m.data[dayKey] = counter{count: dayCount, expiresAt: domain.WindowDay.End(now)}
	}

	hour := decision(domain.WindowHour, limits.Hourly, int64(hourCount), domain.WindowHour.End(now), hourCount < limits.Hourly || allowed)
	day := decision(domain.WindowDay, limits.Daily, int64(dayCount), domain.WindowDay.End(now), dayCount < limits.Daily || allowed)
	return hour, day, nil
}
