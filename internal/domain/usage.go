package domain

import "time"

// UsageSample is one request outcome, recorded off the request path.
type UsageSample struct {
	BrokerID   string
	Endpoint   string
	Method     string
	Success    bool
	Duration   time.Duration
	ObservedAt time.Time
}

// UsageRecord aggregates samples into hour buckets per broker and endpoint.
type UsageRecord struct {
	BrokerID     string
	Endpoint     string
	Method       string
	HourBucket   time.Time
	SuccessCount int64
	ErrorCount   int64
	AvgLatencyMs float64
}

func HourBucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}
