package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var RequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bridge_requests_total",
		Help: "Total broker API requests by endpoint, method and status",
	},
	[]string{"endpoint", "method", "status"},
)

var RequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "bridge_request_duration_seconds",
		Help:    "Broker API request latency in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"endpoint", "method"},
)

var RateLimitRejectionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bridge_rate_limit_rejections_total",
		Help: "Requests rejected by the per-broker rate limiter",
	},
	[]string{"window"},
)

var SecurityEventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bridge_security_events_total",
		Help: "Security events recorded by type and severity",
	},
	[]string{"event_type", "severity"},
)

var WebhookDeliveriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bridge_webhook_deliveries_total",
		Help: "Webhook delivery attempts by outcome",
	},
	[]string{"outcome"},
)

var LedgerSubmissionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bridge_ledger_submissions_total",
		Help: "Ledger submissions by outcome",
	},
	[]string{"outcome"},
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		RequestsTotal,
		RequestDuration,
		RateLimitRejectionsTotal,
		SecurityEventsTotal,
		WebhookDeliveriesTotal,
		LedgerSubmissionsTotal,
	)
}
