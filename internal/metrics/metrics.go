package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_gateway_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	DispatchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_gateway_dispatch_attempts_total",
			Help: "Provider call attempts by outcome",
		},
		[]string{"provider", "outcome"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "relay_gateway_dispatch_duration_seconds",
			Help: "End-to-end dispatch duration in seconds",
		},
		[]string{"capability", "tier"},
	)

	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_gateway_rate_limit_rejections_total",
			Help: "Requests rejected by the hourly rate limiter",
		},
	)

	EstimatedCost = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_gateway_estimated_cost_usd_total",
			Help: "Estimated provider spend in USD",
		},
		[]string{"provider"},
	)

	TokensProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_gateway_tokens_total",
			Help: "Tokens processed by provider and direction",
		},
		[]string{"provider", "direction"},
	)
)
