package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Service counters and histograms. Registered on the default registry and
// served by the API at /metrics.

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallet_insights",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wallet_insights",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request handling duration",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"method", "route"})

	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallet_insights",
		Subsystem: "http",
		Name:      "rate_limit_rejections_total",
		Help:      "Requests refused by a rate limiter",
	}, []string{"limiter"})

	// Cache
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallet_insights",
		Subsystem: "cache",
		Name:      "requests_total",
		Help:      "Cache lookups by backend and result (hit|miss)",
	}, []string{"backend", "result"})

	// Upstream
	RetryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallet_insights",
		Subsystem: "upstream",
		Name:      "retries_total",
		Help:      "Retries performed after a failed attempt",
	}, []string{"operation"})

	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallet_insights",
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Outbound requests by provider and outcome",
	}, []string{"provider", "outcome"})

	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wallet_insights",
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Outbound request duration",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"provider"})

	CircuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "wallet_insights",
		Subsystem: "upstream",
		Name:      "circuit_state",
		Help:      "Circuit breaker state per upstream (0 closed, 1 half-open, 2 open)",
	}, []string{"name"})

	// Analysis
	AnalysesGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallet_insights",
		Subsystem: "analysis",
		Name:      "generated_total",
		Help:      "Analyses persisted, by blockchain",
	}, []string{"blockchain"})

	InsightFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallet_insights",
		Subsystem: "analysis",
		Name:      "insight_failures_total",
		Help:      "Insight generations that failed and were skipped",
	}, []string{"blockchain"})

	// Worker
	PriceWarmRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallet_insights",
		Subsystem: "worker",
		Name:      "price_warm_runs_total",
		Help:      "Price warm job runs by outcome (success|error)",
	}, []string{"outcome"})
)
