package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sparkchat_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sparkchat_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sparkchat_ai_requests_total",
			Help: "Total number of AI completion requests by model and outcome.",
		},
		[]string{"model", "outcome"},
	)

	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sparkchat_ai_request_duration_seconds",
			Help:    "Upstream AI completion duration in seconds.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"model"},
	)

	CreditsConsumedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sparkchat_credits_consumed_total",
			Help: "Total credits deducted from user budgets.",
		},
	)

	QuotaDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sparkchat_quota_denied_total",
			Help: "Total AI requests denied because the daily credit budget was exhausted.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AIRequestsTotal,
		AIRequestDuration,
		CreditsConsumedTotal,
		QuotaDeniedTotal,
	)
}
