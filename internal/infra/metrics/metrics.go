package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var deploysTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
	prometheus.CounterOpts{
		Name: "orchestrator_deploys_total",
		Help: "Total number of deploy attempts that reached the gateway, by project and outcome.",
	},
	[]string{"project", "outcome"},
)

var rateLimitedTotal = promauto.With(prometheus.DefaultRegisterer).NewCounter(
	prometheus.CounterOpts{
		Name: "orchestrator_rate_limited_total",
		Help: "Total number of deploy attempts rejected by the global rate limiter.",
	},
)

var evictionsTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
	prometheus.CounterOpts{
		Name: "orchestrator_evictions_total",
		Help: "Total number of instance deletions issued, by trigger (manual, expiry, sweep).",
	},
	[]string{"trigger"},
)

var gatewayErrorsTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
	prometheus.CounterOpts{
		Name: "orchestrator_gateway_errors_total",
		Help: "Total number of failed cloud gateway calls, by operation.",
	},
	[]string{"op"},
)

// RecordDeploy increments the deploy counter for one finished attempt.
func RecordDeploy(project, outcome string) {
	deploysTotal.WithLabelValues(project, outcome).Inc()
}

// RecordRateLimited increments the rejection counter.
func RecordRateLimited() {
	rateLimitedTotal.Inc()
}

// RecordEviction increments the eviction counter for the given trigger.
func RecordEviction(trigger string) {
	evictionsTotal.WithLabelValues(trigger).Inc()
}

// RecordGatewayError increments the gateway error counter for the operation.
func RecordGatewayError(op string) {
	gatewayErrorsTotal.WithLabelValues(op).Inc()
}
