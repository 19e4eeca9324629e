package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rentwise", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rentwise", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rentwise", Name: "login_attempts_total", Help: "Login and registration attempts by method and outcome."},
		[]string{"method", "outcome"},
	)
	AuthzDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rentwise", Name: "authz_decisions_total", Help: "Authorization decisions by outcome."},
		[]string{"outcome"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(LoginAttempts)
	reg.MustRegister(AuthzDecisions)
}
