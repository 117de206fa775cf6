package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttemptsTotal counts authentication attempts by method and outcome.
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harness_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"method", "outcome"},
	)

	// AuthDuration measures the duration of authentication flows.
	AuthDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harness_auth_duration_seconds",
			Help:    "Duration of authentication flows in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// FallbackActivationsTotal counts how often the fallback method was
	// engaged after a primary failure.
	FallbackActivationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harness_auth_fallback_activations_total",
			Help: "Total number of fallback method activations",
		},
		[]string{"primary", "fallback"},
	)
)

// RecordAttempt records one authentication attempt outcome.
func RecordAttempt(method MethodType, success bool, elapsed time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	AuthAttemptsTotal.WithLabelValues(string(method), outcome).Inc()
	AuthDuration.WithLabelValues(string(method)).Observe(elapsed.Seconds())
}
