// Package metrics holds Prometheus instruments that are used across the
// site.  All collectors are registered with the global registry, so
// importing this package is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route pattern, and status code.",
		}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"})

	TurnstileVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "turnstile_verifications_total",
			Help: "CAPTCHA verification attempts by outcome.",
		}, []string{"outcome"})

	TurnstileLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "turnstile_verify_duration_seconds",
			Help:    "Round-trip time of calls to the CAPTCHA provider.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5},
		})

	ContactSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Contact enquiries received by category.",
		}, []string{"category"})

	AttachmentDownloads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "attachment_downloads_total",
			Help: "Cumulative number of attachment downloads served.",
		})

	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_attempts_total",
			Help: "Login attempts by result.",
		}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		TurnstileVerifications,
		TurnstileLatency,
		ContactSubmissions,
		AttachmentDownloads,
		LoginAttempts,
	)
}
